// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package helper

import (
	"context"
	"errors"
	"time"

	"github.com/telekom/flowtrace/internal/logger"
)

// maxDelay caps the backoff between two attempts.
const maxDelay = time.Minute

type RetryConfig struct {
	Count int           `yaml:"count" mapstructure:"count"`
	Delay time.Duration `yaml:"delay" mapstructure:"delay"`
}

// Effector will be the function called by the Retry function
type Effector func(context.Context) error

// PermanentError marks an error that retrying will not fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so [Retry] gives up immediately. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Retry runs the effector until it succeeds, returns a [PermanentError] or
// the configured retries are used up. Attempts are spaced with an
// exponential backoff.
func Retry(effector Effector, rc RetryConfig) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		log := logger.FromContext(ctx)
		for r := 1; ; r++ {
			err := effector(ctx)
			if err == nil || r > rc.Count {
				return err
			}
			var perm *PermanentError
			if errors.As(err, &perm) {
				log.DebugContext(ctx, "Effector failed permanently, not retrying", "error", err)
				return err
			}

			delay := getExpBackoff(rc.Delay, r)
			log.WarnContext(ctx, "Effector call failed, retrying", "attempt", r, "delay", delay, "error", err)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
}

// getExpBackoff doubles the initial delay per iteration, starting at 1,
// and caps the result at maxDelay.
func getExpBackoff(initialDelay time.Duration, iteration int) time.Duration {
	delay := initialDelay
	for i := 1; i < iteration && delay < maxDelay; i++ {
		delay *= 2
	}
	return min(delay, maxDelay)
}
