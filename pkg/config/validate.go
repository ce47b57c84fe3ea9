// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/telekom/flowtrace/internal/logger"
	"github.com/telekom/flowtrace/internal/traceroute"
	"github.com/telekom/flowtrace/pkg/export"
)

// Validate validates the startup config
func (c *Config) Validate(ctx context.Context) (err error) {
	log := logger.FromContext(ctx)

	if vErr := c.Snapshot.Validate(ctx); vErr != nil {
		log.Error("The snapshot loader configuration is invalid")
		err = errors.Join(err, vErr)
	}

	if c.Flows.Path == "" {
		log.Error("The flows path cannot be empty")
		err = errors.Join(err, ErrInvalidFlowsPath)
	}

	if vErr := validateExploration(&c.Exploration); vErr != nil {
		log.Error("The exploration configuration is invalid")
		err = errors.Join(err, vErr)
	}

	if vErr := c.Output.Validate(); vErr != nil {
		log.Error("The output configuration is invalid")
		err = errors.Join(err, vErr)
	}

	if c.HasTelemetry() {
		if vErr := c.Telemetry.Validate(ctx); vErr != nil {
			log.Error("The telemetry configuration is invalid")
			err = errors.Join(err, vErr)
		}
	}

	if c.HasApi() {
		if vErr := c.Api.Validate(); vErr != nil {
			log.Error("The api configuration is invalid")
			err = errors.Join(err, vErr)
		}
	}

	if err != nil {
		return fmt.Errorf("validation of configuration failed: %w", err)
	}
	return nil
}

// Validate validates the loader configuration
func (c *LoaderConfig) Validate(ctx context.Context) error {
	log := logger.FromContext(ctx)

	switch c.Type {
	case "http":
		if _, err := url.ParseRequestURI(c.Http.Url); err != nil {
			log.Error("The loader http url is not a valid url")
			return ErrInvalidLoaderHttpURL
		}
		if c.Http.RetryCfg.Count < 0 || c.Http.RetryCfg.Count >= 5 {
			log.Error("The amount of loader http retries must be between 0 and 4", "retryCount", c.Http.RetryCfg.Count)
			return ErrInvalidLoaderHttpRetryCount
		}
	case "file", "":
		if c.File.Path == "" {
			log.Error("The loader file path cannot be empty")
			return ErrInvalidLoaderFilePath
		}
	default:
		log.Error("The loader type is not supported", "type", c.Type)
		return ErrInvalidLoaderType
	}

	return nil
}

// Validate validates the output configuration
func (c *OutputConfig) Validate() error {
	f := export.Format(c.Format)
	if err := f.Validate(); err != nil {
		return err
	}
	if c.Compress && f != export.FormatJSON && f != "" {
		return ErrInvalidCompression
	}
	return nil
}

func validateExploration(o *traceroute.Options) error {
	var err error
	if o.Mode != "" {
		err = o.Mode.Validate()
	}
	if o.Parallelism < 0 {
		err = errors.Join(err, ErrInvalidParallelism)
	}
	return err
}
