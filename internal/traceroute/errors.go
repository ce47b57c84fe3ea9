// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFlow is returned when a flow cannot be explored because it
	// is malformed or its ingress point does not exist.
	ErrInvalidFlow = errors.New("invalid flow")
	// ErrInvariant is returned when the network or the exploration state
	// violates an internal consistency rule. It indicates a bug or a
	// corrupt snapshot, never a property of the traced flow.
	ErrInvariant = errors.New("invariant violated")
)

// ValidationError is returned for a malformed flow.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid flow field %q: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidFlow
}

// InvariantError is returned when exploration cannot continue.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return e.Reason
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

func invariantf(format string, args ...any) error {
	return &InvariantError{Reason: fmt.Sprintf(format, args...)}
}

// IsFatal reports whether err aborted the exploration of a flow, as opposed
// to the flow being rejected before exploration started.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvariant)
}
