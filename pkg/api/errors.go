// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"fmt"
)

var (
	// ErrServerStop is returned when the api server stopped serving
	ErrServerStop = errors.New("api server stopped")
	// ErrInvalidAddress is returned when the listening address is not a host:port pair
	ErrInvalidAddress = errors.New("invalid api listening address")
	// ErrInvalidRoute is returned when a route uses an unsupported method
	ErrInvalidRoute = errors.New("invalid route")
)

type ErrCreateOpenapiSchema struct {
	name string
	err  error
}

func (e ErrCreateOpenapiSchema) Error() string {
	return fmt.Sprintf("failed to get schema for %s: %v", e.name, e.err)
}

func (e ErrCreateOpenapiSchema) Unwrap() error {
	return e.err
}
