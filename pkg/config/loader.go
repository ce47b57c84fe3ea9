// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"

	"github.com/telekom/flowtrace/pkg/snapshot"
)

//go:generate go tool moq -out loader_moq.go . Loader
type Loader interface {
	// Load fetches and parses the snapshot.
	// The loader should handle transient errors by itself and retry
	// if configured to.
	Load(ctx context.Context) (*snapshot.Snapshot, error)
}

// NewLoader Get a new typed snapshot loader
func NewLoader(cfg *Config) Loader {
	switch cfg.Snapshot.Type {
	case "http":
		return NewHttpLoader(cfg)
	default:
		return NewFileLoader(cfg)
	}
}
