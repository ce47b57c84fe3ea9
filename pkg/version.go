// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

// Package pkg contains metadata about flowtrace.
package pkg

// Version is the current version of flowtrace.
// It is set at build time by using -ldflags "-X github.com/telekom/flowtrace/pkg.Version=x.x.x".
var Version string
