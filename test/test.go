// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

// Package test holds helpers shared by the tests of all packages.
package test

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Timeout and Tick bound assertions waiting for asynchronous work
const (
	Timeout = 5 * time.Second
	Tick    = 10 * time.Millisecond
)

// MarkAsLong marks the test as long running, so it is skipped if the
// -short flag is set.
func MarkAsLong(t testing.TB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping long running test in short mode")
	}
}

// WriteFile writes content to a file named name in a temporary directory
// removed after the test and returns its path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
