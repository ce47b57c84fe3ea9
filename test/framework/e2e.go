// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package framework

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
	"github.com/telekom/flowtrace/internal/traceroute"
	"github.com/telekom/flowtrace/pkg/api"
	"github.com/telekom/flowtrace/pkg/config"
	"github.com/telekom/flowtrace/pkg/flowtrace"
	"github.com/telekom/flowtrace/test"
)

// snapshotSource is where the flowtrace run under test loads its snapshot
// from.
type snapshotSource int

const (
	sourceFile snapshotSource = iota
	sourceCompressedFile
	sourceRemote
)

// E2E runs flowtrace against a snapshot and flow file written to a
// temporary directory and serves the report on a local address.
type E2E struct {
	t      *testing.T
	dir    string
	config config.Config

	snapshot []byte
	source   snapshotSource
	// fetches counts the snapshot requests of the remote source
	fetches atomic.Int32

	running atomic.Bool
}

// New creates an end-to-end test serving its api on apiAddr.
func New(t *testing.T, apiAddr string) *E2E {
	dir := t.TempDir()
	return &E2E{
		t:   t,
		dir: dir,
		config: config.Config{
			Snapshot:    config.LoaderConfig{Type: "file", File: config.FileLoaderConfig{Path: filepath.Join(dir, "snapshot.yaml")}},
			Flows:       config.FlowsConfig{Path: filepath.Join(dir, "flows.yaml")},
			Exploration: traceroute.Options{Mode: traceroute.ModeDirect},
			Output:      config.OutputConfig{Format: "json", Path: filepath.Join(dir, "report.json")},
			Api:         api.Config{ListeningAddress: apiAddr},
		},
	}
}

// WithSnapshot sets the snapshot document the flows are explored in.
func (e *E2E) WithSnapshot(doc []byte) *E2E {
	e.snapshot = doc
	return e
}

// WithFlows writes the flow file of the run.
func (e *E2E) WithFlows(doc []byte) *E2E {
	e.t.Helper()
	require.NoError(e.t, os.WriteFile(e.config.Flows.Path, doc, 0o600))
	return e
}

// WithMode sets the exploration mode.
func (e *E2E) WithMode(mode traceroute.Mode) *E2E {
	e.config.Exploration.Mode = mode
	return e
}

// WithCompressedSnapshot stores the snapshot zstd compressed.
func (e *E2E) WithCompressedSnapshot() *E2E {
	e.source = sourceCompressedFile
	e.config.Snapshot.File.Path = filepath.Join(e.dir, "snapshot.yaml.zst")
	return e
}

// WithRemote serves the snapshot over http for the http loader.
func (e *E2E) WithRemote() *E2E {
	e.source = sourceRemote
	return e
}

// WithCompressedOutput writes the report zstd compressed.
func (e *E2E) WithCompressedOutput() *E2E {
	e.config.Output.Compress = true
	e.config.Output.Path += ".zst"
	return e
}

// Run prepares the snapshot source and runs flowtrace until ctx is done.
func (e *E2E) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		e.t.Fatal("E2E.Run must be called once")
	}

	switch e.source {
	case sourceFile:
		require.NoError(e.t, os.WriteFile(e.config.Snapshot.File.Path, e.snapshot, 0o600))
	case sourceCompressedFile:
		enc, err := zstd.NewWriter(nil)
		require.NoError(e.t, err)
		data := enc.EncodeAll(e.snapshot, nil)
		require.NoError(e.t, enc.Close())
		require.NoError(e.t, os.WriteFile(e.config.Snapshot.File.Path, data, 0o600))
	case sourceRemote:
		srv := httptest.NewServer(http.HandlerFunc(e.serveSnapshot))
		defer srv.Close()
		e.config.Snapshot = config.LoaderConfig{
			Type: "http",
			Http: config.HttpLoaderConfig{Url: srv.URL + "/snapshot.yaml", Timeout: test.Timeout},
		}
	}

	if err := e.config.Validate(ctx); err != nil {
		return err
	}
	return flowtrace.New(&e.config).Run(ctx)
}

// AwaitStartup waits until u answers with 200.
func (e *E2E) AwaitStartup(u string) *E2E {
	e.t.Helper()
	require.Eventually(e.t, func() bool {
		if !e.running.Load() {
			return false
		}
		status, _, err := get(e.t.Context(), u)
		return err == nil && status == http.StatusOK
	}, test.Timeout, test.Tick, "%s did not become ready", u)
	return e
}

// ReportPath returns the file the report is written to.
func (e *E2E) ReportPath() string {
	return e.config.Output.Path
}

// Fetches returns how often the remote snapshot was requested.
func (e *E2E) Fetches() int {
	return int(e.fetches.Load())
}

func (e *E2E) serveSnapshot(w http.ResponseWriter, _ *http.Request) {
	e.fetches.Add(1)
	w.Header().Set("Content-Type", "application/yaml")
	if _, err := w.Write(e.snapshot); err != nil {
		e.t.Errorf("Failed to serve snapshot: %v", err)
	}
}

// requestTimeout bounds a single request of the framework.
const requestTimeout = 2 * time.Second
