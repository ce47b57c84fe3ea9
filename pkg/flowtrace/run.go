// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package flowtrace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/telekom/flowtrace/internal/logger"
	"github.com/telekom/flowtrace/internal/traceroute"
	"github.com/telekom/flowtrace/pkg"
	"github.com/telekom/flowtrace/pkg/api"
	"github.com/telekom/flowtrace/pkg/config"
	"github.com/telekom/flowtrace/pkg/export"
	"github.com/telekom/flowtrace/pkg/metrics"
	"github.com/telekom/flowtrace/pkg/reachability"
	"github.com/telekom/flowtrace/pkg/snapshot"
)

const shutdownTimeout = time.Second * 30

// Flowtrace runs a reachability analysis of a snapshot
type Flowtrace struct {
	// config is the startup configuration of the run
	config *config.Config
	// api serves metrics and the latest report, nil if disabled
	api api.API
	// loader is used to load the snapshot
	loader config.Loader
	// metrics is used to collect metrics
	metrics metrics.Provider
	// stdout receives the report if no output path is configured
	stdout io.Writer
	// report is the report of the last run
	report atomic.Pointer[reachability.Report]
}

// New creates a new run from a given config
func New(cfg *config.Config) *Flowtrace {
	f := &Flowtrace{
		config:  cfg,
		loader:  config.NewLoader(cfg),
		metrics: metrics.New(cfg.Telemetry),
		stdout:  os.Stdout,
	}
	if cfg.HasApi() {
		f.api = api.New(cfg.Api)
	}
	return f
}

// Run loads the snapshot and the flows, explores them and writes the
// report. With the api enabled it keeps serving until ctx is done.
func (f *Flowtrace) Run(ctx context.Context) (err error) {
	ctx, cancel := logger.NewContextWithLogger(ctx)
	defer cancel()
	log := logger.FromContext(ctx)

	if err = f.metrics.InitTracing(ctx); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if sErr := f.shutdown(ctx); sErr != nil {
			err = errors.Join(err, sErr)
		}
	}()

	cErr := make(chan error, 1)
	if f.api != nil {
		if err = f.registerRoutes(ctx); err != nil {
			return err
		}
		go func() {
			cErr <- f.api.Run(ctx)
		}()
	}

	report, unmatched, err := f.explore(ctx)
	if err != nil {
		return err
	}
	f.report.Store(report)

	if err = f.write(ctx, report); err != nil {
		return err
	}

	var failed error
	if report.Summary.Failed > 0 || report.Summary.Unmatched > 0 {
		failed = ErrFlowsFailed{
			Failed:    report.Summary.Failed,
			Total:     report.Summary.Flows,
			Unmatched: report.Summary.Unmatched,
			specs:     unmatched,
		}
	}
	if f.api == nil {
		return failed
	}

	log.InfoContext(ctx, "Serving report until shutdown", "address", f.config.Api.ListeningAddress)
	select {
	case <-ctx.Done():
		return failed
	case aErr := <-cErr:
		if aErr != nil && ctx.Err() == nil {
			log.ErrorContext(ctx, "Non-recoverable error in api server", "error", aErr)
			return errors.Join(failed, aErr)
		}
		return failed
	}
}

// explore loads the inputs and runs the explorer. Flow specs matching no
// ingress point are recorded in the report and returned as unmatched, the
// flows of all other specs are explored.
func (f *Flowtrace) explore(ctx context.Context) (report *reachability.Report, unmatched, err error) {
	log := logger.FromContext(ctx)

	snap, err := f.loader.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrLoadSnapshot, err)
	}
	network, err := snapshot.New(snap)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrLoadSnapshot, err)
	}
	log.DebugContext(ctx, "Snapshot ready", "nodes", len(network.Nodes()), "sessions", network.Sessions())

	flows, unmatched, err := f.loadFlows(network)
	if err != nil {
		return nil, nil, err
	}
	if unmatched != nil {
		log.WarnContext(ctx, "Some flow specs match no ingress point", "flows", len(flows), "error", unmatched)
	}

	runner := reachability.NewRunner(traceroute.NewExplorer(network, network), f.config.Exploration)
	for _, c := range runner.GetMetricCollectors() {
		if err := f.metrics.GetRegistry().Register(c); err != nil {
			log.WarnContext(ctx, "Failed to register exploration metrics", "error", err)
		}
	}
	report = runner.Run(ctx, flows)
	report.AddUnmatched(unmatched)
	return report, unmatched, nil
}

// loadFlows reads and expands the flow specs. Specs matching no ingress
// point are returned joined as unmatched, unless no spec matched at all.
func (f *Flowtrace) loadFlows(topo reachability.Topology) (flows []traceroute.Flow, unmatched, err error) {
	file, err := os.Open(f.config.Flows.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrLoadFlows, err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	specs, err := reachability.ParseFlows(file)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrLoadFlows, err)
	}
	flows, unmatched = reachability.ExpandAll(specs, topo)
	if len(flows) == 0 {
		return nil, nil, fmt.Errorf("%w: %w", ErrLoadFlows, unmatched)
	}
	return flows, unmatched, nil
}

// write encodes the report to the configured path or stdout
func (f *Flowtrace) write(ctx context.Context, report *reachability.Report) (err error) {
	out := f.config.Output
	w, err := export.New(export.Format(out.Format), out.Compress)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}

	dst := f.stdout
	if out.Path != "" {
		file, err := os.Create(out.Path)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWriteOutput, err)
		}
		defer func() {
			err = errors.Join(err, file.Close())
		}()
		dst = file
	}

	if err := w.Write(dst, report); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	logger.FromContext(ctx).InfoContext(ctx, "Report written", "format", out.Format, "path", out.Path)
	return nil
}

func (f *Flowtrace) registerRoutes(ctx context.Context) error {
	doc, err := reachability.Schema(pkg.Version)
	if err != nil {
		return err
	}
	openapi, err := api.OpenapiHandler(doc)
	if err != nil {
		return err
	}

	return f.api.RegisterRoutes(ctx,
		api.Route{Path: "/metrics", Method: http.MethodGet, Handler: promhttp.HandlerFor(f.metrics.GetRegistry(), promhttp.HandlerOpts{Registry: f.metrics.GetRegistry()}).ServeHTTP},
		api.Route{Path: "/healthz", Method: http.MethodGet, Handler: f.handleHealth},
		api.Route{Path: "/report", Method: http.MethodGet, Handler: f.handleReport},
		api.Route{Path: "/openapi", Method: http.MethodGet, Handler: openapi},
	)
}

func (f *Flowtrace) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (f *Flowtrace) handleReport(w http.ResponseWriter, r *http.Request) {
	report := f.report.Load()
	if report == nil {
		http.Error(w, "no report available yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		logger.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode report", "error", err)
	}
}

// shutdown stops the api and flushes the telemetry
func (f *Flowtrace) shutdown(ctx context.Context) error {
	errC := ctx.Err()
	log := logger.FromContext(ctx)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	log.InfoContext(ctx, "Shutting down flowtrace")
	var sErrs ErrShutdown
	if f.api != nil {
		sErrs.errAPI = f.api.Shutdown(ctx)
	}
	sErrs.errMetrics = f.metrics.Shutdown(ctx)

	if sErrs.HasError() {
		log.ErrorContext(ctx, "Failed to shutdown gracefully", "contextError", errC, "errors", sErrs)
		return sErrs
	}
	return nil
}
