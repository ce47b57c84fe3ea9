// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package reachability

import (
	"context"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/telekom/flowtrace/internal/logger"
	"github.com/telekom/flowtrace/internal/traceroute"
	"github.com/telekom/flowtrace/pkg/api"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const name = "reachability"

// Runner explores flows and aggregates their results into a [Report]
type Runner struct {
	explorer traceroute.Explorer
	opts     traceroute.Options
	metrics  metrics
	tracer   trace.Tracer
}

// NewRunner creates a runner exploring with the given options
func NewRunner(explorer traceroute.Explorer, opts traceroute.Options) *Runner {
	if opts.Mode == "" {
		opts.Mode = traceroute.ModeDirect
	}
	return &Runner{
		explorer: explorer,
		opts:     opts,
		metrics:  newMetrics(),
		tracer:   otel.Tracer(name),
	}
}

// Run explores the flows. Failing flows are part of the report and never
// abort the run.
func (r *Runner) Run(ctx context.Context, flows []traceroute.Flow) *Report {
	id := uuid.New().String()
	log := logger.FromContext(ctx).With("run", id)
	ctx = logger.IntoContext(ctx, log)

	ctx, span := r.tracer.Start(ctx, "reachability.run", trace.WithAttributes(
		attribute.String("run.id", id),
		attribute.String("mode", string(r.opts.Mode)),
		attribute.Int("flows", len(flows)),
	))
	defer span.End()

	log.InfoContext(ctx, "Starting exploration", "flows", len(flows), "mode", r.opts.Mode, "parallelism", r.opts.Parallelism)
	start := time.Now()
	frs := r.explorer.ExploreFlows(ctx, flows, &r.opts)
	took := time.Since(start)

	results := make([]Result, 0, len(frs))
	for _, fr := range frs {
		if fr.Err != nil {
			log.WarnContext(ctx, "Failed to explore flow", "flow", fr.Flow.String(), "error", fr.Err)
		}
		results = append(results, newResult(fr))
	}
	r.metrics.Set(results, took)

	report := &Report{
		ID:        id,
		Mode:      r.opts.Mode,
		Timestamp: start.UTC(),
		Summary:   summarize(results),
		Results:   results,
	}
	if report.Summary.Failed > 0 {
		span.SetStatus(codes.Error, "some flows could not be explored")
	}
	span.SetAttributes(attribute.Int("traces", report.Summary.Traces))

	log.InfoContext(ctx, "Finished exploration", "duration", took.String(), "traces", report.Summary.Traces, "failed", report.Summary.Failed)
	return report
}

// GetMetricCollectors returns the prometheus collectors of the runner
func (r *Runner) GetMetricCollectors() []prometheus.Collector {
	return r.metrics.List()
}

// Schema returns the openapi document of the report
func Schema(version string) (*openapi3.T, error) {
	return api.Openapi(version, "/report", "report", Report{})
}
