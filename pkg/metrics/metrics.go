// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/telekom/flowtrace/internal/logger"
	"github.com/telekom/flowtrace/pkg"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

var _ Provider = (*manager)(nil)

const serviceName = "flowtrace"

// Span batching of an exporting tracer provider. A single run explores
// every flow in one go, so spans are flushed on shutdown at the latest.
const (
	batchTimeout = 5 * time.Second
	maxQueueSize = 4096
	maxBatchSize = 512
)

// Provider owns the prometheus registry and the tracer provider of a run.
//
//go:generate go tool moq -out metrics_moq.go . Provider
type Provider interface {
	// GetRegistry returns the registry the exploration collectors are
	// registered with.
	GetRegistry() *prometheus.Registry
	// InitTracing installs the global tracer provider used for the
	// per-flow spans.
	InitTracing(ctx context.Context) error
	// Shutdown flushes pending spans and stops the tracer provider.
	Shutdown(ctx context.Context) error
}

type manager struct {
	config   Config
	registry *prometheus.Registry
	tp       *sdktrace.TracerProvider
}

// New creates the registry with the Go, process and build info collectors.
//
//nolint:gocritic // config is copied once at startup
func New(config Config) Provider {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		newBuildInfo(pkg.Version),
	)
	return &manager{config: config, registry: registry}
}

func (m *manager) GetRegistry() *prometheus.Registry {
	return m.registry
}

// InitTracing installs a tracer provider. Without an enabled exporter the
// provider still creates spans, so span attributes and errors recorded
// during exploration stay valid, but nothing leaves the process.
func (m *manager) InitTracing(ctx context.Context) error {
	log := logger.FromContext(ctx)
	res, err := newResource(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create resource", "error", err)
		return fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if m.config.Enabled {
		exporter, err := m.config.Exporter.Create(ctx, &m.config)
		if err != nil {
			log.ErrorContext(ctx, "Failed to create exporter", "error", err)
			return fmt.Errorf("failed to create exporter: %w", err)
		}
		if exporter != nil {
			opts = append(opts,
				sdktrace.WithSampler(m.config.sampler()),
				sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter,
					sdktrace.WithBatchTimeout(batchTimeout),
					sdktrace.WithMaxQueueSize(maxQueueSize),
					sdktrace.WithMaxExportBatchSize(maxBatchSize),
				)),
			)
		}
	}

	m.tp = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(m.tp)
	log.DebugContext(ctx, "Tracing initialized", "exporter", m.config.Exporter, "enabled", m.config.Enabled)
	return nil
}

func (m *manager) Shutdown(ctx context.Context) error {
	if m.tp == nil {
		return nil
	}
	if err := m.tp.Shutdown(ctx); err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	logger.FromContext(ctx).DebugContext(ctx, "Tracing shutdown")
	return nil
}

func newResource(ctx context.Context) (*resource.Resource, error) {
	v := pkg.Version
	if v == "" {
		v = "dev"
	}
	return resource.New(ctx,
		resource.WithHost(),
		resource.WithContainer(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(v),
		),
	)
}
