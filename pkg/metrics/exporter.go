// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"slices"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc/credentials"
)

// Exporter is the exporter spans are sent to.
type Exporter string

const (
	// HTTP is the OTLP exporter over HTTP.
	HTTP Exporter = "http"
	// GRPC is the OTLP exporter over gRPC.
	GRPC Exporter = "grpc"
	// STDOUT writes spans to stdout.
	STDOUT Exporter = "stdout"
	// NOOP drops all spans.
	NOOP Exporter = "noop"
)

func (e Exporter) String() string {
	return string(e)
}

// Validate checks that the exporter is supported. The empty exporter is
// treated as [NOOP].
func (e Exporter) Validate() error {
	if e == "" || slices.Contains([]Exporter{HTTP, GRPC, STDOUT, NOOP}, e) {
		return nil
	}
	return fmt.Errorf("unsupported exporter %q", e)
}

// IsExporting reports whether the exporter sends spans to a collector.
func (e Exporter) IsExporting() bool {
	return e == HTTP || e == GRPC
}

// Create returns the span exporter for the configuration.
// A nil exporter with a nil error means spans are not exported.
func (e Exporter) Create(ctx context.Context, config *Config) (sdktrace.SpanExporter, error) {
	switch e {
	case HTTP:
		return newHTTPExporter(ctx, config)
	case GRPC:
		return newGRPCExporter(ctx, config)
	case STDOUT:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case NOOP, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported exporter %q", e)
	}
}

func newHTTPExporter(ctx context.Context, config *Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(config.Url)}
	if config.Token != "" {
		opts = append(opts, otlptracehttp.WithHeaders(authHeader(config.Token)))
	}
	if !config.TLS.Enabled {
		opts = append(opts, otlptracehttp.WithInsecure())
	} else if config.TLS.CertPath != "" {
		tlsCfg, err := loadTLSConfig(config.TLS.CertPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, otlptracehttp.WithTLSClientConfig(tlsCfg))
	}
	return otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
}

func newGRPCExporter(ctx context.Context, config *Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpointURL(config.Url)}
	if config.Token != "" {
		opts = append(opts, otlptracegrpc.WithHeaders(authHeader(config.Token)))
	}
	if !config.TLS.Enabled {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else if config.TLS.CertPath != "" {
		tlsCfg, err := loadTLSConfig(config.TLS.CertPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewTLS(tlsCfg)))
	}
	return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
}

func authHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// loadTLSConfig trusts the certificate at certPath in addition to the
// system pool.
func loadTLSConfig(certPath string) (*tls.Config, error) {
	cert, err := os.ReadFile(certPath) // #nosec G304 // path comes from the startup config
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(cert) {
		return nil, fmt.Errorf("failed to parse certificate %q", certPath)
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}
