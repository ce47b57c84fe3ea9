// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/telekom/flowtrace/internal/logger"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config configures where the spans of explored flows go.
type Config struct {
	Enabled  bool     `yaml:"enabled" mapstructure:"enabled"`
	Exporter Exporter `yaml:"exporter" mapstructure:"exporter"`
	// Url of the collector, required by the otlp exporters.
	Url   string `yaml:"url" mapstructure:"url"`
	Token string `yaml:"token" mapstructure:"token"`
	// SampleRatio is the share of flow explorations traced. Zero traces
	// every flow.
	SampleRatio float64   `yaml:"sampleRatio" mapstructure:"sampleRatio"`
	TLS         TLSConfig `yaml:"tls" mapstructure:"tls"`
}

type TLSConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// CertPath is only needed when the collector uses a custom CA.
	CertPath string `yaml:"certPath" mapstructure:"certPath"`
}

func (c *Config) Validate(ctx context.Context) error {
	var errs []error
	if err := c.Exporter.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Exporter.IsExporting() && c.Url == "" {
		errs = append(errs, fmt.Errorf("url is required for otlp exporter %q", c.Exporter))
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("sample ratio %v is not within [0, 1]", c.SampleRatio))
	}
	if err := errors.Join(errs...); err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "Invalid telemetry configuration", "error", err)
		return err
	}
	return nil
}

// sampler keeps the decision of a parent span and samples root spans by
// ratio.
func (c *Config) sampler() sdktrace.Sampler {
	if c.SampleRatio == 0 || c.SampleRatio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio))
}
