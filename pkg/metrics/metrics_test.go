// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telekom/flowtrace/test"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNew_RuntimeCollectors(t *testing.T) {
	families, err := New(Config{}).GetRegistry().Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["go_goroutines"], "go collector not registered")
	assert.True(t, names["flowtrace_build_info"], "build info not registered")
}

func TestConfig_sampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{ratio: 0, want: sdktrace.AlwaysSample().Description()},
		{ratio: 1, want: sdktrace.AlwaysSample().Description()},
		{ratio: 0.25, want: sdktrace.ParentBased(sdktrace.TraceIDRatioBased(0.25)).Description()},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.ratio), func(t *testing.T) {
			c := Config{SampleRatio: tt.ratio}
			assert.Equal(t, tt.want, c.sampler().Description())
		})
	}
}

func TestNewMetrics_BuildInfo(t *testing.T) {
	m := New(Config{})

	families, err := m.GetRegistry().Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range families {
		if mf.GetName() != "flowtrace_build_info" {
			continue
		}
		found = true
		require.Len(t, mf.GetMetric(), 1)
		metric := mf.GetMetric()[0]
		assert.InDelta(t, 1, metric.GetGauge().GetValue(), 0)

		labels := map[string]string{}
		for _, lp := range metric.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		assert.Equal(t, "dev", labels["version"])
		assert.NotEmpty(t, labels["goversion"])
	}
	assert.True(t, found, "flowtrace_build_info not registered")
}

func TestExporter_Validate(t *testing.T) {
	tests := []struct {
		name      string
		exporter  Exporter
		wantErr   bool
		exporting bool
	}{
		{name: "http", exporter: HTTP, exporting: true},
		{name: "grpc", exporter: GRPC, exporting: true},
		{name: "stdout", exporter: STDOUT},
		{name: "noop", exporter: NOOP},
		{name: "empty", exporter: ""},
		{name: "unsupported", exporter: "kafka", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.exporter.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Exporter.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			assert.Equal(t, tt.exporting, tt.exporter.IsExporting())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "noop", config: Config{Exporter: NOOP}},
		{name: "grpc with url", config: Config{Enabled: true, Exporter: GRPC, Url: "http://localhost:4317"}},
		{name: "http without url", config: Config{Enabled: true, Exporter: HTTP}, wantErr: true},
		{name: "unsupported exporter", config: Config{Exporter: "kafka"}, wantErr: true},
		{name: "sample ratio", config: Config{Exporter: STDOUT, SampleRatio: 0.1}},
		{name: "sample ratio out of range", config: Config{Exporter: STDOUT, SampleRatio: 1.5}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(t.Context()); (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMetrics_InitTracing(t *testing.T) {
	test.MarkAsLong(t)

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "success - stdout exporter",
			config: Config{
				Enabled:  true,
				Exporter: STDOUT,
			},
		},
		{
			name: "success - otlp exporter",
			config: Config{
				Enabled:  true,
				Exporter: HTTP,
				Url:      "http://localhost:4318",
			},
		},
		{
			name: "success - otlp exporter with token",
			config: Config{
				Enabled:  true,
				Exporter: GRPC,
				Url:      "http://localhost:4317",
				Token:    "my-super-secret-token",
			},
		},
		{
			name: "success - sampled stdout exporter",
			config: Config{
				Enabled:     true,
				Exporter:    STDOUT,
				SampleRatio: 0.5,
			},
		},
		{
			name: "success - no exporter",
			config: Config{
				Exporter: NOOP,
			},
		},
		{
			name: "success - disabled",
			config: Config{
				Enabled:  false,
				Exporter: STDOUT,
			},
		},
		{
			name: "failure - unsupported exporter",
			config: Config{
				Enabled:  true,
				Exporter: "unsupported",
			},
			wantErr: true,
		},
		{
			name: "failure - missing certificate",
			config: Config{
				Enabled:  true,
				Exporter: HTTP,
				Url:      "https://localhost:4318",
				TLS:      TLSConfig{Enabled: true, CertPath: "/does/not/exist.pem"},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(tt.config)
			if err := m.InitTracing(t.Context()); (err != nil) != tt.wantErr {
				t.Errorf("Metrics.InitTracing() error = %v", err)
			}

			if !tt.wantErr {
				if tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
					t.Errorf("Metrics.InitTracing() type = %T, want = %T", tp, &sdktrace.TracerProvider{})
				}
			}

			if err := m.Shutdown(t.Context()); err != nil {
				t.Fatalf("Metrics.Shutdown() error = %v", err)
			}
		})
	}
}
