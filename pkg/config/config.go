// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"time"

	"github.com/telekom/flowtrace/internal/helper"
	"github.com/telekom/flowtrace/internal/traceroute"
	"github.com/telekom/flowtrace/pkg/api"
	"github.com/telekom/flowtrace/pkg/metrics"
)

// Config is the startup configuration of a flowtrace run
type Config struct {
	// Snapshot is the configuration for the snapshot loader
	Snapshot LoaderConfig `yaml:"snapshot" mapstructure:"snapshot"`
	// Flows is the configuration of the flows to explore
	Flows FlowsConfig `yaml:"flows" mapstructure:"flows"`
	// Exploration configures the explorer
	Exploration traceroute.Options `yaml:"exploration" mapstructure:"exploration"`
	// Output is the configuration of the result writer
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	// Api is the configuration for the api server
	Api api.Config `yaml:"api" mapstructure:"api"`
	// Telemetry is the configuration for the telemetry
	Telemetry metrics.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// LoaderConfig is the configuration for loader
type LoaderConfig struct {
	Type string           `yaml:"type" mapstructure:"type"`
	Http HttpLoaderConfig `yaml:"http" mapstructure:"http"`
	File FileLoaderConfig `yaml:"file" mapstructure:"file"`
}

// HttpLoaderConfig is the configuration for the http loader
type HttpLoaderConfig struct {
	Url      string             `yaml:"url" mapstructure:"url"`
	Token    string             `yaml:"token" mapstructure:"token"`
	Timeout  time.Duration      `yaml:"timeout" mapstructure:"timeout"`
	RetryCfg helper.RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// FileLoaderConfig is the configuration for the file loader
type FileLoaderConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// FlowsConfig points to the flow specifications
type FlowsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// OutputConfig is the configuration of the result writer
type OutputConfig struct {
	// Format is one of json, text or dot
	Format string `yaml:"format" mapstructure:"format"`
	// Path is the file the results are written to, stdout if empty
	Path string `yaml:"path" mapstructure:"path"`
	// Compress compresses json output with zstd
	Compress bool `yaml:"compress" mapstructure:"compress"`
}

// HasTelemetry returns true if the config has telemetry enabled
func (c *Config) HasTelemetry() bool {
	return c.Telemetry.Enabled
}

// HasApi returns true if the metrics api should be served during the run
func (c *Config) HasApi() bool {
	return c.Api.ListeningAddress != ""
}
