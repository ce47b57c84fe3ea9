// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/telekom/flowtrace/internal/logger"
	"github.com/telekom/flowtrace/internal/traceroute"
	"github.com/telekom/flowtrace/pkg/config"
	"github.com/telekom/flowtrace/pkg/export"
	"github.com/telekom/flowtrace/pkg/flowtrace"
)

// NewCmdRun creates a new run command
func NewCmdRun() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a reachability analysis",
		Long: "Loads a data plane snapshot, explores every flow of the flow file through it\n" +
			"and writes the traces in the configured format.",
		RunE: run(),
	}

	newFlag("snapshot.type").String().Bind(cmd, "file", "defines the loader type that will load the snapshot: file or http")
	newFlag("snapshot.file.path").String().Bind(cmd, "", "the path to the snapshot file")
	newFlag("snapshot.http.url").String().Bind(cmd, "", "http loader: the url to fetch the snapshot from")
	newFlag("snapshot.http.token").String().Bind(cmd, "", "http loader: bearer token to authenticate the http endpoint")
	newFlag("snapshot.http.timeout").Duration().Bind(cmd, 30*time.Second, "http loader: the timeout of a single request")
	newFlag("snapshot.http.retry.count").Int().Bind(cmd, 3, "http loader: amount of retries trying to load the snapshot")
	newFlag("snapshot.http.retry.delay").Duration().Bind(cmd, time.Second, "http loader: the initial delay between retries")

	newFlag("flows.path").String().Bind(cmd, "", "the path to the flow file")

	newFlag("exploration.mode").String().Bind(cmd, string(traceroute.ModeDirect), "how traces are recorded: direct or dag")
	newFlag("exploration.parallelism").Int().Bind(cmd, 0, "number of flows explored at once, one per cpu if 0")
	newFlag("exploration.ignoreFilters").Bool().Bind(cmd, false, "permit every flow at every acl")

	newFlag("output.format").String().Bind(cmd, string(export.FormatJSON), "the output format: json, text or dot")
	newFlag("output.path").String().Bind(cmd, "", "the file the report is written to, stdout if empty")
	newFlag("output.compress").Bool().Bind(cmd, false, "compress json output with zstd")

	newFlag("api.address").String().Bind(cmd, "", "serve metrics and the report on this address until interrupted")

	newFlag("telemetry.enabled").Bool().Bind(cmd, false, "enables tracing of flow explorations")
	newFlag("telemetry.exporter").String().Bind(cmd, "", "the exporter of the traces: grpc, http, stdout or noop")
	newFlag("telemetry.url").String().Bind(cmd, "", "the url of the otlp collector")
	newFlag("telemetry.token").String().Bind(cmd, "", "the token to authenticate with the otlp collector")
	newFlag("telemetry.sampleRatio").Float().Bind(cmd, 0, "share of flow explorations traced, all if 0")

	return cmd
}

// run is the entry point to start a flowtrace run
func run() func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg := &config.Config{}
		err := viper.Unmarshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}

		ctx, cancel := logger.NewContextWithLogger(cmd.Context())
		defer cancel()
		log := logger.FromContext(ctx)

		if err = cfg.Validate(ctx); err != nil {
			return fmt.Errorf("error while validating the config: %w", err)
		}

		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.InfoContext(ctx, "Running flowtrace", "snapshot", cfg.Snapshot.Type, "flows", cfg.Flows.Path)
		return flowtrace.New(cfg).Run(ctx)
	}
}
