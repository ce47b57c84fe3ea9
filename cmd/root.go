// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/telekom/flowtrace/pkg/flowtrace"
)

const (
	configName = ".flowtrace"
	envPrefix  = "flowtrace"
)

// Exit codes of the flowtrace binary. A run whose report was written but
// contains flows that could not be explored exits with exitFlowsFailed.
const (
	exitError       = 1
	exitFlowsFailed = 2
)

// NewCmdRoot creates the flowtrace root command. The config file is read
// before any subcommand runs.
func NewCmdRoot(version string) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "flowtrace",
		Short: "flowtrace, the static network reachability analyzer",
		Long: "flowtrace explores every path a flow can take through a data plane snapshot.\n" +
			"No packets are sent: forwarding, filters, NAT and firewall sessions are simulated.",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd, cfgFile)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		fmt.Sprintf("config file (default is %s.yaml in the working or home directory)", configName))

	return rootCmd
}

// Execute builds the command tree and runs it
func Execute(version string) {
	if err := BuildCmd(version).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func BuildCmd(version string) *cobra.Command {
	cmd := NewCmdRoot(version)
	cmd.AddCommand(NewCmdRun())
	cmd.AddCommand(NewCmdSchema(version))
	return cmd
}

func exitCode(err error) int {
	var failed flowtrace.ErrFlowsFailed
	if errors.As(err, &failed) {
		return exitFlowsFailed
	}
	return exitError
}

// initConfig reads the config file, if any, into viper. Environment
// variables prefixed with FLOWTRACE_ override it, e.g.
// FLOWTRACE_SNAPSHOT_FILE_PATH for snapshot.file.path.
func initConfig(cmd *cobra.Command, cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(configName)
	}

	viper.SetOptions(viper.ExperimentalBindStruct())
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", viper.ConfigFileUsed())
	case errors.As(err, &notFound) && cfgFile == "":
	default:
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}
