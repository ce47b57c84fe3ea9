// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/telekom/flowtrace/pkg/reachability"
	"gopkg.in/yaml.v3"
)

// NewCmdSchema creates a command printing the openapi document of the report
func NewCmdSchema(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the openapi schema of the json report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := reachability.Schema(version)
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(doc)
			if err != nil {
				return fmt.Errorf("failed to encode schema: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}
