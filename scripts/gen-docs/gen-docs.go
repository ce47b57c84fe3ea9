// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package main

//go:generate go run gen-docs.go --path ../../docs

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
	flowtracecmd "github.com/telekom/flowtrace/cmd"
)

// generators write the reference of the flowtrace command tree in one
// format each.
var generators = map[string]func(*cobra.Command, string) error{
	"markdown": doc.GenMarkdownTree,
	"man":      genManTree,
}

func genManTree(c *cobra.Command, dir string) error {
	return doc.GenManTree(c, &doc.GenManHeader{Title: "FLOWTRACE", Section: "1"}, dir)
}

func main() {
	if err := newCmdGenDocs().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCmdGenDocs() *cobra.Command {
	var path, format string

	cmd := &cobra.Command{
		Use:   "gen-docs",
		Short: "Generates the flowtrace CLI reference",
		RunE: func(_ *cobra.Command, _ []string) error {
			gen, ok := generators[format]
			if !ok {
				return fmt.Errorf("unknown doc format %q", format)
			}
			if err := os.MkdirAll(path, 0o750); err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}

			c := flowtracecmd.BuildCmd("")
			c.DisableAutoGenTag = true
			if err := gen(c, path); err != nil {
				return fmt.Errorf("failed to generate %s docs: %w", format, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "docs", "directory the reference is written to")
	cmd.Flags().StringVar(&format, "format", "markdown", "output format: markdown or man")

	return cmd
}
