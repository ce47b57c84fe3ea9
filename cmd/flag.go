// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flag is a command line flag bound to the config key of the same name
type flag struct {
	name string
}

type (
	stringFlag   struct{ *flag }
	boolFlag     struct{ *flag }
	intFlag      struct{ *flag }
	floatFlag    struct{ *flag }
	durationFlag struct{ *flag }
)

func newFlag(name string) *flag {
	return &flag{name: name}
}

// String returns a string flag
func (f *flag) String() *stringFlag { return &stringFlag{f} }

// Bool returns a bool flag
func (f *flag) Bool() *boolFlag { return &boolFlag{f} }

// Int returns an int flag
func (f *flag) Int() *intFlag { return &intFlag{f} }

// Float returns a float64 flag
func (f *flag) Float() *floatFlag { return &floatFlag{f} }

// Duration returns a duration flag
func (f *flag) Duration() *durationFlag { return &durationFlag{f} }

func (f *flag) bind(cmd *cobra.Command) {
	cobra.CheckErr(viper.BindPFlag(f.name, cmd.Flags().Lookup(f.name)))
}

// Bind registers the flag on cmd and binds it to viper
func (f *stringFlag) Bind(cmd *cobra.Command, value, usage string) {
	cmd.Flags().String(f.name, value, usage)
	f.bind(cmd)
}

// Bind registers the flag on cmd and binds it to viper
func (f *boolFlag) Bind(cmd *cobra.Command, value bool, usage string) {
	cmd.Flags().Bool(f.name, value, usage)
	f.bind(cmd)
}

// Bind registers the flag on cmd and binds it to viper
func (f *intFlag) Bind(cmd *cobra.Command, value int, usage string) {
	cmd.Flags().Int(f.name, value, usage)
	f.bind(cmd)
}

// Bind registers the flag on cmd and binds it to viper
func (f *floatFlag) Bind(cmd *cobra.Command, value float64, usage string) {
	cmd.Flags().Float64(f.name, value, usage)
	f.bind(cmd)
}

// Bind registers the flag on cmd and binds it to viper
func (f *durationFlag) Bind(cmd *cobra.Command, value time.Duration, usage string) {
	cmd.Flags().Duration(f.name, value, usage)
	f.bind(cmd)
}
