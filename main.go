// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/telekom/flowtrace/cmd"
	"github.com/telekom/flowtrace/pkg"
)

func main() {
	cmd.Execute(pkg.Version)
}
