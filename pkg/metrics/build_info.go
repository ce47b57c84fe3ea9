// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
)

// newBuildInfo returns a gauge that is always 1 and carries the build
// version and the Go version as labels.
func newBuildInfo(v string) prometheus.Collector {
	if v == "" {
		v = "dev"
	}
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "flowtrace_build_info",
		Help: "Build information of flowtrace, always 1",
	}, []string{"version", "goversion"})
	g.WithLabelValues(v, runtime.Version()).Set(1)
	return g
}
