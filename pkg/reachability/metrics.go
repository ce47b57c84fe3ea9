// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package reachability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics defines the metric collectors of the reachability runner
type metrics struct {
	flows    *prometheus.CounterVec
	traces   *prometheus.CounterVec
	dagNodes prometheus.Histogram
	dagEdges prometheus.Histogram
	duration prometheus.Histogram
}

// newMetrics initializes metric collectors of the reachability runner
func newMetrics() metrics {
	return metrics{
		flows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowtrace_flows_explored_total",
				Help: "Total number of explored flows and whether the exploration succeeded.",
			},
			[]string{"status"},
		),
		traces: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flowtrace_traces_total",
				Help: "Total number of traces found, by disposition.",
			},
			[]string{"disposition"},
		),
		dagNodes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "flowtrace_dag_nodes",
				Help:    "Histogram of the number of nodes of compressed trace DAGs.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		dagEdges: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "flowtrace_dag_edges",
				Help:    "Histogram of the number of edges of compressed trace DAGs.",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: "flowtrace_exploration_duration_seconds",
				Help: "Histogram of the duration of exploration runs in seconds.",
			},
		),
	}
}

// List returns all metric collectors
func (m *metrics) List() []prometheus.Collector {
	return []prometheus.Collector{
		m.flows,
		m.traces,
		m.dagNodes,
		m.dagEdges,
		m.duration,
	}
}

// Set records the results of one run
func (m *metrics) Set(results []Result, took time.Duration) {
	m.duration.Observe(took.Seconds())
	for i := range results {
		res := &results[i]
		if res.Failed() {
			m.flows.WithLabelValues("error").Inc()
			continue
		}
		m.flows.WithLabelValues("ok").Inc()
		for d, n := range res.Dispositions {
			m.traces.WithLabelValues(d).Add(float64(n))
		}
		if res.Dag != nil {
			m.dagNodes.Observe(float64(res.Dag.NodeCount))
			m.dagEdges.Observe(float64(res.Dag.EdgeCount))
		}
	}
}
