// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package reachability

import (
	"iter"
	"slices"
	"time"

	"github.com/telekom/flowtrace/internal/traceroute"
)

// Report is the outcome of one run
type Report struct {
	// ID identifies the run in logs and spans
	ID        string          `json:"id"`
	Mode      traceroute.Mode `json:"mode"`
	Timestamp time.Time       `json:"timestamp"`
	Summary   Summary         `json:"summary"`
	Results   []Result        `json:"results"`
	// Unmatched holds the errors of the flow specs that expanded to no
	// flow. The flows of all other specs are in Results.
	Unmatched []string `json:"unmatched,omitempty"`
}

// Summary aggregates the results of a run
type Summary struct {
	Flows        int            `json:"flows"`
	Failed       int            `json:"failed"`
	Traces       int            `json:"traces"`
	Unmatched    int            `json:"unmatched,omitempty"`
	Dispositions map[string]int `json:"dispositions"`
}

// Result is the outcome of exploring a single flow. Traces is set in
// direct mode, Dag in dag mode.
type Result struct {
	Flow         traceroute.Flow                  `json:"flow"`
	Paths        int                              `json:"paths"`
	Dispositions map[string]int                   `json:"dispositions,omitempty"`
	Traces       []traceroute.TraceAndReverseFlow `json:"traces,omitempty"`
	Dag          *Dag                             `json:"dag,omitempty"`
	Error        string                           `json:"error,omitempty"`

	dag *traceroute.TraceDag
}

// Dag is the serializable form of a [traceroute.TraceDag]
type Dag struct {
	Nodes     []traceroute.DagNode `json:"nodes"`
	Roots     []int                `json:"roots"`
	NodeCount int                  `json:"nodeCount"`
	EdgeCount int                  `json:"edgeCount"`
}

func newResult(fr traceroute.FlowResult) Result {
	res := Result{Flow: fr.Flow, Paths: fr.Paths}
	if fr.Err != nil {
		res.Error = fr.Err.Error()
		return res
	}

	res.Traces = fr.Traces
	if fr.Dag != nil {
		res.dag = fr.Dag
		res.Dag = &Dag{
			Nodes:     fr.Dag.Nodes(),
			Roots:     fr.Dag.Roots(),
			NodeCount: fr.Dag.CountNodes(),
			EdgeCount: fr.Dag.CountEdges(),
		}
	}

	res.Dispositions = map[string]int{}
	if fr.Dag != nil {
		for d, n := range fr.Dag.Dispositions() {
			res.Dispositions[d.String()] = n
		}
		return res
	}
	for i := range fr.Traces {
		res.Dispositions[fr.Traces[i].Trace.Disposition.String()]++
	}
	return res
}

// Failed reports whether the flow could not be explored
func (r *Result) Failed() bool {
	return r.Error != ""
}

// AllTraces yields the traces of the flow regardless of the mode it was
// explored in. A dag is expanded lazily.
func (r *Result) AllTraces() iter.Seq[traceroute.TraceAndReverseFlow] {
	if r.dag != nil {
		return r.dag.Traces()
	}
	return slices.Values(r.Traces)
}

// AddUnmatched records the flow specs that failed to expand, as returned
// joined by [ExpandAll].
func (r *Report) AddUnmatched(err error) {
	if err == nil {
		return
	}
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		r.Unmatched = append(r.Unmatched, e.Error())
	}
	r.Summary.Unmatched = len(r.Unmatched)
}

func summarize(results []Result) Summary {
	s := Summary{Flows: len(results), Dispositions: map[string]int{}}
	for i := range results {
		if results[i].Failed() {
			s.Failed++
			continue
		}
		for d, n := range results[i].Dispositions {
			s.Dispositions[d] += n
			s.Traces += n
		}
	}
	return s
}
