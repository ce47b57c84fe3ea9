// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"iter"
	"maps"
	"slices"
)

// TraceDag is the compressed set of traces of one flow. Traces sharing
// a sub-path share its nodes.
//
// A TraceDag is immutable once built and may be read concurrently.
type TraceDag struct {
	nodes []DagNode
	roots []int
	// sizes holds the number of traces through each node, counted from
	// that node on
	sizes        []int
	size         int
	dispositions map[Disposition]int
}

// DagNode is one hop of a [TraceDag]. Successors are indices into the node
// table of the DAG and are empty exactly for terminal hops.
type DagNode struct {
	Hop         Hop                  `json:"hop"`
	Session     *FirewallSessionInfo `json:"session,omitempty"`
	Disposition Disposition          `json:"disposition,omitempty"`
	ReturnFlow  *Flow                `json:"returnFlow,omitempty"`
	Successors  []int                `json:"successors,omitempty"`
}

// flatten numbers the nodes reachable from roots in depth first order and
// counts the traces and their dispositions bottom up, so no query ever
// expands the DAG.
func flatten(roots []*dagNode) *TraceDag {
	d := &TraceDag{dispositions: map[Disposition]int{}}
	ids := map[*dagNode]int{}
	// counts holds the traces per disposition from each node on
	var counts []map[Disposition]int

	var visit func(n *dagNode) int
	visit = func(n *dagNode) int {
		if id, ok := ids[n]; ok {
			return id
		}
		id := len(d.nodes)
		ids[n] = id
		d.nodes = append(d.nodes, DagNode{
			Hop:         n.info.Hop,
			Session:     n.info.Session,
			Disposition: n.info.Disposition,
			ReturnFlow:  n.info.ReturnFlow,
		})
		d.sizes = append(d.sizes, 0)
		counts = append(counts, nil)

		succ := make([]int, 0, len(n.successors))
		for _, s := range n.successors {
			succ = append(succ, visit(s))
		}
		d.nodes[id].Successors = succ

		if len(succ) == 0 {
			d.sizes[id] = 1
			counts[id] = map[Disposition]int{d.nodes[id].Disposition: 1}
			return id
		}
		counts[id] = map[Disposition]int{}
		for _, s := range succ {
			d.sizes[id] += d.sizes[s]
			for disp, c := range counts[s] {
				counts[id][disp] += c
			}
		}
		return id
	}

	for _, r := range roots {
		id := visit(r)
		d.roots = append(d.roots, id)
		d.size += d.sizes[id]
		for disp, c := range counts[id] {
			d.dispositions[disp] += c
		}
	}
	return d
}

// Nodes returns the node table of the DAG.
func (d *TraceDag) Nodes() []DagNode {
	return d.nodes
}

// Roots returns the ids of the first hops of all traces.
func (d *TraceDag) Roots() []int {
	return d.roots
}

// CountNodes returns the number of nodes.
func (d *TraceDag) CountNodes() int {
	return len(d.nodes)
}

// CountEdges returns the number of edges between nodes.
func (d *TraceDag) CountEdges() int {
	edges := 0
	for _, n := range d.nodes {
		edges += len(n.Successors)
	}
	return edges
}

// Size returns the number of traces the DAG holds.
func (d *TraceDag) Size() int {
	return d.size
}

// Dispositions returns the number of traces per disposition.
func (d *TraceDag) Dispositions() map[Disposition]int {
	return maps.Clone(d.dispositions)
}

// Traces expands the DAG into its traces. Every call starts a new
// expansion.
func (d *TraceDag) Traces() iter.Seq[TraceAndReverseFlow] {
	return func(yield func(TraceAndReverseFlow) bool) {
		var (
			hops     []Hop
			sessions []FirewallSessionInfo
		)

		var walk func(id int) bool
		walk = func(id int) bool {
			n := &d.nodes[id]
			hops = append(hops, n.Hop)
			if n.Session != nil {
				sessions = append(sessions, *n.Session)
			}
			defer func() {
				hops = hops[:len(hops)-1]
				if n.Session != nil {
					sessions = sessions[:len(sessions)-1]
				}
			}()

			if len(n.Successors) == 0 {
				t := TraceAndReverseFlow{
					Trace:      Trace{Disposition: n.Disposition, Hops: slices.Clone(hops)},
					ReturnFlow: n.ReturnFlow,
				}
				if len(sessions) > 0 {
					t.NewSessions = slices.Clone(sessions)
				}
				return yield(t)
			}
			for _, s := range n.Successors {
				if !walk(s) {
					return false
				}
			}
			return true
		}

		for _, r := range d.roots {
			if !walk(r) {
				return
			}
		}
	}
}
