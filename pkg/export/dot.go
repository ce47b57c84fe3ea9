// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/awalterschulze/gographviz"
	"github.com/telekom/flowtrace/internal/traceroute"
	"github.com/telekom/flowtrace/pkg/reachability"
)

const graphName = "flowtrace"

// dotWriter renders every explored flow as a cluster of hop nodes. Shared
// sub-paths of a DAG are drawn once; traces of direct mode are drawn as
// separate chains.
type dotWriter struct{}

func (*dotWriter) Write(w io.Writer, r *reachability.Report) error {
	g := gographviz.NewGraph()
	if err := g.SetName(graphName); err != nil {
		return err
	}
	if err := g.SetDir(true); err != nil {
		return err
	}
	if err := g.AddAttr(graphName, "rankdir", "LR"); err != nil {
		return err
	}

	for i := range r.Results {
		res := &r.Results[i]
		if res.Failed() {
			continue
		}
		cluster := fmt.Sprintf("cluster_%d", i)
		if err := g.AddSubGraph(graphName, cluster, map[string]string{"label": quote(res.Flow.String())}); err != nil {
			return err
		}

		var err error
		if res.Dag != nil {
			err = addDag(g, cluster, i, res.Dag)
		} else {
			err = addTraces(g, cluster, i, res.Traces)
		}
		if err != nil {
			return fmt.Errorf("failed to render flow %s: %w", res.Flow, err)
		}
	}

	_, err := io.WriteString(w, g.String())
	return err
}

func addDag(g *gographviz.Graph, cluster string, flow int, dag *reachability.Dag) error {
	name := func(id int) string { return fmt.Sprintf("f%d_n%d", flow, id) }
	for id, n := range dag.Nodes {
		if err := g.AddNode(cluster, name(id), hopAttrs(n.Hop, n.Disposition)); err != nil {
			return err
		}
	}
	for id, n := range dag.Nodes {
		for _, succ := range n.Successors {
			if err := g.AddEdge(name(id), name(succ), true, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func addTraces(g *gographviz.Graph, cluster string, flow int, traces []traceroute.TraceAndReverseFlow) error {
	for t, tr := range traces {
		prev := ""
		for h, hop := range tr.Trace.Hops {
			var d traceroute.Disposition
			if h == len(tr.Trace.Hops)-1 {
				d = tr.Trace.Disposition
			}
			name := fmt.Sprintf("f%d_t%d_h%d", flow, t, h)
			if err := g.AddNode(cluster, name, hopAttrs(hop, d)); err != nil {
				return err
			}
			if prev != "" {
				if err := g.AddEdge(prev, name, true, nil); err != nil {
					return err
				}
			}
			prev = name
		}
	}
	return nil
}

// hopAttrs labels a hop with its node and steps. Terminal hops carry
// their disposition.
func hopAttrs(h traceroute.Hop, d traceroute.Disposition) map[string]string {
	lines := []string{h.Node}
	for _, s := range h.Steps {
		lines = append(lines, s.String())
	}
	attrs := map[string]string{"shape": "box"}
	if d != 0 {
		lines = append(lines, d.String())
		attrs["peripheries"] = "2"
		attrs["color"] = "red"
		if d.IsSuccessful() {
			attrs["color"] = "darkgreen"
		}
	}
	attrs["label"] = quote(strings.Join(lines, "\n"))
	return attrs
}

func quote(s string) string {
	return strconv.Quote(s)
}
