// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/telekom/flowtrace/pkg/reachability"
)

// textWriter renders a report for humans. DAGs are expanded into their
// traces.
type textWriter struct{}

func (*textWriter) Write(w io.Writer, r *reachability.Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s (%s): %d flows, %d traces, %d failed\n", r.ID, r.Mode, r.Summary.Flows, r.Summary.Traces, r.Summary.Failed)
	for _, d := range slices.Sorted(maps.Keys(r.Summary.Dispositions)) {
		fmt.Fprintf(&b, "  %-22s %d\n", d, r.Summary.Dispositions[d])
	}
	for _, u := range r.Unmatched {
		fmt.Fprintf(&b, "  unmatched: %s\n", u)
	}

	for i := range r.Results {
		res := &r.Results[i]
		fmt.Fprintf(&b, "\nflow %s\n", res.Flow)
		if res.Failed() {
			fmt.Fprintf(&b, "  error: %s\n", res.Error)
			continue
		}

		n := 0
		for t := range res.AllTraces() {
			n++
			fmt.Fprintf(&b, "  trace %d: %s\n", n, t.Trace.Disposition)
			for _, h := range t.Trace.Hops {
				fmt.Fprintf(&b, "    %s\n", h)
			}
			if t.ReturnFlow != nil {
				fmt.Fprintf(&b, "    return flow: %s\n", t.ReturnFlow)
			}
			for _, s := range t.NewSessions {
				fmt.Fprintf(&b, "    new session on %s: %s\n", s.Node, s.Action.Kind)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
