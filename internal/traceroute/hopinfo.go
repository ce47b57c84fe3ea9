// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

// HopInfo is what the explorer hands to a [Recorder] for every hop of a path.
//
// A HopInfo carries at most one of LoopDetected and Visited. Visited is the
// breadcrumb the hop pushed before forwarding, LoopDetected is the
// breadcrumb found already on the path when the hop looped. ReturnFlow is
// set only together with a successful Disposition.
type HopInfo struct {
	Hop         Hop
	InitialFlow Flow
	// Disposition is zero for hops that forwarded the flow to a neighbor.
	Disposition  Disposition
	ReturnFlow   *Flow
	Session      *FirewallSessionInfo
	LoopDetected *Breadcrumb
	Visited      *Breadcrumb
}

func forwardedHop(hop Hop, initial Flow, visited *Breadcrumb, session *FirewallSessionInfo) *HopInfo {
	return &HopInfo{Hop: hop, InitialFlow: initial, Session: session, Visited: visited}
}

func successHop(hop Hop, initial Flow, d Disposition, ret Flow, session *FirewallSessionInfo, visited *Breadcrumb) *HopInfo {
	return &HopInfo{Hop: hop, InitialFlow: initial, Disposition: d, ReturnFlow: &ret, Session: session, Visited: visited}
}

func failureHop(hop Hop, initial Flow, d Disposition, session *FirewallSessionInfo, visited *Breadcrumb) *HopInfo {
	return &HopInfo{Hop: hop, InitialFlow: initial, Disposition: d, Session: session, Visited: visited}
}

func loopHop(hop Hop, initial Flow, loop Breadcrumb, session *FirewallSessionInfo) *HopInfo {
	return &HopInfo{Hop: hop, InitialFlow: initial, Disposition: DispositionLoop, Session: session, LoopDetected: &loop}
}

// IsTerminal reports whether the hop ends the trace.
func (h *HopInfo) IsTerminal() bool {
	return h.Disposition != 0
}

// traceFromHops assembles the trace described by a complete hop sequence.
func traceFromHops(hops []*HopInfo) TraceAndReverseFlow {
	last := hops[len(hops)-1]
	t := TraceAndReverseFlow{
		Trace: Trace{
			Disposition: last.Disposition,
			Hops:        make([]Hop, 0, len(hops)),
		},
		ReturnFlow: last.ReturnFlow,
	}
	for _, h := range hops {
		t.Trace.Hops = append(t.Trace.Hops, h.Hop)
		if h.Session != nil {
			t.NewSessions = append(t.NewSessions, *h.Session)
		}
	}
	return t
}
