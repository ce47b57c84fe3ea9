// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"fmt"
	"net/netip"
	"slices"
	"strconv"
)

// SessionActionKind is what a firewall does with traffic matching a session.
type SessionActionKind string

const (
	// SessionAccept accepts matching traffic in the vrf.
	SessionAccept SessionActionKind = "ACCEPT"
	// SessionPostNatFibLookup transforms matching traffic, then routes it.
	SessionPostNatFibLookup SessionActionKind = "POST_NAT_FIB_LOOKUP"
	// SessionPreNatFibLookup routes matching traffic, then transforms it.
	SessionPreNatFibLookup SessionActionKind = "PRE_NAT_FIB_LOOKUP"
	// SessionForwardOutInterface sends matching traffic out of a fixed
	// interface to a fixed neighbor without routing.
	SessionForwardOutInterface SessionActionKind = "FORWARD_OUT_IFACE"
)

// SessionAction is the action of an established session. OutgoingInterface
// and NextHop are only meaningful for [SessionForwardOutInterface]; a nil
// NextHop means the traffic leaves the network.
type SessionAction struct {
	Kind              SessionActionKind  `json:"kind" yaml:"kind"`
	OutgoingInterface string             `json:"outgoingInterface,omitempty" yaml:"outgoingInterface,omitempty"`
	NextHop           *NodeInterfacePair `json:"nextHop,omitempty" yaml:"nextHop,omitempty"`
}

// Validate checks that the fields required by the action kind are present.
func (a SessionAction) Validate() error {
	switch a.Kind {
	case SessionAccept, SessionPostNatFibLookup, SessionPreNatFibLookup:
		return nil
	case SessionForwardOutInterface:
		if a.OutgoingInterface == "" {
			return fmt.Errorf("session action %s requires an outgoing interface", a.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown session action %q", a.Kind)
	}
}

// SessionScope restricts where a session matches: either on a set of
// incoming interfaces, or for traffic originating from a vrf.
type SessionScope struct {
	IncomingInterfaces []string `json:"incomingInterfaces,omitempty" yaml:"incomingInterfaces,omitempty"`
	OriginatingVrf     string   `json:"originatingVrf,omitempty" yaml:"originatingVrf,omitempty"`
}

// AppliesToInterface reports whether the scope covers traffic entering iface.
func (s SessionScope) AppliesToInterface(iface string) bool {
	return slices.Contains(s.IncomingInterfaces, iface)
}

// SessionMatchExpr matches the return traffic of a session.
type SessionMatchExpr struct {
	IPProtocol IPProtocol `json:"ipProtocol" yaml:"ipProtocol"`
	SrcIP      netip.Addr `json:"srcIp" yaml:"srcIp"`
	DstIP      netip.Addr `json:"dstIp" yaml:"dstIp"`
	SrcPort    uint16     `json:"srcPort,omitempty" yaml:"srcPort,omitempty"`
	DstPort    uint16     `json:"dstPort,omitempty" yaml:"dstPort,omitempty"`
}

// Matches reports whether f carries the 5-tuple of the expression.
// Ports are ignored for protocols without ports.
func (m SessionMatchExpr) Matches(f Flow) bool {
	if m.IPProtocol != f.IPProtocol || m.SrcIP != f.SrcIP || m.DstIP != f.DstIP {
		return false
	}
	if !m.IPProtocol.hasPorts() {
		return true
	}
	return m.SrcPort == f.SrcPort && m.DstPort == f.DstPort
}

// matchReturnFlow builds the expression matching replies to f.
func matchReturnFlow(f Flow) SessionMatchExpr {
	return SessionMatchExpr{
		IPProtocol: f.IPProtocol,
		SrcIP:      f.DstIP,
		DstIP:      f.SrcIP,
		SrcPort:    f.DstPort,
		DstPort:    f.SrcPort,
	}
}

// FirewallSessionInfo is a firewall session, either established before the
// traceroute or set up by the flow being traced.
type FirewallSessionInfo struct {
	Node           string           `json:"node" yaml:"node"`
	Action         SessionAction    `json:"action" yaml:"action"`
	Scope          SessionScope     `json:"scope" yaml:"scope"`
	Match          SessionMatchExpr `json:"match" yaml:"match"`
	Transformation []FlowDiff       `json:"transformation,omitempty" yaml:"transformation,omitempty"`
}

func (s *FirewallSessionInfo) detail() SessionDetail {
	return SessionDetail{
		Scope:          s.Scope,
		Action:         s.Action,
		MatchCriteria:  s.Match,
		Transformation: s.Transformation,
	}
}

// FlowField names a rewritable header field of a [Flow].
type FlowField string

const (
	FieldSrcIP   FlowField = "srcIp"
	FieldDstIP   FlowField = "dstIp"
	FieldSrcPort FlowField = "srcPort"
	FieldDstPort FlowField = "dstPort"
)

// FlowDiff is a single header rewrite.
type FlowDiff struct {
	Field    FlowField `json:"field" yaml:"field"`
	OldValue string    `json:"oldValue" yaml:"oldValue"`
	NewValue string    `json:"newValue" yaml:"newValue"`
}

// FlowDiffs lists the header fields that differ between before and after.
func FlowDiffs(before, after Flow) []FlowDiff {
	var diffs []FlowDiff
	if before.SrcIP != after.SrcIP {
		diffs = append(diffs, FlowDiff{FieldSrcIP, before.SrcIP.String(), after.SrcIP.String()})
	}
	if before.DstIP != after.DstIP {
		diffs = append(diffs, FlowDiff{FieldDstIP, before.DstIP.String(), after.DstIP.String()})
	}
	if before.SrcPort != after.SrcPort {
		diffs = append(diffs, FlowDiff{FieldSrcPort, strconv.Itoa(int(before.SrcPort)), strconv.Itoa(int(after.SrcPort))})
	}
	if before.DstPort != after.DstPort {
		diffs = append(diffs, FlowDiff{FieldDstPort, strconv.Itoa(int(before.DstPort)), strconv.Itoa(int(after.DstPort))})
	}
	return diffs
}

// returnFlowDiffs lists the rewrites that undo, on the return flow, the
// transformations applied between original and current.
func returnFlowDiffs(original, current Flow) []FlowDiff {
	return FlowDiffs(
		Flow{SrcIP: current.DstIP, DstIP: current.SrcIP, SrcPort: current.DstPort, DstPort: current.SrcPort},
		Flow{SrcIP: original.DstIP, DstIP: original.SrcIP, SrcPort: original.DstPort, DstPort: original.SrcPort},
	)
}

// ApplyDiffs returns f with every diff applied.
func ApplyDiffs(f Flow, diffs []FlowDiff) (Flow, error) {
	for _, d := range diffs {
		switch d.Field {
		case FieldSrcIP, FieldDstIP:
			ip, err := netip.ParseAddr(d.NewValue)
			if err != nil {
				return f, fmt.Errorf("invalid value for %s: %w", d.Field, err)
			}
			if d.Field == FieldSrcIP {
				f.SrcIP = ip
			} else {
				f.DstIP = ip
			}
		case FieldSrcPort, FieldDstPort:
			p, err := strconv.ParseUint(d.NewValue, 10, 16)
			if err != nil {
				return f, fmt.Errorf("invalid value for %s: %w", d.Field, err)
			}
			if d.Field == FieldSrcPort {
				f.SrcPort = uint16(p)
			} else {
				f.DstPort = uint16(p)
			}
		default:
			return f, fmt.Errorf("unknown flow field %q", d.Field)
		}
	}
	return f, nil
}
