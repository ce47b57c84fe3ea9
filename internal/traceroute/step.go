// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"fmt"
	"net/netip"
)

// StepKind identifies what happened to a flow in a [Step].
type StepKind uint8

const (
	StepEnterInterface StepKind = iota + 1
	StepOriginate
	StepFilter
	StepTransformation
	StepRouting
	StepExitInterface
	StepDelivered
	StepArpError
	StepMatchSession
	StepSetupSession
	StepInbound
	StepLoop
)

var stepKindNames = map[StepKind]string{
	StepEnterInterface: "EnterInputInterface",
	StepOriginate:      "Originate",
	StepFilter:         "Filter",
	StepTransformation: "Transformation",
	StepRouting:        "Routing",
	StepExitInterface:  "ExitOutputInterface",
	StepDelivered:      "Delivered",
	StepArpError:       "ArpError",
	StepMatchSession:   "MatchSession",
	StepSetupSession:   "SetupSession",
	StepInbound:        "Inbound",
	StepLoop:           "Loop",
}

func (k StepKind) String() string {
	if n, ok := stepKindNames[k]; ok {
		return n
	}
	return "Unknown"
}

// MarshalText implements [encoding.TextMarshaler].
func (k StepKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// StepAction is the outcome of a [Step].
type StepAction string

const (
	ActionReceived            StepAction = "RECEIVED"
	ActionOriginated          StepAction = "ORIGINATED"
	ActionPermitted           StepAction = "PERMITTED"
	ActionDenied              StepAction = "DENIED"
	ActionTransformed         StepAction = "TRANSFORMED"
	ActionForwarded           StepAction = "FORWARDED"
	ActionNoRoute             StepAction = "NO_ROUTE"
	ActionNullRouted          StepAction = "NULL_ROUTED"
	ActionTransmitted         StepAction = "TRANSMITTED"
	ActionAccepted            StepAction = "ACCEPTED"
	ActionMatchedSession      StepAction = "MATCHED_SESSION"
	ActionSetupSession        StepAction = "SETUP_SESSION"
	ActionLoop                StepAction = "LOOP"
	ActionDeliveredToSubnet   StepAction = "DELIVERED_TO_SUBNET"
	ActionExitsNetwork        StepAction = "EXITS_NETWORK"
	ActionInsufficientInfo    StepAction = "INSUFFICIENT_INFO"
	ActionNeighborUnreachable StepAction = "NEIGHBOR_UNREACHABLE"
)

// FilterType is the pipeline position a filter was applied at.
type FilterType string

const (
	FilterIngress                   FilterType = "INGRESS_FILTER"
	FilterPostTransformationIngress FilterType = "POST_TRANSFORMATION_INGRESS_FILTER"
	FilterEgress                    FilterType = "EGRESS_FILTER"
	FilterEgressOriginalFlow        FilterType = "EGRESS_ORIGINAL_FLOW_FILTER"
	FilterPreTransformationEgress   FilterType = "PRE_TRANSFORMATION_EGRESS_FILTER"
)

// Step is a single action taken on a flow at a node. The concrete type of
// Detail is determined by Kind.
type Step struct {
	Kind   StepKind   `json:"kind"`
	Action StepAction `json:"action"`
	Detail StepDetail `json:"detail,omitempty"`
}

func (s Step) String() string {
	return fmt.Sprintf("%s(%s)", s.Kind, s.Action)
}

// StepDetail carries kind specific information about a [Step].
// It is implemented by the *Detail types of this package only.
type StepDetail interface {
	stepKind() StepKind
}

// EnterInterfaceDetail is the detail of a [StepEnterInterface] step.
type EnterInterfaceDetail struct {
	Interface NodeInterfacePair `json:"interface"`
	Vrf       string            `json:"vrf"`
}

// OriginateDetail is the detail of a [StepOriginate] step.
type OriginateDetail struct {
	Vrf string `json:"vrf"`
}

// FilterDetail is the detail of a [StepFilter] step.
type FilterDetail struct {
	Filter      string     `json:"filter"`
	Type        FilterType `json:"type"`
	MatchedLine string     `json:"matchedLine,omitempty"`
	Flow        Flow       `json:"flow"`
}

// TransformationDetail is the detail of a [StepTransformation] step.
type TransformationDetail struct {
	Type  string     `json:"type"`
	Diffs []FlowDiff `json:"diffs,omitempty"`
}

// RouteInfo describes a route that contributed to a forwarding decision.
type RouteInfo struct {
	Network   netip.Prefix `json:"network"`
	Protocol  string       `json:"protocol,omitempty"`
	NextHopIP netip.Addr   `json:"nextHopIp,omitzero"`
}

// RoutingDetail is the detail of a [StepRouting] step.
type RoutingDetail struct {
	Vrf               string      `json:"vrf"`
	Routes            []RouteInfo `json:"routes,omitempty"`
	OutputInterface   string      `json:"outputInterface,omitempty"`
	ResolvedNextHopIP netip.Addr  `json:"resolvedNextHopIp,omitzero"`
}

// ExitInterfaceDetail is the detail of a [StepExitInterface] step.
// TransformedFlow is set when the flow leaving the hop differs from the
// flow that entered it.
type ExitInterfaceDetail struct {
	Interface       NodeInterfacePair `json:"interface"`
	TransformedFlow *Flow             `json:"transformedFlow,omitempty"`
}

// DeliveredDetail is the detail of a [StepDelivered] step.
type DeliveredDetail struct {
	Interface         NodeInterfacePair `json:"interface"`
	ResolvedNextHopIP netip.Addr        `json:"resolvedNextHopIp"`
}

// ArpErrorDetail is the detail of a [StepArpError] step.
type ArpErrorDetail struct {
	Interface         NodeInterfacePair `json:"interface"`
	ResolvedNextHopIP netip.Addr        `json:"resolvedNextHopIp"`
}

// SessionDetail is the detail of [StepMatchSession] and [StepSetupSession] steps.
type SessionDetail struct {
	Scope          SessionScope     `json:"scope"`
	Action         SessionAction    `json:"action"`
	MatchCriteria  SessionMatchExpr `json:"matchCriteria"`
	Transformation []FlowDiff       `json:"transformation,omitempty"`
}

// InboundDetail is the detail of a [StepInbound] step.
type InboundDetail struct {
	Interface string `json:"interface"`
}

func (EnterInterfaceDetail) stepKind() StepKind { return StepEnterInterface }
func (OriginateDetail) stepKind() StepKind      { return StepOriginate }
func (FilterDetail) stepKind() StepKind         { return StepFilter }
func (TransformationDetail) stepKind() StepKind { return StepTransformation }
func (RoutingDetail) stepKind() StepKind        { return StepRouting }
func (ExitInterfaceDetail) stepKind() StepKind  { return StepExitInterface }
func (DeliveredDetail) stepKind() StepKind      { return StepDelivered }
func (ArpErrorDetail) stepKind() StepKind       { return StepArpError }
func (SessionDetail) stepKind() StepKind        { return StepMatchSession }
func (InboundDetail) stepKind() StepKind        { return StepInbound }

// loopStep is the terminal step of a hop whose forwarding context was
// already visited on the same path.
var loopStep = Step{Kind: StepLoop, Action: ActionLoop}

func enterInterfaceStep(node, iface, vrf string) Step {
	return Step{
		Kind:   StepEnterInterface,
		Action: ActionReceived,
		Detail: EnterInterfaceDetail{Interface: NodeInterfacePair{Node: node, Interface: iface}, Vrf: vrf},
	}
}

func originateStep(vrf string) Step {
	return Step{Kind: StepOriginate, Action: ActionOriginated, Detail: OriginateDetail{Vrf: vrf}}
}

func exitInterfaceStep(node, iface string, original, current Flow) Step {
	d := ExitInterfaceDetail{Interface: NodeInterfacePair{Node: node, Interface: iface}}
	if original != current {
		d.TransformedFlow = &current
	}
	return Step{Kind: StepExitInterface, Action: ActionTransmitted, Detail: d}
}

// arpFailureStep builds the terminal step of a hop whose packet could not
// be handed to a neighbor. Successful dispositions are delivered, the rest
// are ARP errors.
func arpFailureStep(node, iface string, nextHop netip.Addr, d Disposition) Step {
	out := NodeInterfacePair{Node: node, Interface: iface}
	switch d {
	case DispositionDeliveredToSubnet, DispositionExitsNetwork:
		return Step{Kind: StepDelivered, Action: d.stepAction(), Detail: DeliveredDetail{Interface: out, ResolvedNextHopIP: nextHop}}
	default:
		return Step{Kind: StepArpError, Action: d.stepAction(), Detail: ArpErrorDetail{Interface: out, ResolvedNextHopIP: nextHop}}
	}
}
