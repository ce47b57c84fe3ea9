// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"fmt"
	"io"
	"net/netip"

	"github.com/telekom/flowtrace/internal/traceroute"
	"gopkg.in/yaml.v3"
)

// DefaultVrf is the vrf of interfaces and routes that do not name one.
const DefaultVrf = "default"

// Snapshot is the computed data plane of a network as read from a
// snapshot document.
type Snapshot struct {
	// Nodes are the devices of the network.
	Nodes []Node `yaml:"nodes" json:"nodes"`
	// Edges are the layer 3 adjacencies between interfaces. Every edge is
	// bidirectional.
	Edges []Edge `yaml:"edges" json:"edges,omitempty"`
	// ForwardingAnalysis overrides the disposition of packets no neighbor
	// accepts.
	ForwardingAnalysis []ForwardingAnalysis `yaml:"forwardingAnalysis" json:"forwardingAnalysis,omitempty"`
	// Sessions are the firewall sessions established before tracing.
	Sessions []traceroute.FirewallSessionInfo `yaml:"sessions" json:"sessions,omitempty"`
}

// Node is a single device.
type Node struct {
	Hostname string `yaml:"hostname" json:"hostname"`
	// Vrfs are the vrfs of the node. A node without vrfs has the
	// [DefaultVrf] only.
	Vrfs            []Vrf            `yaml:"vrfs" json:"vrfs,omitempty"`
	Interfaces      []Interface      `yaml:"interfaces" json:"interfaces"`
	Acls            []Acl            `yaml:"acls" json:"acls,omitempty"`
	Transformations []Transformation `yaml:"transformations" json:"transformations,omitempty"`
	Routes          []Route          `yaml:"routes" json:"routes,omitempty"`
}

type Vrf struct {
	Name            string              `yaml:"name" json:"name"`
	FirewallSession *VrfFirewallSession `yaml:"firewallSession" json:"firewallSession,omitempty"`
}

// VrfFirewallSession configures the sessions of traffic accepted in a vrf.
type VrfFirewallSession struct {
	// FibLookup routes return traffic instead of sending it back out of
	// the interface the original traffic was received on.
	FibLookup bool `yaml:"fibLookup" json:"fibLookup"`
}

type Interface struct {
	Name string `yaml:"name" json:"name"`
	Vrf  string `yaml:"vrf" json:"vrf,omitempty"`
	// Addresses are the interface addresses in prefix notation. The
	// address is owned by the node, the prefix is the connected subnet.
	Addresses []netip.Prefix `yaml:"addresses" json:"addresses,omitempty"`
	// ProxyArp are the prefixes the interface answers ARP for on behalf
	// of other hosts.
	ProxyArp []netip.Prefix `yaml:"proxyArp" json:"proxyArp,omitempty"`
	// External marks an interface facing hosts outside the modeled network.
	External bool `yaml:"external" json:"external,omitempty"`

	IncomingFilter                  string `yaml:"incomingFilter" json:"incomingFilter,omitempty"`
	OutgoingFilter                  string `yaml:"outgoingFilter" json:"outgoingFilter,omitempty"`
	PreTransformationOutgoingFilter string `yaml:"preTransformationOutgoingFilter" json:"preTransformationOutgoingFilter,omitempty"`
	IncomingTransformation          string `yaml:"incomingTransformation" json:"incomingTransformation,omitempty"`
	OutgoingTransformation          string `yaml:"outgoingTransformation" json:"outgoingTransformation,omitempty"`

	// PostTransformationIncomingFilter is applied after the incoming
	// transformation.
	PostTransformationIncomingFilter string `yaml:"postTransformationIncomingFilter" json:"postTransformationIncomingFilter,omitempty"`
	// OriginalFlowOutgoingFilter is applied on egress to the flow as it was
	// received by the node, before any transformation.
	OriginalFlowOutgoingFilter string `yaml:"originalFlowOutgoingFilter" json:"originalFlowOutgoingFilter,omitempty"`

	FirewallSession *InterfaceFirewallSession `yaml:"firewallSession" json:"firewallSession,omitempty"`
}

// InterfaceFirewallSession configures the sessions a stateful firewall sets
// up for traffic leaving the interface.
type InterfaceFirewallSession struct {
	Action            traceroute.SessionActionKind `yaml:"action" json:"action"`
	SessionInterfaces []string                     `yaml:"sessionInterfaces" json:"sessionInterfaces,omitempty"`
	SourceInterfaces  []string                     `yaml:"sourceInterfaces" json:"sourceInterfaces,omitempty"`
	IncomingAcl       string                       `yaml:"incomingAcl" json:"incomingAcl,omitempty"`
	OutgoingAcl       string                       `yaml:"outgoingAcl" json:"outgoingAcl,omitempty"`
}

// Acl is an ordered access list. The first line whose match condition
// holds decides. Flows matching no line are denied.
type Acl struct {
	Name  string    `yaml:"name" json:"name"`
	Lines []AclLine `yaml:"lines" json:"lines"`
}

type LineAction string

const (
	Permit LineAction = "permit"
	Deny   LineAction = "deny"
)

type AclLine struct {
	Name   string     `yaml:"name" json:"name"`
	Action LineAction `yaml:"action" json:"action"`
	// Match is a boolean expression over the flow. An empty condition
	// matches every flow.
	Match string `yaml:"match" json:"match,omitempty"`
}

// Transformation rewrites flow headers. The first rule whose match
// condition holds is applied, flows matching no rule pass unchanged.
type Transformation struct {
	Name  string               `yaml:"name" json:"name"`
	Rules []TransformationRule `yaml:"rules" json:"rules"`
}

type TransformationRule struct {
	// Type labels the rewrite in traces, e.g. SOURCE_NAT. Defaults to the
	// name of the transformation.
	Type  string `yaml:"type" json:"type,omitempty"`
	Match string `yaml:"match" json:"match,omitempty"`
	// Set maps the rewritten header fields to their new value.
	Set map[traceroute.FlowField]string `yaml:"set" json:"set"`
}

// Route is a resolved forwarding table entry.
type Route struct {
	Vrf       string       `yaml:"vrf" json:"vrf,omitempty"`
	Prefix    netip.Prefix `yaml:"prefix" json:"prefix"`
	Interface string       `yaml:"interface" json:"interface"`
	// NextHopIP is the next hop of the route, unset for connected routes.
	NextHopIP netip.Addr `yaml:"nextHopIp" json:"nextHopIp,omitzero"`
	// ResolvedNextHopIP is the next hop after recursive resolution.
	// Defaults to NextHopIP.
	ResolvedNextHopIP netip.Addr `yaml:"resolvedNextHopIp" json:"resolvedNextHopIp,omitzero"`
	Protocol          string     `yaml:"protocol" json:"protocol,omitempty"`
}

type Edge struct {
	Node1      string `yaml:"node1" json:"node1"`
	Interface1 string `yaml:"interface1" json:"interface1"`
	Node2      string `yaml:"node2" json:"node2"`
	Interface2 string `yaml:"interface2" json:"interface2"`
}

func (e Edge) String() string {
	return fmt.Sprintf("%s[%s] <-> %s[%s]", e.Node1, e.Interface1, e.Node2, e.Interface2)
}

// ForwardingAnalysis lists, for packets sent out of an interface that no
// neighbor accepts, the destinations of each disposition. Lists are
// consulted in field order.
type ForwardingAnalysis struct {
	Node                string         `yaml:"node" json:"node"`
	Vrf                 string         `yaml:"vrf" json:"vrf,omitempty"`
	Interface           string         `yaml:"interface" json:"interface"`
	DeliveredToSubnet   []netip.Prefix `yaml:"deliveredToSubnet" json:"deliveredToSubnet,omitempty"`
	ExitsNetwork        []netip.Prefix `yaml:"exitsNetwork" json:"exitsNetwork,omitempty"`
	InsufficientInfo    []netip.Prefix `yaml:"insufficientInfo" json:"insufficientInfo,omitempty"`
	NeighborUnreachable []netip.Prefix `yaml:"neighborUnreachable" json:"neighborUnreachable,omitempty"`
}

// Parse decodes a snapshot document. Unknown fields are rejected.
func Parse(r io.Reader) (*Snapshot, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Snapshot
	if err := dec.Decode(&s); err != nil {
		if err == io.EOF {
			return &s, nil
		}
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &s, nil
}
