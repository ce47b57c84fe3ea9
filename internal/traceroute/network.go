// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"net/netip"
	"slices"
)

// NullInterface is the interface name FIB entries use for discard routes.
const NullInterface = "null_interface"

// OriginatingFromDevice stands for the ingress interface of flows that
// originate on the device when matching session source interfaces.
const OriginatingFromDevice = "(originating from device)"

// Network is the read-only data plane a flow is explored against.
type Network interface {
	// Configuration returns the configuration of a node.
	Configuration(node string) (*Configuration, bool)
	// Fib returns the forwarding table of a vrf of a node.
	Fib(node, vrf string) (Fib, bool)
	// ForwardingAnalysis returns the ARP and disposition predicates.
	ForwardingAnalysis() ForwardingAnalysis
	// Neighbors returns the interfaces at the far end of the edges leaving
	// the given interface, in ascending order.
	Neighbors(node, iface string) []NodeInterfacePair
	// VrfOwners returns the vrfs of node that own ip.
	VrfOwners(ip netip.Addr, node string) []string
	// Filter evaluates an access list of node against flow.
	Filter(node, acl string, flow Flow, srcIface string) (FilterResult, error)
	// Transform applies a named transformation of node to flow.
	Transform(node, transformation string, flow Flow, srcIface string) (TransformationResult, error)
}

// SessionStore holds the firewall sessions established before a traceroute.
//
//go:generate go tool moq -out session_store_moq.go . SessionStore
type SessionStore interface {
	// IncomingSessions returns the sessions matching traffic received on iface.
	IncomingSessions(node, iface string) []*FirewallSessionInfo
	// OriginatingSessions returns the sessions matching traffic originating in vrf.
	OriginatingSessions(node, vrf string) []*FirewallSessionInfo
}

// Fib is the forwarding table of one vrf.
type Fib interface {
	// NextHopInterfaces returns the interfaces the longest matching routes
	// for dst forward out of.
	NextHopInterfaces(dst netip.Addr) []string
	// NextHopInterfacesByRoute returns the entries of the longest matching
	// routes for dst, one per route, interface and resolved next hop.
	NextHopInterfacesByRoute(dst netip.Addr) []FibEntry
}

// FibEntry is one resolved forwarding action. An invalid ResolvedNextHopIP
// means the destination is on a connected subnet of Interface.
type FibEntry struct {
	Interface         string
	ResolvedNextHopIP netip.Addr
	Route             RouteInfo
}

// ForwardingAnalysis answers what happens to a packet sent out of an
// interface towards an IP.
type ForwardingAnalysis interface {
	// ArpReplies reports whether iface of node answers ARP requests for ip.
	ArpReplies(node, iface string, ip netip.Addr) bool
	NeighborUnreachableOrExitsNetwork(node, vrf, iface string, ip netip.Addr) bool
	DeliveredToSubnet(node, vrf, iface string, ip netip.Addr) bool
	ExitsNetwork(node, vrf, iface string, ip netip.Addr) bool
	InsufficientInfo(node, vrf, iface string, ip netip.Addr) bool
	NeighborUnreachable(node, vrf, iface string, ip netip.Addr) bool
}

// Configuration is the traceroute relevant configuration of a node.
type Configuration struct {
	Hostname   string
	Interfaces map[string]*Interface
	Vrfs       map[string]*Vrf
}

// interfacesIn returns the names of the interfaces in vrf, sorted.
func (c *Configuration) interfacesIn(vrf string) []string {
	var names []string
	for name, iface := range c.Interfaces {
		if iface.Vrf == vrf {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Interface is the traceroute relevant configuration of an interface.
// Empty filter and transformation names mean none is applied.
type Interface struct {
	Name      string
	Vrf       string
	Addresses []netip.Prefix

	IncomingFilter                  string
	OutgoingFilter                  string
	PreTransformationOutgoingFilter string
	IncomingTransformation          string
	OutgoingTransformation          string

	// PostTransformationIncomingFilter is applied after the incoming
	// transformation.
	PostTransformationIncomingFilter string
	// OriginalFlowOutgoingFilter is applied on egress to the flow as it
	// entered the node.
	OriginalFlowOutgoingFilter string

	FirewallSession *FirewallSessionInterfaceInfo
}

// owns reports whether one of the interface addresses is ip.
func (i *Interface) owns(ip netip.Addr) bool {
	return slices.ContainsFunc(i.Addresses, func(p netip.Prefix) bool {
		return p.Addr() == ip
	})
}

// Vrf is the traceroute relevant configuration of a vrf.
type Vrf struct {
	Name            string
	FirewallSession *FirewallSessionVrfInfo
}

// FirewallSessionInterfaceInfo configures the sessions a stateful
// firewall sets up for traffic leaving an interface.
type FirewallSessionInterfaceInfo struct {
	// Action is the action of sessions set up on the interface. Only
	// [SessionForwardOutInterface], [SessionPostNatFibLookup] and
	// [SessionPreNatFibLookup] are valid here.
	Action SessionActionKind
	// SessionInterfaces are the interfaces return traffic is matched on.
	SessionInterfaces []string
	// SourceInterfaces restricts session setup to flows received on these
	// interfaces. Empty means any.
	SourceInterfaces []string
	IncomingACL      string
	OutgoingACL      string
}

func (f *FirewallSessionInterfaceInfo) canSetUpSessionFrom(iface string) bool {
	return len(f.SourceInterfaces) == 0 || slices.Contains(f.SourceInterfaces, iface)
}

// FirewallSessionVrfInfo configures sessions for traffic accepted in a vrf.
type FirewallSessionVrfInfo struct {
	// FibLookup makes return traffic routed instead of forwarded back out
	// of the interface the original traffic was received on.
	FibLookup bool
}

// FilterResult is the outcome of an access list evaluation.
type FilterResult struct {
	Permitted   bool
	MatchedLine string
}

// TransformationResult is the outcome of applying a transformation.
type TransformationResult struct {
	Flow  Flow
	Steps []Step
}
