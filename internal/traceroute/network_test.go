// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"net/netip"
	"slices"
	"testing"
)

const defaultVrf = "default"

// testNetwork is an in-memory [Network] assembled by the tests.
type testNetwork struct {
	configs map[string]*Configuration
	fibs    map[string]map[string]*testFib
	edges   map[NodeInterfacePair][]NodeInterfacePair
	acls    map[string]map[string]func(Flow) bool
	nats    map[string]map[string]func(Flow) Flow
	fa      *testForwardingAnalysis
}

func newTestNetwork() *testNetwork {
	n := &testNetwork{
		configs: map[string]*Configuration{},
		fibs:    map[string]map[string]*testFib{},
		edges:   map[NodeInterfacePair][]NodeInterfacePair{},
		acls:    map[string]map[string]func(Flow) bool{},
		nats:    map[string]map[string]func(Flow) Flow{},
	}
	n.fa = &testForwardingAnalysis{
		edges:        n.edges,
		silent:       map[NodeInterfacePair]bool{},
		dispositions: map[NodeInterfacePair]Disposition{},
	}
	return n
}

// iface adds an interface in the default vrf, creating the node if needed.
func (n *testNetwork) iface(node, name string, addrs ...string) *Interface {
	cfg, ok := n.configs[node]
	if !ok {
		cfg = &Configuration{
			Hostname:   node,
			Interfaces: map[string]*Interface{},
			Vrfs:       map[string]*Vrf{defaultVrf: {Name: defaultVrf}},
		}
		n.configs[node] = cfg
		n.fibs[node] = map[string]*testFib{defaultVrf: {}}
	}
	i := &Interface{Name: name, Vrf: defaultVrf}
	for _, a := range addrs {
		i.Addresses = append(i.Addresses, netip.MustParsePrefix(a))
	}
	cfg.Interfaces[name] = i
	return i
}

// route adds a route of the default vrf. An empty nextHop is a connected
// route.
func (n *testNetwork) route(node, prefix, iface, nextHop string) {
	e := FibEntry{Interface: iface, Route: RouteInfo{Network: netip.MustParsePrefix(prefix), Protocol: "static"}}
	if nextHop != "" {
		e.ResolvedNextHopIP = netip.MustParseAddr(nextHop)
		e.Route.NextHopIP = e.ResolvedNextHopIP
	} else {
		e.Route.Protocol = "connected"
	}
	fib := n.fibs[node][defaultVrf]
	fib.entries = append(fib.entries, e)
}

// link connects two interfaces in both directions.
func (n *testNetwork) link(node1, iface1, node2, iface2 string) {
	a := NodeInterfacePair{Node: node1, Interface: iface1}
	b := NodeInterfacePair{Node: node2, Interface: iface2}
	n.edges[a] = append(n.edges[a], b)
	n.edges[b] = append(n.edges[b], a)
}

// acl registers an access list permitting the flows permit returns true for.
func (n *testNetwork) acl(node, name string, permit func(Flow) bool) {
	if n.acls[node] == nil {
		n.acls[node] = map[string]func(Flow) bool{}
	}
	n.acls[node][name] = permit
}

func (n *testNetwork) nat(node, name string, fn func(Flow) Flow) {
	if n.nats[node] == nil {
		n.nats[node] = map[string]func(Flow) Flow{}
	}
	n.nats[node][name] = fn
}

// disposition makes packets sent out of node[iface] without a replying
// neighbor end with d.
func (n *testNetwork) disposition(node, iface string, d Disposition) {
	n.fa.dispositions[NodeInterfacePair{Node: node, Interface: iface}] = d
}

func (n *testNetwork) Configuration(node string) (*Configuration, bool) {
	cfg, ok := n.configs[node]
	return cfg, ok
}

func (n *testNetwork) Fib(node, vrf string) (Fib, bool) {
	fib, ok := n.fibs[node][vrf]
	return fib, ok
}

func (n *testNetwork) ForwardingAnalysis() ForwardingAnalysis {
	return n.fa
}

func (n *testNetwork) Neighbors(node, iface string) []NodeInterfacePair {
	neighbors := slices.Clone(n.edges[NodeInterfacePair{Node: node, Interface: iface}])
	slices.SortFunc(neighbors, NodeInterfacePair.Compare)
	return neighbors
}

func (n *testNetwork) VrfOwners(ip netip.Addr, node string) []string {
	var vrfs []string
	for _, i := range n.configs[node].Interfaces {
		if i.owns(ip) && !slices.Contains(vrfs, i.Vrf) {
			vrfs = append(vrfs, i.Vrf)
		}
	}
	return vrfs
}

func (n *testNetwork) Filter(node, acl string, flow Flow, _ string) (FilterResult, error) {
	if n.acls[node][acl](flow) {
		return FilterResult{Permitted: true, MatchedLine: "permit"}, nil
	}
	return FilterResult{MatchedLine: "deny"}, nil
}

func (n *testNetwork) Transform(node, name string, flow Flow, _ string) (TransformationResult, error) {
	out := n.nats[node][name](flow)
	res := TransformationResult{Flow: out}
	if out != flow {
		res.Steps = []Step{{
			Kind:   StepTransformation,
			Action: ActionTransformed,
			Detail: TransformationDetail{Type: name, Diffs: FlowDiffs(flow, out)},
		}}
	}
	return res, nil
}

type testFib struct {
	entries []FibEntry
}

func (f *testFib) longestMatch(dst netip.Addr) []FibEntry {
	best := -1
	var match []FibEntry
	for _, e := range f.entries {
		if !e.Route.Network.Contains(dst) {
			continue
		}
		switch bits := e.Route.Network.Bits(); {
		case bits > best:
			best, match = bits, []FibEntry{e}
		case bits == best:
			match = append(match, e)
		}
	}
	return match
}

func (f *testFib) NextHopInterfaces(dst netip.Addr) []string {
	var ifaces []string
	for _, e := range f.longestMatch(dst) {
		ifaces = append(ifaces, e.Interface)
	}
	return ifaces
}

func (f *testFib) NextHopInterfacesByRoute(dst netip.Addr) []FibEntry {
	return f.longestMatch(dst)
}

// testForwardingAnalysis answers ARP for every linked interface that is
// not silent. Unlinked interfaces with a disposition are known upfront to
// have no replying neighbor.
type testForwardingAnalysis struct {
	edges        map[NodeInterfacePair][]NodeInterfacePair
	silent       map[NodeInterfacePair]bool
	dispositions map[NodeInterfacePair]Disposition
}

func (a *testForwardingAnalysis) ArpReplies(node, iface string, _ netip.Addr) bool {
	return !a.silent[NodeInterfacePair{Node: node, Interface: iface}]
}

func (a *testForwardingAnalysis) is(node, iface string, d Disposition) bool {
	return a.dispositions[NodeInterfacePair{Node: node, Interface: iface}] == d
}

func (a *testForwardingAnalysis) NeighborUnreachableOrExitsNetwork(node, _, iface string, _ netip.Addr) bool {
	p := NodeInterfacePair{Node: node, Interface: iface}
	return a.dispositions[p] != 0 && len(a.edges[p]) == 0
}

func (a *testForwardingAnalysis) DeliveredToSubnet(node, _, iface string, _ netip.Addr) bool {
	return a.is(node, iface, DispositionDeliveredToSubnet)
}

func (a *testForwardingAnalysis) ExitsNetwork(node, _, iface string, _ netip.Addr) bool {
	return a.is(node, iface, DispositionExitsNetwork)
}

func (a *testForwardingAnalysis) InsufficientInfo(node, _, iface string, _ netip.Addr) bool {
	return a.is(node, iface, DispositionInsufficientInfo)
}

func (a *testForwardingAnalysis) NeighborUnreachable(node, _, iface string, _ netip.Addr) bool {
	return a.is(node, iface, DispositionNeighborUnreachable)
}

// tcpFlow is a TCP flow received on node[iface].
func tcpFlow(node, iface, src, dst string) Flow {
	return Flow{
		IngressNode:      node,
		IngressInterface: iface,
		SrcIP:            netip.MustParseAddr(src),
		DstIP:            netip.MustParseAddr(dst),
		IPProtocol:       IPProtocolTCP,
		SrcPort:          49152,
		DstPort:          443,
	}
}

// ecmpNetwork has node a forwarding 10.0.0.0/24 over two equal cost
// routes to b and c, which both own 10.0.0.5.
func ecmpNetwork() *testNetwork {
	n := newTestNetwork()
	n.iface("a", "in0", "192.168.0.254/24")
	n.iface("a", "eth0", "1.0.0.1/30")
	n.iface("a", "eth1", "1.0.1.1/30")
	n.iface("b", "e0", "1.0.0.2/30")
	n.iface("b", "lo", "10.0.0.5/32")
	n.iface("c", "e0", "1.0.1.2/30")
	n.iface("c", "lo", "10.0.0.5/32")
	n.route("a", "10.0.0.0/24", "eth0", "1.0.0.2")
	n.route("a", "10.0.0.0/24", "eth1", "1.0.1.2")
	n.link("a", "eth0", "b", "e0")
	n.link("a", "eth1", "c", "e0")
	return n
}

// stepKinds lists the step kinds of every hop of a trace.
func stepKinds(t *testing.T, tr Trace) [][]StepKind {
	t.Helper()
	var kinds [][]StepKind
	for _, h := range tr.Hops {
		var hk []StepKind
		for _, s := range h.Steps {
			hk = append(hk, s.Kind)
		}
		kinds = append(kinds, hk)
	}
	return kinds
}

func hopNodes(tr Trace) []string {
	var nodes []string
	for _, h := range tr.Hops {
		nodes = append(nodes, h.Node)
	}
	return nodes
}
