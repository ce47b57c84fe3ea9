// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"

	"github.com/telekom/flowtrace/internal/traceroute"
)

var (
	_ traceroute.Network      = (*Network)(nil)
	_ traceroute.SessionStore = (*Network)(nil)
)

type nodeVrf struct {
	node, vrf string
}

// Network is a validated [Snapshot] ready to be explored. It is read-only
// and safe for concurrent use.
type Network struct {
	nodes           []string
	configs         map[string]*traceroute.Configuration
	interfaces      map[traceroute.NodeInterfacePair]*Interface
	fibs            map[nodeVrf]*fib
	neighbors       map[traceroute.NodeInterfacePair][]traceroute.NodeInterfacePair
	owners          map[string]map[netip.Addr][]string
	acls            map[string]map[string]*acl
	transformations map[string]map[string]*transformation
	forwarding      *forwardingAnalysis

	incoming    map[traceroute.NodeInterfacePair][]*traceroute.FirewallSessionInfo
	originating map[nodeVrf][]*traceroute.FirewallSessionInfo
	sessions    int
}

// New validates the snapshot and indexes it for exploration. All
// inconsistencies are reported at once.
func New(s *Snapshot) (*Network, error) {
	n := &Network{
		configs:         map[string]*traceroute.Configuration{},
		interfaces:      map[traceroute.NodeInterfacePair]*Interface{},
		fibs:            map[nodeVrf]*fib{},
		neighbors:       map[traceroute.NodeInterfacePair][]traceroute.NodeInterfacePair{},
		owners:          map[string]map[netip.Addr][]string{},
		acls:            map[string]map[string]*acl{},
		transformations: map[string]map[string]*transformation{},
		incoming:        map[traceroute.NodeInterfacePair][]*traceroute.FirewallSessionInfo{},
		originating:     map[nodeVrf][]*traceroute.FirewallSessionInfo{},
	}
	n.forwarding = &forwardingAnalysis{network: n, entries: map[faKey]*ForwardingAnalysis{}}

	var errs []error
	for i := range s.Nodes {
		errs = append(errs, n.addNode(&s.Nodes[i])...)
	}
	for _, e := range s.Edges {
		errs = append(errs, n.addEdge(e)...)
	}
	for i := range s.ForwardingAnalysis {
		errs = append(errs, n.addForwardingAnalysis(&s.ForwardingAnalysis[i])...)
	}
	sessions := slices.Clone(s.Sessions)
	for i := range sessions {
		errs = append(errs, n.addSession(&sessions[i])...)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	for p := range n.neighbors {
		slices.SortFunc(n.neighbors[p], traceroute.NodeInterfacePair.Compare)
	}
	slices.Sort(n.nodes)
	return n, nil
}

func (n *Network) addNode(node *Node) []error {
	if node.Hostname == "" {
		return []error{invalidf("node without hostname")}
	}
	if _, ok := n.configs[node.Hostname]; ok {
		return []error{invalidf("duplicate node %q", node.Hostname)}
	}

	cfg := &traceroute.Configuration{
		Hostname:   node.Hostname,
		Interfaces: map[string]*traceroute.Interface{},
		Vrfs:       map[string]*traceroute.Vrf{},
	}
	n.configs[node.Hostname] = cfg
	n.nodes = append(n.nodes, node.Hostname)
	n.owners[node.Hostname] = map[netip.Addr][]string{}

	var errs []error
	vrfs := node.Vrfs
	if len(vrfs) == 0 {
		vrfs = []Vrf{{Name: DefaultVrf}}
	}
	for _, v := range vrfs {
		if _, ok := cfg.Vrfs[v.Name]; ok {
			errs = append(errs, invalidf("duplicate vrf %q on node %q", v.Name, node.Hostname))
			continue
		}
		vrf := &traceroute.Vrf{Name: v.Name}
		if v.FirewallSession != nil {
			vrf.FirewallSession = &traceroute.FirewallSessionVrfInfo{FibLookup: v.FirewallSession.FibLookup}
		}
		cfg.Vrfs[v.Name] = vrf
		n.fibs[nodeVrf{node.Hostname, v.Name}] = newFib()
	}

	n.acls[node.Hostname] = map[string]*acl{}
	for _, a := range node.Acls {
		compiled, err := compileAcl(a)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: node %q: %w", ErrInvalidSnapshot, node.Hostname, err))
			continue
		}
		n.acls[node.Hostname][a.Name] = compiled
	}
	n.transformations[node.Hostname] = map[string]*transformation{}
	for _, t := range node.Transformations {
		compiled, err := compileTransformation(t)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: node %q: %w", ErrInvalidSnapshot, node.Hostname, err))
			continue
		}
		n.transformations[node.Hostname][t.Name] = compiled
	}

	for _, iface := range node.Interfaces {
		errs = append(errs, n.addInterface(cfg, iface)...)
	}
	for _, r := range node.Routes {
		errs = append(errs, n.addRoute(cfg, r)...)
	}
	return errs
}

func (n *Network) addInterface(cfg *traceroute.Configuration, iface Interface) []error {
	node := cfg.Hostname
	if _, ok := cfg.Interfaces[iface.Name]; ok || iface.Name == "" {
		return []error{invalidf("duplicate or empty interface name %q on node %q", iface.Name, node)}
	}
	if iface.Vrf == "" {
		iface.Vrf = DefaultVrf
	}

	var errs []error
	from := fmt.Sprintf("interface %q", iface.Name)
	if _, ok := cfg.Vrfs[iface.Vrf]; !ok {
		errs = append(errs, &ReferenceError{Node: node, Kind: "vrf", Name: iface.Vrf, From: from})
	}
	filters := []string{
		iface.IncomingFilter,
		iface.OutgoingFilter,
		iface.PreTransformationOutgoingFilter,
		iface.PostTransformationIncomingFilter,
		iface.OriginalFlowOutgoingFilter,
	}
	for _, f := range filters {
		if f != "" && n.acls[node][f] == nil {
			errs = append(errs, &ReferenceError{Node: node, Kind: "acl", Name: f, From: from})
		}
	}
	for _, t := range []string{iface.IncomingTransformation, iface.OutgoingTransformation} {
		if t != "" && n.transformations[node][t] == nil {
			errs = append(errs, &ReferenceError{Node: node, Kind: "transformation", Name: t, From: from})
		}
	}

	ti := &traceroute.Interface{
		Name:                             iface.Name,
		Vrf:                              iface.Vrf,
		Addresses:                        iface.Addresses,
		IncomingFilter:                   iface.IncomingFilter,
		OutgoingFilter:                   iface.OutgoingFilter,
		PreTransformationOutgoingFilter:  iface.PreTransformationOutgoingFilter,
		PostTransformationIncomingFilter: iface.PostTransformationIncomingFilter,
		OriginalFlowOutgoingFilter:       iface.OriginalFlowOutgoingFilter,
		IncomingTransformation:           iface.IncomingTransformation,
		OutgoingTransformation:           iface.OutgoingTransformation,
	}
	if fs := iface.FirewallSession; fs != nil {
		switch fs.Action {
		case traceroute.SessionForwardOutInterface, traceroute.SessionPostNatFibLookup, traceroute.SessionPreNatFibLookup:
		default:
			errs = append(errs, invalidf("interface %q of node %q: unsupported firewall session action %q", iface.Name, node, fs.Action))
		}
		for _, a := range []string{fs.IncomingAcl, fs.OutgoingAcl} {
			if a != "" && n.acls[node][a] == nil {
				errs = append(errs, &ReferenceError{Node: node, Kind: "acl", Name: a, From: from + " firewall session"})
			}
		}
		ti.FirewallSession = &traceroute.FirewallSessionInterfaceInfo{
			Action:            fs.Action,
			SessionInterfaces: fs.SessionInterfaces,
			SourceInterfaces:  fs.SourceInterfaces,
			IncomingACL:       fs.IncomingAcl,
			OutgoingACL:       fs.OutgoingAcl,
		}
	}

	cfg.Interfaces[iface.Name] = ti
	n.interfaces[traceroute.NodeInterfacePair{Node: node, Interface: iface.Name}] = &iface
	for _, p := range iface.Addresses {
		vrfs := n.owners[node][p.Addr()]
		if !slices.Contains(vrfs, iface.Vrf) {
			n.owners[node][p.Addr()] = append(vrfs, iface.Vrf)
		}
	}
	return errs
}

func (n *Network) addRoute(cfg *traceroute.Configuration, r Route) []error {
	if r.Vrf == "" {
		r.Vrf = DefaultVrf
	}
	from := fmt.Sprintf("route %s", r.Prefix)
	f, ok := n.fibs[nodeVrf{cfg.Hostname, r.Vrf}]
	if !ok {
		return []error{&ReferenceError{Node: cfg.Hostname, Kind: "vrf", Name: r.Vrf, From: from}}
	}
	if !r.Prefix.IsValid() {
		return []error{invalidf("route without prefix on node %q", cfg.Hostname)}
	}
	if r.Interface != traceroute.NullInterface {
		if _, ok := cfg.Interfaces[r.Interface]; !ok {
			return []error{&ReferenceError{Node: cfg.Hostname, Kind: "interface", Name: r.Interface, From: from}}
		}
	}
	f.add(r)
	return nil
}

func (n *Network) addEdge(e Edge) []error {
	a := traceroute.NodeInterfacePair{Node: e.Node1, Interface: e.Interface1}
	b := traceroute.NodeInterfacePair{Node: e.Node2, Interface: e.Interface2}
	var errs []error
	for _, p := range []traceroute.NodeInterfacePair{a, b} {
		if _, ok := n.interfaces[p]; !ok {
			errs = append(errs, &ReferenceError{Kind: "interface", Name: p.String(), From: "edge " + e.String()})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	if !slices.Contains(n.neighbors[a], b) {
		n.neighbors[a] = append(n.neighbors[a], b)
	}
	if !slices.Contains(n.neighbors[b], a) {
		n.neighbors[b] = append(n.neighbors[b], a)
	}
	return nil
}

func (n *Network) addSession(s *traceroute.FirewallSessionInfo) []error {
	cfg, ok := n.configs[s.Node]
	if !ok {
		return []error{&ReferenceError{Kind: "node", Name: s.Node, From: "firewall session"}}
	}
	var errs []error
	if err := s.Action.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: firewall session of node %q: %w", ErrInvalidSnapshot, s.Node, err))
	}
	if s.Action.Kind == traceroute.SessionForwardOutInterface {
		if _, ok := cfg.Interfaces[s.Action.OutgoingInterface]; !ok {
			errs = append(errs, &ReferenceError{Node: s.Node, Kind: "interface", Name: s.Action.OutgoingInterface, From: "firewall session action"})
		}
	}
	if _, err := traceroute.ApplyDiffs(traceroute.Flow{}, s.Transformation); err != nil {
		errs = append(errs, fmt.Errorf("%w: firewall session of node %q: %w", ErrInvalidSnapshot, s.Node, err))
	}
	for _, iface := range s.Scope.IncomingInterfaces {
		if _, ok := cfg.Interfaces[iface]; !ok {
			errs = append(errs, &ReferenceError{Node: s.Node, Kind: "interface", Name: iface, From: "firewall session scope"})
		}
	}
	if v := s.Scope.OriginatingVrf; v != "" {
		if _, ok := cfg.Vrfs[v]; !ok {
			errs = append(errs, &ReferenceError{Node: s.Node, Kind: "vrf", Name: v, From: "firewall session scope"})
		}
	}
	if len(errs) > 0 {
		return errs
	}

	for _, iface := range s.Scope.IncomingInterfaces {
		p := traceroute.NodeInterfacePair{Node: s.Node, Interface: iface}
		n.incoming[p] = append(n.incoming[p], s)
	}
	if v := s.Scope.OriginatingVrf; v != "" {
		k := nodeVrf{s.Node, v}
		n.originating[k] = append(n.originating[k], s)
	}
	n.sessions++
	return nil
}

// Nodes returns the hostnames of all nodes, sorted.
func (n *Network) Nodes() []string {
	return slices.Clone(n.nodes)
}

// Interfaces returns the interface names of node, sorted.
func (n *Network) Interfaces(node string) []string {
	cfg, ok := n.configs[node]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(cfg.Interfaces))
	for name := range cfg.Interfaces {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Sessions returns the number of established firewall sessions.
func (n *Network) Sessions() int {
	return n.sessions
}

func (n *Network) Configuration(node string) (*traceroute.Configuration, bool) {
	cfg, ok := n.configs[node]
	return cfg, ok
}

func (n *Network) Fib(node, vrf string) (traceroute.Fib, bool) {
	f, ok := n.fibs[nodeVrf{node, vrf}]
	return f, ok
}

func (n *Network) ForwardingAnalysis() traceroute.ForwardingAnalysis {
	return n.forwarding
}

func (n *Network) Neighbors(node, iface string) []traceroute.NodeInterfacePair {
	return slices.Clone(n.neighbors[traceroute.NodeInterfacePair{Node: node, Interface: iface}])
}

func (n *Network) VrfOwners(ip netip.Addr, node string) []string {
	return slices.Clone(n.owners[node][ip])
}

func (n *Network) Filter(node, name string, flow traceroute.Flow, srcIface string) (traceroute.FilterResult, error) {
	a, ok := n.acls[node][name]
	if !ok {
		return traceroute.FilterResult{}, &traceroute.InvariantError{Reason: fmt.Sprintf("unknown acl %q on node %q", name, node)}
	}
	res, err := a.filter(flow, srcIface)
	if err != nil {
		return res, &traceroute.InvariantError{Reason: fmt.Sprintf("failed to evaluate acl %q on node %q: %v", name, node, err)}
	}
	return res, nil
}

func (n *Network) Transform(node, name string, flow traceroute.Flow, srcIface string) (traceroute.TransformationResult, error) {
	t, ok := n.transformations[node][name]
	if !ok {
		return traceroute.TransformationResult{}, &traceroute.InvariantError{Reason: fmt.Sprintf("unknown transformation %q on node %q", name, node)}
	}
	res, err := t.apply(flow, srcIface)
	if err != nil {
		return res, &traceroute.InvariantError{Reason: fmt.Sprintf("failed to apply transformation %q on node %q: %v", name, node, err)}
	}
	return res, nil
}

func (n *Network) IncomingSessions(node, iface string) []*traceroute.FirewallSessionInfo {
	return slices.Clone(n.incoming[traceroute.NodeInterfacePair{Node: node, Interface: iface}])
}

func (n *Network) OriginatingSessions(node, vrf string) []*traceroute.FirewallSessionInfo {
	return slices.Clone(n.originating[nodeVrf{node, vrf}])
}
