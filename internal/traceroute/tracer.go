// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"cmp"
	"net/netip"
	"slices"
)

// exploration is the state shared by every branch of one flow's exploration.
// It is never modified once the exploration started.
type exploration struct {
	network  Network
	sessions SessionStore
	recorder Recorder
	// ignoreFilters permits every flow without evaluating acls
	ignoreFilters bool
}

// branch is one path being explored, positioned at a single hop.
// Forks copy the branch, so no two branches share mutable state.
type branch struct {
	x *exploration

	node         string
	config       *Configuration
	ingressIface string
	lastHop      *NodeInterfacePair
	vrf          string

	// originalFlow is the flow as it entered the hop, currentFlow the flow
	// after the transformations applied so far at the hop.
	originalFlow Flow
	currentFlow  Flow

	hops        []*HopInfo
	steps       []Step
	breadcrumbs breadcrumbStack

	// hopSession and visited are the session set up and the breadcrumb
	// pushed at the current hop.
	hopSession *FirewallSessionInfo
	visited    *Breadcrumb
}

// newInitialBranch validates the ingress point of flow and returns the
// branch positioned at the first hop.
func newInitialBranch(x *exploration, flow Flow) (*branch, error) {
	cfg, ok := x.network.Configuration(flow.IngressNode)
	if !ok {
		return nil, &ValidationError{
			Field:  "ingressNode",
			Reason: "node " + flow.IngressNode + " is not in the network, cannot perform traceroute",
		}
	}

	vrf := flow.IngressVrf
	if flow.IngressInterface != "" {
		iface, ok := cfg.Interfaces[flow.IngressInterface]
		if !ok {
			return nil, &ValidationError{
				Field:  "ingressInterface",
				Reason: "interface " + flow.IngressInterface + " does not exist on node " + flow.IngressNode,
			}
		}
		vrf = iface.Vrf
	} else if _, ok := cfg.Vrfs[vrf]; !ok {
		return nil, &ValidationError{
			Field:  "ingressVrf",
			Reason: "vrf " + vrf + " does not exist on node " + flow.IngressNode,
		}
	}

	return &branch{
		x:            x,
		node:         flow.IngressNode,
		config:       cfg,
		ingressIface: flow.IngressInterface,
		vrf:          vrf,
		originalFlow: flow,
		currentFlow:  flow,
	}, nil
}

// fork returns a copy of the branch at the same hop.
func (b *branch) fork() *branch {
	f := *b
	f.hops = slices.Clone(b.hops)
	f.steps = slices.Clone(b.steps)
	return &f
}

// followEdge returns the branch continuing at the neighbor interface enter,
// having left this hop through exit.
func (b *branch) followEdge(exit, enter NodeInterfacePair) (*branch, error) {
	cfg, ok := b.x.network.Configuration(enter.Node)
	if !ok {
		return nil, invariantf("node %s is not in the network, cannot perform traceroute", enter.Node)
	}
	iface, ok := cfg.Interfaces[enter.Interface]
	if !ok {
		return nil, invariantf("edge from %s leads to unknown interface %s", exit, enter)
	}
	return &branch{
		x:            b.x,
		node:         enter.Node,
		config:       cfg,
		ingressIface: enter.Interface,
		lastHop:      &exit,
		vrf:          iface.Vrf,
		originalFlow: b.currentFlow,
		currentFlow:  b.currentFlow,
		hops:         slices.Clone(b.hops),
		breadcrumbs:  b.breadcrumbs,
	}, nil
}

// processHop runs the forwarding pipeline of the current node.
func (b *branch) processHop() error {
	if b.ingressIface != "" {
		b.steps = append(b.steps, enterInterfaceStep(b.node, b.ingressIface, b.vrf))
	}

	handled, err := b.processSessions()
	if err != nil || handled {
		return err
	}

	if b.ingressIface != "" {
		iface := b.config.Interfaces[b.ingressIface]
		denied, err := b.applyFilter(iface.IncomingFilter, FilterIngress)
		if err != nil {
			return err
		}
		if denied {
			return b.recordFailure(DispositionDeniedIn)
		}
		if err := b.applyTransformation(iface.IncomingTransformation); err != nil {
			return err
		}
		denied, err = b.applyFilter(iface.PostTransformationIncomingFilter, FilterPostTransformationIngress)
		if err != nil {
			return err
		}
		if denied {
			return b.recordFailure(DispositionDeniedIn)
		}
	} else {
		b.steps = append(b.steps, originateStep(b.vrf))
	}

	if b.acceptsLocally() {
		return b.recordAccept()
	}
	return b.fibLookup(forwardOutInterface)
}

// acceptsLocally reports whether the destination is owned by the current vrf.
func (b *branch) acceptsLocally() bool {
	return slices.Contains(b.x.network.VrfOwners(b.currentFlow.DstIP, b.node), b.vrf)
}

// applyFilter evaluates acl against the current flow and reports whether
// it denied the flow. An empty acl permits without adding a step, as does
// every acl when filters are ignored.
func (b *branch) applyFilter(acl string, typ FilterType) (bool, error) {
	return b.applyFilterTo(acl, typ, b.currentFlow)
}

// applyFilterTo is [branch.applyFilter] for an arbitrary flow.
func (b *branch) applyFilterTo(acl string, typ FilterType, flow Flow) (bool, error) {
	if acl == "" || b.x.ignoreFilters {
		return false, nil
	}
	res, err := b.x.network.Filter(b.node, acl, flow, b.ingressIface)
	if err != nil {
		return false, err
	}
	action := ActionPermitted
	if !res.Permitted {
		action = ActionDenied
	}
	b.steps = append(b.steps, Step{
		Kind:   StepFilter,
		Action: action,
		Detail: FilterDetail{Filter: acl, Type: typ, MatchedLine: res.MatchedLine, Flow: flow},
	})
	return !res.Permitted, nil
}

func (b *branch) applyTransformation(name string) error {
	if name == "" {
		return nil
	}
	res, err := b.x.network.Transform(b.node, name, b.currentFlow, b.ingressIface)
	if err != nil {
		return err
	}
	b.steps = append(b.steps, res.Steps...)
	b.currentFlow = res.Flow
	return nil
}

// forwardHandler continues a branch that routed the flow out of an interface.
type forwardHandler func(f *branch, c fibChoice) error

// fibChoice is one way of forwarding a flow: an interface and, for
// non-connected routes, the resolved next hop.
type fibChoice struct {
	iface   string
	nextHop netip.Addr
	routes  []RouteInfo
}

// arpIP is the address the next hop is resolved with.
func (c fibChoice) arpIP(dst netip.Addr) netip.Addr {
	if c.nextHop.IsValid() {
		return c.nextHop
	}
	return dst
}

// fibLookup routes the current flow and forks a branch per forwarding
// choice. The hop's breadcrumb guards the forks against loops.
func (b *branch) fibLookup(forward forwardHandler) error {
	fib, ok := b.x.network.Fib(b.node, b.vrf)
	if !ok {
		return invariantf("no fib for vrf %s of node %s", b.vrf, b.node)
	}

	dst := b.currentFlow.DstIP
	ifaces := fib.NextHopInterfaces(dst)
	if len(ifaces) == 0 {
		b.steps = append(b.steps, Step{Kind: StepRouting, Action: ActionNoRoute, Detail: RoutingDetail{Vrf: b.vrf}})
		return b.recordFailure(DispositionNoRoute)
	}

	crumb := Breadcrumb{Node: b.node, Vrf: b.vrf, Flow: b.currentFlow}
	if b.breadcrumbs.contains(crumb) {
		return b.recordLoop(crumb)
	}
	b.breadcrumbs = b.breadcrumbs.push(crumb)
	b.visited = &crumb

	for _, c := range groupFibEntries(ifaces, fib.NextHopInterfacesByRoute(dst)) {
		f := b.fork()
		detail := RoutingDetail{Vrf: b.vrf, Routes: c.routes, OutputInterface: c.iface, ResolvedNextHopIP: c.nextHop}
		if c.iface == NullInterface {
			f.steps = append(f.steps, Step{Kind: StepRouting, Action: ActionNullRouted, Detail: detail})
			if err := f.recordFailure(DispositionNullRouted); err != nil {
				return err
			}
			continue
		}
		f.steps = append(f.steps, Step{Kind: StepRouting, Action: ActionForwarded, Detail: detail})
		if err := forward(f, c); err != nil {
			return err
		}
	}
	return nil
}

// groupFibEntries returns one choice per interface and resolved next hop,
// ordered by interface, then next hop with connected entries first.
func groupFibEntries(ifaces []string, entries []FibEntry) []fibChoice {
	ifaces = slices.Clone(ifaces)
	slices.Sort(ifaces)
	ifaces = slices.Compact(ifaces)

	var choices []fibChoice
	for _, iface := range ifaces {
		byNextHop := map[netip.Addr][]RouteInfo{}
		for _, e := range entries {
			if e.Interface == iface {
				byNextHop[e.ResolvedNextHopIP] = append(byNextHop[e.ResolvedNextHopIP], e.Route)
			}
		}
		if len(byNextHop) == 0 {
			choices = append(choices, fibChoice{iface: iface})
			continue
		}
		nextHops := make([]netip.Addr, 0, len(byNextHop))
		for nh := range byNextHop {
			nextHops = append(nextHops, nh)
		}
		slices.SortFunc(nextHops, netip.Addr.Compare)
		for _, nh := range nextHops {
			routes := byNextHop[nh]
			slices.SortFunc(routes, compareRoutes)
			choices = append(choices, fibChoice{iface: iface, nextHop: nh, routes: slices.CompactFunc(routes, func(a, b RouteInfo) bool {
				return compareRoutes(a, b) == 0
			})})
		}
	}
	return choices
}

func compareRoutes(a, b RouteInfo) int {
	return cmp.Or(
		a.Network.Addr().Compare(b.Network.Addr()),
		cmp.Compare(a.Network.Bits(), b.Network.Bits()),
		cmp.Compare(a.Protocol, b.Protocol),
		a.NextHopIP.Compare(b.NextHopIP),
	)
}

// forwardOutInterface is the regular forwarding pipeline of an outgoing
// interface: filters, transformation, session setup and neighbor resolution.
func forwardOutInterface(f *branch, c fibChoice) error {
	iface, ok := f.config.Interfaces[c.iface]
	if !ok {
		return invariantf("fib of vrf %s of node %s references unknown interface %s", f.vrf, f.node, c.iface)
	}

	denied, err := f.applyFilter(iface.PreTransformationOutgoingFilter, FilterPreTransformationEgress)
	if err != nil || denied {
		// Flows dropped before transformation leave no trace.
		return err
	}
	if err := f.applyTransformation(iface.OutgoingTransformation); err != nil {
		return err
	}
	denied, err = f.applyFilter(iface.OutgoingFilter, FilterEgress)
	if err != nil {
		return err
	}
	if denied {
		return f.recordFailure(DispositionDeniedOut)
	}
	denied, err = f.applyFilterTo(iface.OriginalFlowOutgoingFilter, FilterEgressOriginalFlow, f.originalFlow)
	if err != nil {
		return err
	}
	if denied {
		return f.recordFailure(DispositionDeniedOut)
	}

	if iface.FirewallSession != nil {
		f.setupInterfaceSession(iface.FirewallSession)
	}

	f.steps = append(f.steps, exitInterfaceStep(f.node, c.iface, f.originalFlow, f.currentFlow))
	return f.sendToNeighbors(c.iface, c.arpIP(f.currentFlow.DstIP))
}

// sendToNeighbors hands the flow to every neighbor of outIface that
// resolves arpIP, or terminates the branch if none does.
func (b *branch) sendToNeighbors(outIface string, arpIP netip.Addr) error {
	fa := b.x.network.ForwardingAnalysis()
	neighbors := b.x.network.Neighbors(b.node, outIface)
	if len(neighbors) == 0 || fa.NeighborUnreachableOrExitsNetwork(b.node, b.vrf, outIface, arpIP) {
		return b.recordArpFailure(outIface, arpIP)
	}

	var repliers []NodeInterfacePair
	for _, n := range neighbors {
		if fa.ArpReplies(n.Node, n.Interface, arpIP) {
			repliers = append(repliers, n)
		}
	}
	if len(repliers) == 0 {
		return b.recordArpFailure(outIface, arpIP)
	}

	b.hops = append(b.hops, forwardedHop(b.hop(), b.originalFlow, b.visited, b.hopSession))
	done, err := b.x.recorder.TryRecordPartialTrace(b.hops)
	if err != nil || done {
		return err
	}

	exit := NodeInterfacePair{Node: b.node, Interface: outIface}
	for _, n := range repliers {
		next, err := b.followEdge(exit, n)
		if err != nil {
			return err
		}
		if err := next.processHop(); err != nil {
			return err
		}
	}
	return nil
}

// computeDisposition classifies a packet to ip that no neighbor on iface
// accepts.
func (b *branch) computeDisposition(iface string, ip netip.Addr) (Disposition, error) {
	fa := b.x.network.ForwardingAnalysis()
	switch {
	case fa.DeliveredToSubnet(b.node, b.vrf, iface, ip):
		return DispositionDeliveredToSubnet, nil
	case fa.ExitsNetwork(b.node, b.vrf, iface, ip):
		return DispositionExitsNetwork, nil
	case fa.InsufficientInfo(b.node, b.vrf, iface, ip):
		return DispositionInsufficientInfo, nil
	case fa.NeighborUnreachable(b.node, b.vrf, iface, ip):
		return DispositionNeighborUnreachable, nil
	default:
		return 0, invariantf("could not determine disposition of %s sent out of %s[%s] in vrf %s", ip, b.node, iface, b.vrf)
	}
}

func (b *branch) recordArpFailure(outIface string, arpIP netip.Addr) error {
	d, err := b.computeDisposition(outIface, b.currentFlow.DstIP)
	if err != nil {
		return err
	}
	return b.recordArpFailureWith(outIface, arpIP, d)
}

func (b *branch) recordArpFailureWith(outIface string, arpIP netip.Addr, d Disposition) error {
	b.steps = append(b.steps, arpFailureStep(b.node, outIface, arpIP, d))
	if d.IsSuccessful() {
		ret := returnFlow(b.currentFlow, b.node, "", outIface)
		return b.record(successHop(b.hop(), b.originalFlow, d, ret, b.hopSession, b.visited))
	}
	return b.recordFailure(d)
}

func (b *branch) recordAccept() error {
	if vrf := b.config.Vrfs[b.vrf]; b.ingressIface != "" && vrf != nil && vrf.FirewallSession != nil {
		kind := SessionForwardOutInterface
		if vrf.FirewallSession.FibLookup {
			kind = SessionPostNatFibLookup
		}
		b.setupSession(b.sessionAction(kind), SessionScope{OriginatingVrf: b.vrf})
	}
	b.steps = append(b.steps, Step{Kind: StepInbound, Action: ActionAccepted, Detail: InboundDetail{Interface: b.acceptingInterface()}})
	ret := returnFlow(b.currentFlow, b.node, b.vrf, "")
	return b.record(successHop(b.hop(), b.originalFlow, DispositionAccepted, ret, b.hopSession, b.visited))
}

// acceptingInterface returns the interface of the vrf owning the
// destination, or any interface of the vrf if none owns it.
func (b *branch) acceptingInterface() string {
	names := b.config.interfacesIn(b.vrf)
	for _, name := range names {
		if b.config.Interfaces[name].owns(b.currentFlow.DstIP) {
			return name
		}
	}
	if len(names) > 0 {
		return names[0]
	}
	return ""
}

func (b *branch) recordFailure(d Disposition) error {
	return b.record(failureHop(b.hop(), b.originalFlow, d, b.hopSession, b.visited))
}

func (b *branch) recordLoop(crumb Breadcrumb) error {
	b.steps = append(b.steps, loopStep)
	return b.record(loopHop(b.hop(), b.originalFlow, crumb, b.hopSession))
}

func (b *branch) record(h *HopInfo) error {
	b.hops = append(b.hops, h)
	return b.x.recorder.RecordTrace(b.hops)
}

// hop snapshots the steps taken so far at the current node.
func (b *branch) hop() Hop {
	return Hop{Node: b.node, Steps: slices.Clone(b.steps)}
}
