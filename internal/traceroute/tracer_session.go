// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

// processSessions matches the current flow against the established
// sessions of the ingress point. It reports whether a session handled the
// flow, in which case the regular pipeline is skipped.
func (b *branch) processSessions() (bool, error) {
	if b.x.sessions == nil {
		return false, nil
	}

	var candidates []*FirewallSessionInfo
	if b.ingressIface != "" {
		candidates = b.x.sessions.IncomingSessions(b.node, b.ingressIface)
	} else {
		candidates = b.x.sessions.OriginatingSessions(b.node, b.vrf)
	}

	var session *FirewallSessionInfo
	for _, s := range candidates {
		if !s.Match.Matches(b.currentFlow) {
			continue
		}
		if session != nil {
			return false, invariantf("flow %s matches more than one session on node %s", b.currentFlow, b.node)
		}
		session = s
	}
	if session == nil {
		return false, nil
	}

	// The transformation is computed up front but applied after the
	// incoming acl, and for pre-NAT lookups only after routing.
	transformed, err := ApplyDiffs(b.currentFlow, session.Transformation)
	if err != nil {
		return false, invariantf("session on node %s has an invalid transformation: %v", b.node, err)
	}
	detail := session.detail()
	detail.Transformation = FlowDiffs(b.currentFlow, transformed)
	b.steps = append(b.steps, Step{Kind: StepMatchSession, Action: ActionMatchedSession, Detail: detail})

	if b.ingressIface != "" {
		info := b.config.Interfaces[b.ingressIface].FirewallSession
		if info == nil {
			return false, invariantf("session matched, but interface %s of node %s has no firewall session info", b.ingressIface, b.node)
		}
		denied, err := b.applyFilter(info.IncomingACL, FilterIngress)
		if err != nil {
			return false, err
		}
		if denied {
			return true, b.recordFailure(DispositionDeniedIn)
		}
	}

	transform := func(f *branch) {
		if transformed == f.currentFlow {
			return
		}
		f.steps = append(f.steps, Step{
			Kind:   StepTransformation,
			Action: ActionTransformed,
			Detail: TransformationDetail{Type: "SESSION", Diffs: FlowDiffs(f.currentFlow, transformed)},
		})
		f.currentFlow = transformed
	}

	switch session.Action.Kind {
	case SessionAccept:
		transform(b)
		return true, b.recordAccept()
	case SessionPostNatFibLookup:
		transform(b)
		if b.acceptsLocally() {
			return true, b.recordAccept()
		}
		return true, b.fibLookup(forwardSessionTraffic(nil))
	case SessionPreNatFibLookup:
		if b.acceptsLocally() {
			return true, b.recordAccept()
		}
		return true, b.fibLookup(forwardSessionTraffic(transform))
	case SessionForwardOutInterface:
		return true, b.forwardSessionOutInterface(session.Action, transform)
	default:
		return false, invariantf("unknown session action %q on node %s", session.Action.Kind, b.node)
	}
}

// forwardSessionTraffic forwards routed session traffic without applying
// interface filters. transform, if set, is applied after routing.
func forwardSessionTraffic(transform func(*branch)) forwardHandler {
	return func(f *branch, c fibChoice) error {
		if transform != nil {
			transform(f)
		}
		f.steps = append(f.steps, exitInterfaceStep(f.node, c.iface, f.originalFlow, f.currentFlow))
		return f.sendToNeighbors(c.iface, c.arpIP(f.currentFlow.DstIP))
	}
}

// forwardSessionOutInterface sends session traffic to the neighbor recorded
// in the session, bypassing routing.
func (b *branch) forwardSessionOutInterface(action SessionAction, transform func(*branch)) error {
	before := b.currentFlow
	transform(b)

	crumb := Breadcrumb{Node: b.node, Vrf: b.vrf, Flow: before}
	if b.breadcrumbs.contains(crumb) {
		return b.recordLoop(crumb)
	}
	b.breadcrumbs = b.breadcrumbs.push(crumb)
	b.visited = &crumb

	out, ok := b.config.Interfaces[action.OutgoingInterface]
	if !ok {
		return invariantf("session on node %s forwards out of unknown interface %s", b.node, action.OutgoingInterface)
	}
	if out.FirewallSession != nil {
		denied, err := b.applyFilter(out.FirewallSession.OutgoingACL, FilterEgress)
		if err != nil {
			return err
		}
		if denied {
			return b.recordFailure(DispositionDeniedOut)
		}
	}

	b.steps = append(b.steps, exitInterfaceStep(b.node, out.Name, b.originalFlow, b.currentFlow))

	if action.NextHop == nil {
		// Sessions without a next hop were set up by flows entering the
		// network on this interface, so the reply leaves the network.
		return b.recordArpFailureWith(out.Name, before.DstIP, DispositionExitsNetwork)
	}

	b.hops = append(b.hops, forwardedHop(b.hop(), b.originalFlow, b.visited, b.hopSession))
	done, err := b.x.recorder.TryRecordPartialTrace(b.hops)
	if err != nil || done {
		return err
	}
	next, err := b.followEdge(NodeInterfacePair{Node: b.node, Interface: out.Name}, *action.NextHop)
	if err != nil {
		return err
	}
	return next.processHop()
}

// sessionAction builds the action of a session set up at the current hop.
// Forwarding back out of the ingress interface is only possible for flows
// that were received on an interface; originated flows are accepted.
func (b *branch) sessionAction(kind SessionActionKind) SessionAction {
	if kind != SessionForwardOutInterface {
		return SessionAction{Kind: kind}
	}
	if b.ingressIface == "" {
		return SessionAction{Kind: SessionAccept}
	}
	a := SessionAction{Kind: SessionForwardOutInterface, OutgoingInterface: b.ingressIface}
	if b.lastHop != nil {
		nh := *b.lastHop
		a.NextHop = &nh
	}
	return a
}

func (b *branch) setupInterfaceSession(info *FirewallSessionInterfaceInfo) {
	src := b.ingressIface
	if src == "" {
		src = OriginatingFromDevice
	}
	if !info.canSetUpSessionFrom(src) {
		return
	}
	b.setupSession(b.sessionAction(info.Action), SessionScope{IncomingInterfaces: info.SessionInterfaces})
}

// setupSession records a session for the return traffic of the current flow.
func (b *branch) setupSession(action SessionAction, scope SessionScope) {
	if !b.currentFlow.IPProtocol.HasSessions() {
		return
	}
	s := &FirewallSessionInfo{
		Node:           b.node,
		Action:         action,
		Scope:          scope,
		Match:          matchReturnFlow(b.currentFlow),
		Transformation: returnFlowDiffs(b.originalFlow, b.currentFlow),
	}
	b.hopSession = s
	b.steps = append(b.steps, Step{Kind: StepSetupSession, Action: ActionSetupSession, Detail: s.detail()})
}
