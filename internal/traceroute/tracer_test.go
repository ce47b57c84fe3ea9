// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"net/netip"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExploreFlow_Dispositions(t *testing.T) {
	tests := []struct {
		name      string
		network   func() *testNetwork
		flow      Flow
		wantDisps []Disposition
		wantKinds [][][]StepKind
	}{
		{
			name:      "ecmp forks into one accepted trace per next hop",
			network:   ecmpNetwork,
			flow:      tcpFlow("a", "in0", "192.168.0.1", "10.0.0.5"),
			wantDisps: []Disposition{DispositionAccepted, DispositionAccepted},
			wantKinds: [][][]StepKind{
				{{StepEnterInterface, StepRouting, StepExitInterface}, {StepEnterInterface, StepInbound}},
				{{StepEnterInterface, StepRouting, StepExitInterface}, {StepEnterInterface, StepInbound}},
			},
		},
		{
			name: "ingress filter denies",
			network: func() *testNetwork {
				n := ecmpNetwork()
				n.configs["a"].Interfaces["in0"].IncomingFilter = "block"
				n.acl("a", "block", func(f Flow) bool { return f.DstIP != netip.MustParseAddr("10.0.0.5") })
				return n
			},
			flow:      tcpFlow("a", "in0", "192.168.0.1", "10.0.0.5"),
			wantDisps: []Disposition{DispositionDeniedIn},
			wantKinds: [][][]StepKind{{{StepEnterInterface, StepFilter}}},
		},
		{
			name:      "no route",
			network:   ecmpNetwork,
			flow:      tcpFlow("a", "in0", "192.168.0.1", "172.16.0.1"),
			wantDisps: []Disposition{DispositionNoRoute},
			wantKinds: [][][]StepKind{{{StepEnterInterface, StepRouting}}},
		},
		{
			name: "null routed",
			network: func() *testNetwork {
				n := ecmpNetwork()
				n.route("a", "172.16.0.0/16", NullInterface, "")
				return n
			},
			flow:      tcpFlow("a", "in0", "192.168.0.1", "172.16.0.1"),
			wantDisps: []Disposition{DispositionNullRouted},
			wantKinds: [][][]StepKind{{{StepEnterInterface, StepRouting}}},
		},
		{
			name: "egress filter denies one of two paths",
			network: func() *testNetwork {
				n := ecmpNetwork()
				n.configs["a"].Interfaces["eth0"].OutgoingFilter = "deny-all"
				n.acl("a", "deny-all", func(Flow) bool { return false })
				return n
			},
			flow:      tcpFlow("a", "in0", "192.168.0.1", "10.0.0.5"),
			wantDisps: []Disposition{DispositionDeniedOut, DispositionAccepted},
			wantKinds: [][][]StepKind{
				{{StepEnterInterface, StepRouting, StepFilter}},
				{{StepEnterInterface, StepRouting, StepExitInterface}, {StepEnterInterface, StepInbound}},
			},
		},
		{
			name: "pre transformation filter drops the path without a trace",
			network: func() *testNetwork {
				n := ecmpNetwork()
				n.configs["a"].Interfaces["eth0"].PreTransformationOutgoingFilter = "deny-all"
				n.acl("a", "deny-all", func(Flow) bool { return false })
				return n
			},
			flow:      tcpFlow("a", "in0", "192.168.0.1", "10.0.0.5"),
			wantDisps: []Disposition{DispositionAccepted},
			wantKinds: [][][]StepKind{
				{{StepEnterInterface, StepRouting, StepExitInterface}, {StepEnterInterface, StepInbound}},
			},
		},
		{
			name: "delivered to subnet",
			network: func() *testNetwork {
				n := newTestNetwork()
				n.iface("a", "in0")
				n.iface("a", "eth0", "10.1.0.1/24")
				n.route("a", "10.1.0.0/24", "eth0", "")
				n.disposition("a", "eth0", DispositionDeliveredToSubnet)
				return n
			},
			flow:      tcpFlow("a", "in0", "192.168.0.1", "10.1.0.7"),
			wantDisps: []Disposition{DispositionDeliveredToSubnet},
			wantKinds: [][][]StepKind{{{StepEnterInterface, StepRouting, StepExitInterface, StepDelivered}}},
		},
		{
			name: "neighbor unreachable",
			network: func() *testNetwork {
				n := newTestNetwork()
				n.iface("a", "in0")
				n.iface("a", "eth0", "10.1.0.1/24")
				n.route("a", "10.1.0.0/24", "eth0", "")
				n.disposition("a", "eth0", DispositionNeighborUnreachable)
				return n
			},
			flow:      tcpFlow("a", "in0", "192.168.0.1", "10.1.0.7"),
			wantDisps: []Disposition{DispositionNeighborUnreachable},
			wantKinds: [][][]StepKind{{{StepEnterInterface, StepRouting, StepExitInterface, StepArpError}}},
		},
		{
			name: "silent neighbor leaves the network",
			network: func() *testNetwork {
				n := ecmpNetwork()
				n.fa.silent[NodeInterfacePair{Node: "c", Interface: "e0"}] = true
				n.disposition("a", "eth1", DispositionExitsNetwork)
				return n
			},
			flow:      tcpFlow("a", "in0", "192.168.0.1", "10.0.0.5"),
			wantDisps: []Disposition{DispositionAccepted, DispositionExitsNetwork},
			wantKinds: [][][]StepKind{
				{{StepEnterInterface, StepRouting, StepExitInterface}, {StepEnterInterface, StepInbound}},
				{{StepEnterInterface, StepRouting, StepExitInterface, StepDelivered}},
			},
		},
		{
			name: "forwarding loop",
			network: func() *testNetwork {
				n := ecmpNetwork()
				n.route("a", "10.9.0.0/16", "eth0", "1.0.0.2")
				n.route("b", "10.9.0.0/16", "e0", "1.0.0.1")
				return n
			},
			flow:      tcpFlow("a", "in0", "192.168.0.1", "10.9.0.1"),
			wantDisps: []Disposition{DispositionLoop},
			wantKinds: [][][]StepKind{{
				{StepEnterInterface, StepRouting, StepExitInterface},
				{StepEnterInterface, StepRouting, StepExitInterface},
				{StepEnterInterface, StepLoop},
			}},
		},
		{
			name: "post transformation ingress filter sees the translated flow",
			network: func() *testNetwork {
				n := ecmpNetwork()
				in0 := n.configs["a"].Interfaces["in0"]
				in0.IncomingTransformation = "publish"
				in0.PostTransformationIncomingFilter = "no-b"
				n.nat("a", "publish", func(f Flow) Flow {
					f.DstIP = netip.MustParseAddr("10.0.0.5")
					return f
				})
				n.acl("a", "no-b", func(f Flow) bool { return f.DstIP != netip.MustParseAddr("10.0.0.5") })
				return n
			},
			flow:      tcpFlow("a", "in0", "192.168.0.1", "10.0.0.99"),
			wantDisps: []Disposition{DispositionDeniedIn},
			wantKinds: [][][]StepKind{{{StepEnterInterface, StepTransformation, StepFilter}}},
		},
		{
			name: "egress original flow filter sees the received flow",
			network: func() *testNetwork {
				n := ecmpNetwork()
				eth0 := n.configs["a"].Interfaces["eth0"]
				eth0.OutgoingTransformation = "hide"
				eth0.OriginalFlowOutgoingFilter = "no-lan"
				n.nat("a", "hide", func(f Flow) Flow {
					f.SrcIP = netip.MustParseAddr("1.0.0.1")
					return f
				})
				n.acl("a", "no-lan", func(f Flow) bool { return f.SrcIP != netip.MustParseAddr("192.168.0.1") })
				return n
			},
			flow:      tcpFlow("a", "in0", "192.168.0.1", "10.0.0.5"),
			wantDisps: []Disposition{DispositionDeniedOut, DispositionAccepted},
			wantKinds: [][][]StepKind{
				{{StepEnterInterface, StepRouting, StepTransformation, StepFilter}},
				{{StepEnterInterface, StepRouting, StepExitInterface}, {StepEnterInterface, StepInbound}},
			},
		},
		{
			name:    "originated flow",
			network: ecmpNetwork,
			flow: Flow{
				IngressNode: "a",
				IngressVrf:  defaultVrf,
				SrcIP:       netip.MustParseAddr("1.0.0.1"),
				DstIP:       netip.MustParseAddr("10.0.0.5"),
				IPProtocol:  IPProtocolICMP,
				IcmpType:    8,
			},
			wantDisps: []Disposition{DispositionAccepted, DispositionAccepted},
			wantKinds: [][][]StepKind{
				{{StepOriginate, StepRouting, StepExitInterface}, {StepEnterInterface, StepInbound}},
				{{StepOriginate, StepRouting, StepExitInterface}, {StepEnterInterface, StepInbound}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExplorer(tt.network(), nil)
			traces, err := e.ExploreFlow(t.Context(), tt.flow)
			require.NoError(t, err)

			var disps []Disposition
			var kinds [][][]StepKind
			for _, tr := range traces {
				disps = append(disps, tr.Trace.Disposition)
				kinds = append(kinds, stepKinds(t, tr.Trace))
				if tr.Trace.Disposition.IsSuccessful() {
					assert.NotNil(t, tr.ReturnFlow, "successful trace must carry a return flow")
				} else {
					assert.Nil(t, tr.ReturnFlow, "failed trace must not carry a return flow")
				}
			}
			assert.Equal(t, tt.wantDisps, disps)
			if diff := cmp.Diff(tt.wantKinds, kinds); diff != "" {
				t.Errorf("step kinds mismatch (-want +got):\n%s", diff)
			}

			dag, err := e.ExploreFlowCompressed(t.Context(), tt.flow)
			require.NoError(t, err)
			assert.Equal(t, len(traces), dag.Size())
		})
	}
}

func TestExploreFlow_EcmpExample(t *testing.T) {
	traces, err := NewExplorer(ecmpNetwork(), nil).ExploreFlow(t.Context(), tcpFlow("a", "in0", "192.168.0.1", "10.0.0.5"))
	require.NoError(t, err)
	require.Len(t, traces, 2)

	assert.Equal(t, []string{"a", "b"}, hopNodes(traces[0].Trace))
	assert.Equal(t, []string{"a", "c"}, hopNodes(traces[1].Trace))

	routing := traces[0].Trace.Hops[0].Steps[1]
	assert.Equal(t, ActionForwarded, routing.Action)
	assert.Equal(t, RoutingDetail{
		Vrf: defaultVrf,
		Routes: []RouteInfo{{
			Network:   netip.MustParsePrefix("10.0.0.0/24"),
			Protocol:  "static",
			NextHopIP: netip.MustParseAddr("1.0.0.2"),
		}},
		OutputInterface:   "eth0",
		ResolvedNextHopIP: netip.MustParseAddr("1.0.0.2"),
	}, routing.Detail)

	inbound := traces[0].Trace.Hops[1].Steps[1]
	assert.Equal(t, InboundDetail{Interface: "lo"}, inbound.Detail)

	assert.Equal(t, &Flow{
		IngressNode: "b",
		IngressVrf:  defaultVrf,
		SrcIP:       netip.MustParseAddr("10.0.0.5"),
		DstIP:       netip.MustParseAddr("192.168.0.1"),
		IPProtocol:  IPProtocolTCP,
		SrcPort:     443,
		DstPort:     49152,
	}, traces[0].ReturnFlow)
}

func TestExploreFlow_DeniedInExample(t *testing.T) {
	n := ecmpNetwork()
	n.configs["a"].Interfaces["in0"].IncomingFilter = "block"
	n.acl("a", "block", func(Flow) bool { return false })

	traces, err := NewExplorer(n, nil).ExploreFlow(t.Context(), tcpFlow("a", "in0", "192.168.0.1", "10.0.0.5"))
	require.NoError(t, err)
	require.Len(t, traces, 1)

	tr := traces[0]
	assert.Equal(t, DispositionDeniedIn, tr.Trace.Disposition)
	assert.Len(t, tr.Trace.Hops, 1)
	assert.Nil(t, tr.ReturnFlow)
	assert.Empty(t, tr.NewSessions)

	filter := tr.Trace.Hops[0].Steps[1]
	assert.Equal(t, ActionDenied, filter.Action)
	assert.Equal(t, FilterIngress, filter.Detail.(FilterDetail).Type)
}

func TestExploreFlow_UnclassifiedArpFailureIsFatal(t *testing.T) {
	n := newTestNetwork()
	n.iface("a", "in0")
	n.iface("a", "eth0", "10.1.0.1/24")
	n.route("a", "10.1.0.0/24", "eth0", "")

	_, err := NewExplorer(n, nil).ExploreFlow(t.Context(), tcpFlow("a", "in0", "192.168.0.1", "10.1.0.7"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvariant)
	assert.True(t, IsFatal(err))
}

func TestExploreFlow_InvalidFlow(t *testing.T) {
	tests := []struct {
		name  string
		flow  Flow
		field string
	}{
		{name: "unknown node", flow: tcpFlow("z", "in0", "192.168.0.1", "10.0.0.5"), field: "ingressNode"},
		{name: "unknown interface", flow: tcpFlow("a", "eth9", "192.168.0.1", "10.0.0.5"), field: "ingressInterface"},
		{
			name:  "unknown vrf",
			flow:  Flow{IngressNode: "a", IngressVrf: "mgmt", SrcIP: netip.MustParseAddr("1.1.1.1"), DstIP: netip.MustParseAddr("2.2.2.2")},
			field: "ingressVrf",
		},
		{
			name:  "missing destination",
			flow:  Flow{IngressNode: "a", IngressInterface: "in0", SrcIP: netip.MustParseAddr("1.1.1.1")},
			field: "dstIp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExplorer(ecmpNetwork(), nil).ExploreFlow(t.Context(), tt.flow)
			require.ErrorIs(t, err, ErrInvalidFlow)
			assert.False(t, IsFatal(err))

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestExploreFlow_Idempotent(t *testing.T) {
	e := NewExplorer(ecmpNetwork(), nil)
	flow := tcpFlow("a", "in0", "192.168.0.1", "10.0.0.5")

	first, err := e.ExploreFlow(t.Context(), flow)
	require.NoError(t, err)
	second, err := e.ExploreFlow(t.Context(), flow)
	require.NoError(t, err)
	assert.ElementsMatch(t, first, second)
}

func TestExploreFlow_PartialTraceStopsExploration(t *testing.T) {
	rec := &RecorderMock{
		RecordTraceFunc:           func([]*HopInfo) error { return nil },
		TryRecordPartialTraceFunc: func([]*HopInfo) (bool, error) { return true, nil },
	}
	b, err := newInitialBranch(&exploration{network: ecmpNetwork(), recorder: rec}, tcpFlow("a", "in0", "192.168.0.1", "10.0.0.5"))
	require.NoError(t, err)
	require.NoError(t, b.processHop())

	assert.Empty(t, rec.RecordTraceCalls())
	calls := rec.TryRecordPartialTraceCalls()
	require.Len(t, calls, 2)
	for _, c := range calls {
		require.Len(t, c.Hops, 1)
		assert.False(t, c.Hops[0].IsTerminal())
		assert.NotNil(t, c.Hops[0].Visited)
	}
}

func TestExploreFlow_SharedPrefixHopInfos(t *testing.T) {
	var recorded [][]*HopInfo
	rec := &RecorderMock{
		RecordTraceFunc: func(hops []*HopInfo) error {
			recorded = append(recorded, hops)
			return nil
		},
		TryRecordPartialTraceFunc: func([]*HopInfo) (bool, error) { return false, nil },
	}

	n := ecmpNetwork()
	n.iface("d", "x", "1.0.0.3/30")
	n.iface("d", "lo", "10.0.0.5/32")
	n.link("a", "eth0", "d", "x")

	b, err := newInitialBranch(&exploration{network: n, recorder: rec}, tcpFlow("a", "in0", "192.168.0.1", "10.0.0.5"))
	require.NoError(t, err)
	require.NoError(t, b.processHop())

	require.Len(t, recorded, 3)
	assert.Equal(t, []string{"a", "b"}, hopNodes(traceFromHops(recorded[0]).Trace))
	assert.Equal(t, []string{"a", "d"}, hopNodes(traceFromHops(recorded[1]).Trace))
	assert.Equal(t, []string{"a", "c"}, hopNodes(traceFromHops(recorded[2]).Trace))
	assert.Same(t, recorded[0][0], recorded[1][0], "paths through one interface share the hop leaving it")
	assert.NotSame(t, recorded[0][0], recorded[2][0])
}

func TestExploreFlow_SessionSetup(t *testing.T) {
	n := ecmpNetwork()
	eth0 := n.configs["a"].Interfaces["eth0"]
	eth0.OutgoingTransformation = "snat"
	eth0.FirewallSession = &FirewallSessionInterfaceInfo{
		Action:            SessionForwardOutInterface,
		SessionInterfaces: []string{"eth0"},
	}
	n.nat("a", "snat", func(f Flow) Flow {
		f.SrcIP = netip.MustParseAddr("1.0.0.1")
		return f
	})

	traces, err := NewExplorer(n, nil).ExploreFlow(t.Context(), tcpFlow("a", "in0", "192.168.0.1", "10.0.0.5"))
	require.NoError(t, err)
	require.Len(t, traces, 2)

	tr := traces[0]
	assert.Equal(t, [][]StepKind{
		{StepEnterInterface, StepRouting, StepTransformation, StepSetupSession, StepExitInterface},
		{StepEnterInterface, StepInbound},
	}, stepKinds(t, tr.Trace))

	exit := tr.Trace.Hops[0].Steps[4].Detail.(ExitInterfaceDetail)
	require.NotNil(t, exit.TransformedFlow)
	assert.Equal(t, netip.MustParseAddr("1.0.0.1"), exit.TransformedFlow.SrcIP)

	require.Len(t, tr.NewSessions, 1)
	if diff := cmp.Diff(FirewallSessionInfo{
		Node:   "a",
		Action: SessionAction{Kind: SessionForwardOutInterface, OutgoingInterface: "in0"},
		Scope:  SessionScope{IncomingInterfaces: []string{"eth0"}},
		Match: SessionMatchExpr{
			IPProtocol: IPProtocolTCP,
			SrcIP:      netip.MustParseAddr("10.0.0.5"),
			DstIP:      netip.MustParseAddr("1.0.0.1"),
			SrcPort:    443,
			DstPort:    49152,
		},
		Transformation: []FlowDiff{{Field: FieldDstIP, OldValue: "1.0.0.1", NewValue: "192.168.0.1"}},
	}, tr.NewSessions[0], cmp.Comparer(func(a, b netip.Addr) bool { return a == b })); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, netip.MustParseAddr("1.0.0.1"), tr.ReturnFlow.DstIP)

	assert.Empty(t, traces[1].NewSessions, "the path via eth1 passes no stateful interface")
}

func TestExploreFlow_NoSessionForSessionlessProtocol(t *testing.T) {
	n := ecmpNetwork()
	n.configs["a"].Interfaces["eth0"].FirewallSession = &FirewallSessionInterfaceInfo{
		Action:            SessionForwardOutInterface,
		SessionInterfaces: []string{"eth0"},
	}
	flow := tcpFlow("a", "in0", "192.168.0.1", "10.0.0.5")
	flow.IPProtocol, flow.SrcPort, flow.DstPort = 47, 0, 0

	traces, err := NewExplorer(n, nil).ExploreFlow(t.Context(), flow)
	require.NoError(t, err)
	for _, tr := range traces {
		assert.Empty(t, tr.NewSessions)
	}
}

func TestExploreFlow_SessionShortcut(t *testing.T) {
	n := ecmpNetwork()
	n.configs["a"].Interfaces["eth0"].FirewallSession = &FirewallSessionInterfaceInfo{
		Action:            SessionForwardOutInterface,
		SessionInterfaces: []string{"eth0"},
	}
	e := NewExplorer(n, nil)
	forward, err := e.ExploreFlow(t.Context(), tcpFlow("a", "in0", "192.168.0.1", "10.0.0.5"))
	require.NoError(t, err)
	require.Len(t, forward[0].NewSessions, 1)
	session := forward[0].NewSessions[0]

	store := &SessionStoreMock{
		IncomingSessionsFunc: func(node, iface string) []*FirewallSessionInfo {
			if node == session.Node && session.Scope.AppliesToInterface(iface) {
				return []*FirewallSessionInfo{&session}
			}
			return nil
		},
	}
	reply := tcpFlow("a", "eth0", "10.0.0.5", "192.168.0.1")
	reply.SrcPort, reply.DstPort = 443, 49152

	traces, err := NewExplorer(n, store).ExploreFlow(t.Context(), reply)
	require.NoError(t, err)
	require.Len(t, traces, 1)

	tr := traces[0]
	assert.Equal(t, DispositionExitsNetwork, tr.Trace.Disposition)
	assert.Equal(t, [][]StepKind{{StepEnterInterface, StepMatchSession, StepExitInterface, StepDelivered}}, stepKinds(t, tr.Trace))
	assert.Equal(t, "in0", tr.ReturnFlow.IngressInterface)
	assert.Len(t, store.IncomingSessionsCalls(), 1)
}

func TestExploreFlow_SessionIncomingACL(t *testing.T) {
	n := ecmpNetwork()
	n.configs["a"].Interfaces["eth0"].FirewallSession = &FirewallSessionInterfaceInfo{
		Action:            SessionForwardOutInterface,
		SessionInterfaces: []string{"eth0"},
		IncomingACL:       "session-in",
	}
	n.acl("a", "session-in", func(Flow) bool { return false })

	reply := tcpFlow("a", "eth0", "10.0.0.5", "192.168.0.1")
	session := &FirewallSessionInfo{
		Node:   "a",
		Action: SessionAction{Kind: SessionAccept},
		Scope:  SessionScope{IncomingInterfaces: []string{"eth0"}},
		Match:  SessionMatchExpr{IPProtocol: reply.IPProtocol, SrcIP: reply.SrcIP, DstIP: reply.DstIP, SrcPort: reply.SrcPort, DstPort: reply.DstPort},
	}
	store := &SessionStoreMock{
		IncomingSessionsFunc: func(string, string) []*FirewallSessionInfo { return []*FirewallSessionInfo{session} },
	}

	traces, err := NewExplorer(n, store).ExploreFlow(t.Context(), reply)
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Equal(t, DispositionDeniedIn, traces[0].Trace.Disposition)
	assert.Equal(t, [][]StepKind{{StepEnterInterface, StepMatchSession, StepFilter}}, stepKinds(t, traces[0].Trace))
}

func TestExploreFlow_AmbiguousSessionIsFatal(t *testing.T) {
	flow := tcpFlow("a", "in0", "192.168.0.1", "10.0.0.5")
	match := SessionMatchExpr{IPProtocol: flow.IPProtocol, SrcIP: flow.SrcIP, DstIP: flow.DstIP, SrcPort: flow.SrcPort, DstPort: flow.DstPort}
	store := &SessionStoreMock{
		IncomingSessionsFunc: func(string, string) []*FirewallSessionInfo {
			return []*FirewallSessionInfo{
				{Node: "a", Action: SessionAction{Kind: SessionAccept}, Match: match},
				{Node: "a", Action: SessionAction{Kind: SessionPostNatFibLookup}, Match: match},
			}
		},
	}

	_, err := NewExplorer(ecmpNetwork(), store).ExploreFlow(t.Context(), flow)
	require.ErrorIs(t, err, ErrInvariant)
}

func TestExploreFlow_SessionFibLookupOrder(t *testing.T) {
	tests := []struct {
		name      string
		kind      SessionActionKind
		wantSteps []StepKind
	}{
		{
			name:      "pre nat lookup routes the untransformed flow",
			kind:      SessionPreNatFibLookup,
			wantSteps: []StepKind{StepEnterInterface, StepMatchSession, StepRouting, StepTransformation, StepExitInterface},
		},
		{
			name:      "post nat lookup routes the transformed flow",
			kind:      SessionPostNatFibLookup,
			wantSteps: []StepKind{StepEnterInterface, StepMatchSession, StepTransformation, StepRouting, StepExitInterface},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := ecmpNetwork()
			n.configs["a"].Interfaces["in0"].FirewallSession = &FirewallSessionInterfaceInfo{Action: tt.kind}
			flow := tcpFlow("a", "in0", "192.168.0.1", "10.0.0.5")
			session := &FirewallSessionInfo{
				Node:           "a",
				Action:         SessionAction{Kind: tt.kind},
				Scope:          SessionScope{IncomingInterfaces: []string{"in0"}},
				Match:          SessionMatchExpr{IPProtocol: flow.IPProtocol, SrcIP: flow.SrcIP, DstIP: flow.DstIP, SrcPort: flow.SrcPort, DstPort: flow.DstPort},
				Transformation: []FlowDiff{{Field: FieldSrcIP, OldValue: "192.168.0.1", NewValue: "1.1.1.1"}},
			}
			store := &SessionStoreMock{
				IncomingSessionsFunc: func(node, iface string) []*FirewallSessionInfo {
					if node == "a" && iface == "in0" {
						return []*FirewallSessionInfo{session}
					}
					return nil
				},
			}

			e := NewExplorer(n, store)
			traces, err := e.ExploreFlow(t.Context(), flow)
			require.NoError(t, err)
			require.Len(t, traces, 2)
			for _, tr := range traces {
				assert.Equal(t, DispositionAccepted, tr.Trace.Disposition)
				assert.Equal(t, tt.wantSteps, stepKinds(t, tr.Trace)[0])
				assert.Equal(t, netip.MustParseAddr("1.1.1.1"), tr.ReturnFlow.DstIP)
			}

			dag, err := e.ExploreFlowCompressed(t.Context(), flow)
			require.NoError(t, err)
			assert.ElementsMatch(t, traces, slices.Collect(dag.Traces()))
			assert.Equal(t, map[Disposition]int{DispositionAccepted: 2}, dag.Dispositions())
		})
	}
}

func TestExploreFlow_OriginatingSessions(t *testing.T) {
	flow := Flow{
		IngressNode: "a",
		IngressVrf:  defaultVrf,
		SrcIP:       netip.MustParseAddr("1.0.0.1"),
		DstIP:       netip.MustParseAddr("10.0.0.5"),
		IPProtocol:  IPProtocolUDP,
		SrcPort:     5353,
		DstPort:     53,
	}
	store := &SessionStoreMock{
		OriginatingSessionsFunc: func(node, vrf string) []*FirewallSessionInfo {
			return []*FirewallSessionInfo{{
				Node:   node,
				Action: SessionAction{Kind: SessionAccept},
				Scope:  SessionScope{OriginatingVrf: vrf},
				Match:  matchReturnFlow(returnFlow(flow, "", "", "")),
			}}
		},
	}

	traces, err := NewExplorer(ecmpNetwork(), store).ExploreFlow(t.Context(), flow)
	require.NoError(t, err)
	require.Len(t, traces, 1)
	assert.Equal(t, DispositionAccepted, traces[0].Trace.Disposition)
	assert.Equal(t, [][]StepKind{{StepMatchSession, StepInbound}}, stepKinds(t, traces[0].Trace))

	calls := store.OriginatingSessionsCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, defaultVrf, calls[0].Vrf)
}

func TestExploreFlow_VrfSessionOnAccept(t *testing.T) {
	n := ecmpNetwork()
	n.configs["b"].Vrfs[defaultVrf].FirewallSession = &FirewallSessionVrfInfo{FibLookup: true}

	traces, err := NewExplorer(n, nil).ExploreFlow(t.Context(), tcpFlow("a", "in0", "192.168.0.1", "10.0.0.5"))
	require.NoError(t, err)
	require.Len(t, traces, 2)

	require.Len(t, traces[0].NewSessions, 1)
	s := traces[0].NewSessions[0]
	assert.Equal(t, "b", s.Node)
	assert.Equal(t, SessionAction{Kind: SessionPostNatFibLookup}, s.Action)
	assert.Equal(t, SessionScope{OriginatingVrf: defaultVrf}, s.Scope)
	assert.Empty(t, traces[1].NewSessions)
}

func TestGroupFibEntries(t *testing.T) {
	nh1, nh2 := netip.MustParseAddr("1.0.0.2"), netip.MustParseAddr("1.0.0.3")
	r1 := RouteInfo{Network: netip.MustParsePrefix("10.0.0.0/24"), Protocol: "static", NextHopIP: nh1}
	r2 := RouteInfo{Network: netip.MustParsePrefix("10.0.0.0/24"), Protocol: "bgp", NextHopIP: nh2}

	got := groupFibEntries(
		[]string{"eth1", "eth0", "eth1"},
		[]FibEntry{
			{Interface: "eth1", ResolvedNextHopIP: nh2, Route: r2},
			{Interface: "eth1", ResolvedNextHopIP: nh1, Route: r1},
			{Interface: "eth0", ResolvedNextHopIP: nh1, Route: r1},
			{Interface: "eth0", ResolvedNextHopIP: nh1, Route: r1},
		},
	)

	assert.Equal(t, []fibChoice{
		{iface: "eth0", nextHop: nh1, routes: []RouteInfo{r1}},
		{iface: "eth1", nextHop: nh1, routes: []RouteInfo{r1}},
		{iface: "eth1", nextHop: nh2, routes: []RouteInfo{r2}},
	}, got)
}
