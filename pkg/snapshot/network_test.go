// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"errors"
	"net/netip"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telekom/flowtrace/internal/traceroute"
)

func loadFixture(t *testing.T) *Network {
	t.Helper()
	f, err := os.Open("testdata/network.yaml")
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	s, err := Parse(f)
	require.NoError(t, err)
	n, err := New(s)
	require.NoError(t, err)
	return n
}

func parse(t *testing.T, doc string) *Snapshot {
	t.Helper()
	s, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	return s
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		nodes   int
		wantErr bool
	}{
		{name: "empty document", doc: "", nodes: 0},
		{name: "single node", doc: "nodes:\n  - hostname: r1\n", nodes: 1},
		{name: "unknown field", doc: "nodes:\n  - hostname: r1\n    color: red\n", wantErr: true},
		{name: "invalid prefix", doc: "nodes:\n  - hostname: r1\n    interfaces:\n      - name: e0\n        addresses: [10.0.0.300/24]\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse(strings.NewReader(tt.doc))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, s.Nodes, tt.nodes)
		})
	}
}

func TestNew_Fixture(t *testing.T) {
	n := loadFixture(t)

	assert.Equal(t, []string{"border", "core", "srv1", "srv2"}, n.Nodes())
	assert.Equal(t, []string{"e0", "e1", "e2", "lan0"}, n.Interfaces("core"))
	assert.Nil(t, n.Interfaces("unknown"))
	assert.Equal(t, []string{DefaultVrf}, n.VrfOwners(netip.MustParseAddr("10.1.0.10"), "srv1"))
	assert.Empty(t, n.VrfOwners(netip.MustParseAddr("10.1.0.10"), "core"))
	assert.Equal(t, []traceroute.NodeInterfacePair{{Node: "srv1", Interface: "eth0"}}, n.Neighbors("core", "e1"))
	assert.Equal(t, []traceroute.NodeInterfacePair{{Node: "core", Interface: "e0"}}, n.Neighbors("border", "inside0"))
	assert.Empty(t, n.Neighbors("border", "outside0"))

	cfg, ok := n.Configuration("border")
	require.True(t, ok)
	out := cfg.Interfaces["outside0"]
	assert.Equal(t, DefaultVrf, out.Vrf)
	assert.Equal(t, "out-acl", out.OutgoingFilter)
	assert.Equal(t, "snat", out.OutgoingTransformation)

	_, ok = n.Fib("border", "mgmt")
	assert.False(t, ok)
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantRef string
	}{
		{
			name: "duplicate node",
			doc:  "nodes:\n  - hostname: r1\n  - hostname: r1\n",
		},
		{
			name:    "unknown acl",
			doc:     "nodes:\n  - hostname: r1\n    interfaces:\n      - name: e0\n        incomingFilter: missing\n",
			wantRef: "acl",
		},
		{
			name:    "unknown post transformation acl",
			doc:     "nodes:\n  - hostname: r1\n    interfaces:\n      - name: e0\n        postTransformationIncomingFilter: missing\n",
			wantRef: "acl",
		},
		{
			name:    "unknown original flow acl",
			doc:     "nodes:\n  - hostname: r1\n    interfaces:\n      - name: e0\n        originalFlowOutgoingFilter: missing\n",
			wantRef: "acl",
		},
		{
			name:    "unknown vrf",
			doc:     "nodes:\n  - hostname: r1\n    interfaces:\n      - name: e0\n        vrf: blue\n",
			wantRef: "vrf",
		},
		{
			name:    "unknown route interface",
			doc:     "nodes:\n  - hostname: r1\n    routes:\n      - prefix: 0.0.0.0/0\n        interface: e9\n",
			wantRef: "interface",
		},
		{
			name:    "edge to unknown interface",
			doc:     "nodes:\n  - hostname: r1\n    interfaces:\n      - name: e0\nedges:\n  - {node1: r1, interface1: e0, node2: r2, interface2: e0}\n",
			wantRef: "interface",
		},
		{
			name: "invalid match condition",
			doc:  "nodes:\n  - hostname: r1\n    acls:\n      - name: a\n        lines:\n          - action: permit\n            match: dstPort ==\n",
		},
		{
			name: "non boolean match condition",
			doc:  "nodes:\n  - hostname: r1\n    acls:\n      - name: a\n        lines:\n          - action: permit\n            match: dstPort + 1\n",
		},
		{
			name: "unknown acl action",
			doc:  "nodes:\n  - hostname: r1\n    acls:\n      - name: a\n        lines:\n          - action: drop\n",
		},
		{
			name: "unknown transformation field",
			doc:  "nodes:\n  - hostname: r1\n    transformations:\n      - name: t\n        rules:\n          - set: {ttl: \"1\"}\n",
		},
		{
			name: "invalid transformation value",
			doc:  "nodes:\n  - hostname: r1\n    transformations:\n      - name: t\n        rules:\n          - set: {dstPort: \"http\"}\n",
		},
		{
			name:    "session on unknown node",
			doc:     "nodes:\n  - hostname: r1\nsessions:\n  - node: r2\n    action: {kind: ACCEPT}\n",
			wantRef: "node",
		},
		{
			name: "unsupported interface session action",
			doc:  "nodes:\n  - hostname: r1\n    interfaces:\n      - name: e0\n        firewallSession: {action: ACCEPT}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(parse(t, tt.doc))
			require.ErrorIs(t, err, ErrInvalidSnapshot)

			if tt.wantRef != "" {
				var ref *ReferenceError
				require.True(t, errors.As(err, &ref), "want a reference error, got %v", err)
				assert.Equal(t, tt.wantRef, ref.Kind)
			}
		})
	}
}

func TestNew_ReportsAllErrors(t *testing.T) {
	doc := "nodes:\n  - hostname: r1\n    interfaces:\n      - name: e0\n        incomingFilter: a\n        outgoingFilter: b\n"
	_, err := New(parse(t, doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"a"`)
	assert.Contains(t, err.Error(), `"b"`)
}

func TestFib_LongestMatch(t *testing.T) {
	n := loadFixture(t)
	fib, ok := n.Fib("core", DefaultVrf)
	require.True(t, ok)

	tests := []struct {
		name   string
		dst    string
		ifaces []string
	}{
		{name: "ecmp", dst: "10.1.0.10", ifaces: []string{"e1", "e2"}},
		{name: "default route", dst: "8.8.8.8", ifaces: []string{"e0"}},
		{name: "more specific wins", dst: "192.168.1.77", ifaces: []string{"lan0"}},
		{name: "other address family", dst: "2001:db8::1", ifaces: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := netip.MustParseAddr(tt.dst)
			assert.Equal(t, tt.ifaces, fib.NextHopInterfaces(dst))
			assert.Len(t, fib.NextHopInterfacesByRoute(dst), len(tt.ifaces))
		})
	}

	entries := fib.NextHopInterfacesByRoute(netip.MustParseAddr("10.1.0.10"))
	want := []traceroute.FibEntry{
		{
			Interface:         "e1",
			ResolvedNextHopIP: netip.MustParseAddr("10.0.1.2"),
			Route:             traceroute.RouteInfo{Network: netip.MustParsePrefix("10.1.0.0/24"), Protocol: "ospf", NextHopIP: netip.MustParseAddr("10.0.1.2")},
		},
		{
			Interface:         "e2",
			ResolvedNextHopIP: netip.MustParseAddr("10.0.2.2"),
			Route:             traceroute.RouteInfo{Network: netip.MustParsePrefix("10.1.0.0/24"), Protocol: "ospf", NextHopIP: netip.MustParseAddr("10.0.2.2")},
		},
	}
	if diff := cmp.Diff(want, entries, cmp.Comparer(func(a, b netip.Addr) bool { return a == b }), cmp.Comparer(func(a, b netip.Prefix) bool { return a == b })); diff != "" {
		t.Errorf("NextHopInterfacesByRoute() mismatch (-want +got):\n%s", diff)
	}
}

func TestFib_DuplicateRoutes(t *testing.T) {
	f := newFib()
	r := Route{Prefix: netip.MustParsePrefix("10.0.0.7/8"), Interface: "e0", NextHopIP: netip.MustParseAddr("1.1.1.1")}
	f.add(r)
	f.add(r)

	entries := f.NextHopInterfacesByRoute(netip.MustParseAddr("10.2.3.4"))
	require.Len(t, entries, 1)
	assert.Equal(t, netip.MustParsePrefix("10.0.0.0/8"), entries[0].Route.Network)
	assert.Equal(t, netip.MustParseAddr("1.1.1.1"), entries[0].ResolvedNextHopIP)
}

func TestNetwork_Filter(t *testing.T) {
	n := loadFixture(t)
	flow := traceroute.Flow{
		IngressNode:      "core",
		IngressInterface: "lan0",
		SrcIP:            netip.MustParseAddr("192.168.1.10"),
		DstIP:            netip.MustParseAddr("10.1.0.10"),
		IPProtocol:       traceroute.IPProtocolTCP,
		SrcPort:          40000,
	}

	tests := []struct {
		name     string
		dstPort  uint16
		protocol traceroute.IPProtocol
		want     traceroute.FilterResult
	}{
		{name: "telnet denied", dstPort: 23, protocol: traceroute.IPProtocolTCP, want: traceroute.FilterResult{MatchedLine: "deny-telnet"}},
		{name: "https permitted", dstPort: 443, protocol: traceroute.IPProtocolTCP, want: traceroute.FilterResult{Permitted: true, MatchedLine: "permit-all"}},
		{name: "udp 23 permitted", dstPort: 23, protocol: traceroute.IPProtocolUDP, want: traceroute.FilterResult{Permitted: true, MatchedLine: "permit-all"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := flow
			f.DstPort, f.IPProtocol = tt.dstPort, tt.protocol
			got, err := n.Filter("core", "lan-in", f, "lan0")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown acl is an invariant error", func(t *testing.T) {
		_, err := n.Filter("core", "missing", flow, "lan0")
		assert.True(t, traceroute.IsFatal(err))
	})
}

func TestNetwork_FilterImplicitDeny(t *testing.T) {
	doc := `
nodes:
  - hostname: r1
    acls:
      - name: only-mgmt
        lines:
          - action: permit
            match: srcInterface == "mgmt0"
`
	n, err := New(parse(t, doc))
	require.NoError(t, err)

	flow := traceroute.Flow{IngressNode: "r1", IngressInterface: "e0", SrcIP: netip.MustParseAddr("1.1.1.1"), DstIP: netip.MustParseAddr("2.2.2.2")}
	got, err := n.Filter("r1", "only-mgmt", flow, "e0")
	require.NoError(t, err)
	assert.Equal(t, traceroute.FilterResult{MatchedLine: implicitDeny}, got)

	got, err = n.Filter("r1", "only-mgmt", flow, "mgmt0")
	require.NoError(t, err)
	assert.Equal(t, traceroute.FilterResult{Permitted: true, MatchedLine: "line 0"}, got)
}

func TestNetwork_Transform(t *testing.T) {
	n := loadFixture(t)
	flow := traceroute.Flow{
		IngressNode:      "core",
		IngressInterface: "lan0",
		SrcIP:            netip.MustParseAddr("192.168.1.10"),
		DstIP:            netip.MustParseAddr("8.8.8.8"),
		IPProtocol:       traceroute.IPProtocolUDP,
		SrcPort:          5353,
		DstPort:          53,
	}

	t.Run("matching rule rewrites", func(t *testing.T) {
		res, err := n.Transform("border", "snat", flow, "inside0")
		require.NoError(t, err)
		assert.Equal(t, netip.MustParseAddr("203.0.113.1"), res.Flow.SrcIP)
		assert.Equal(t, flow.DstIP, res.Flow.DstIP)
		require.Len(t, res.Steps, 1)
		assert.Equal(t, traceroute.StepTransformation, res.Steps[0].Kind)
		assert.Equal(t, traceroute.TransformationDetail{
			Type:  "SOURCE_NAT",
			Diffs: []traceroute.FlowDiff{{Field: traceroute.FieldSrcIP, OldValue: "192.168.1.10", NewValue: "203.0.113.1"}},
		}, res.Steps[0].Detail)
	})

	t.Run("no matching rule passes unchanged", func(t *testing.T) {
		f := flow
		f.SrcIP = netip.MustParseAddr("10.0.0.2")
		res, err := n.Transform("border", "snat", f, "inside0")
		require.NoError(t, err)
		assert.Equal(t, f, res.Flow)
		assert.Empty(t, res.Steps)
	})

	t.Run("unknown transformation is an invariant error", func(t *testing.T) {
		_, err := n.Transform("border", "dnat", flow, "inside0")
		assert.True(t, traceroute.IsFatal(err))
	})
}

func TestForwardingAnalysis(t *testing.T) {
	doc := `
nodes:
  - hostname: r1
    interfaces:
      - name: lan0
        addresses: [192.168.0.1/24]
      - name: wan0
        addresses: [198.51.100.1/30]
        external: true
      - name: p2p0
        addresses: [10.0.0.1/30]
        proxyArp: [10.9.0.0/16]
      - name: stub0
        addresses: [172.16.0.1/24]
  - hostname: r2
    interfaces:
      - name: p2p0
        addresses: [10.0.0.2/30]
edges:
  - {node1: r1, interface1: p2p0, node2: r2, interface2: p2p0}
forwardingAnalysis:
  - node: r1
    interface: stub0
    insufficientInfo: [172.16.0.0/25]
    exitsNetwork: [172.16.0.0/24]
`
	n, err := New(parse(t, doc))
	require.NoError(t, err)
	fa := n.ForwardingAnalysis()

	tests := []struct {
		name  string
		iface string
		ip    string
		want  traceroute.Disposition
		nuoen bool
	}{
		{name: "connected subnet without neighbors", iface: "lan0", ip: "192.168.0.20", want: traceroute.DispositionDeliveredToSubnet},
		{name: "own address is not delivered", iface: "lan0", ip: "192.168.0.1", want: traceroute.DispositionNeighborUnreachable},
		{name: "off subnet on internal interface", iface: "lan0", ip: "8.8.8.8", want: traceroute.DispositionNeighborUnreachable},
		{name: "external interface", iface: "wan0", ip: "8.8.8.8", want: traceroute.DispositionExitsNetwork},
		{name: "linked interface", iface: "p2p0", ip: "10.0.0.3", want: traceroute.DispositionNeighborUnreachable},
		{name: "explicit entries win in order", iface: "stub0", ip: "172.16.0.5", want: traceroute.DispositionExitsNetwork, nuoen: true},
		{name: "explicit entries override subnet delivery", iface: "stub0", ip: "172.16.0.200", want: traceroute.DispositionExitsNetwork, nuoen: true},
		{name: "no explicit entry matches", iface: "stub0", ip: "172.16.1.1", want: traceroute.DispositionNeighborUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip := netip.MustParseAddr(tt.ip)
			got := map[traceroute.Disposition]bool{
				traceroute.DispositionDeliveredToSubnet:   fa.DeliveredToSubnet("r1", DefaultVrf, tt.iface, ip),
				traceroute.DispositionExitsNetwork:        fa.ExitsNetwork("r1", DefaultVrf, tt.iface, ip),
				traceroute.DispositionInsufficientInfo:    fa.InsufficientInfo("r1", DefaultVrf, tt.iface, ip),
				traceroute.DispositionNeighborUnreachable: fa.NeighborUnreachable("r1", DefaultVrf, tt.iface, ip),
			}
			for d, ok := range got {
				assert.Equal(t, d == tt.want, ok, "predicate %s", d)
			}
			assert.Equal(t, tt.nuoen, fa.NeighborUnreachableOrExitsNetwork("r1", DefaultVrf, tt.iface, ip))
		})
	}

	t.Run("arp replies", func(t *testing.T) {
		assert.True(t, fa.ArpReplies("r2", "p2p0", netip.MustParseAddr("10.0.0.2")))
		assert.False(t, fa.ArpReplies("r2", "p2p0", netip.MustParseAddr("10.0.0.3")))
		assert.True(t, fa.ArpReplies("r1", "p2p0", netip.MustParseAddr("10.9.4.4")))
		assert.False(t, fa.ArpReplies("r9", "p2p0", netip.MustParseAddr("10.0.0.2")))
	})
}

func TestNetwork_Sessions(t *testing.T) {
	doc := `
nodes:
  - hostname: fw
    vrfs:
      - name: default
      - name: mgmt
        firewallSession: {fibLookup: true}
    interfaces:
      - name: outside
        addresses: [198.51.100.1/24]
      - name: inside
        addresses: [10.0.0.1/24]
sessions:
  - node: fw
    action: {kind: FORWARD_OUT_IFACE, outgoingInterface: inside, nextHop: {node: host, interface: eth0}}
    scope: {incomingInterfaces: [outside]}
    match: {ipProtocol: tcp, srcIp: 8.8.8.8, dstIp: 198.51.100.1, srcPort: 443, dstPort: 40000}
    transformation:
      - {field: dstIp, oldValue: 198.51.100.1, newValue: 10.0.0.10}
  - node: fw
    action: {kind: ACCEPT}
    scope: {originatingVrf: mgmt}
    match: {ipProtocol: icmp, srcIp: 8.8.8.8, dstIp: 10.0.0.1}
`
	n, err := New(parse(t, doc))
	require.NoError(t, err)
	assert.Equal(t, 2, n.Sessions())

	in := n.IncomingSessions("fw", "outside")
	require.Len(t, in, 1)
	assert.Equal(t, traceroute.SessionForwardOutInterface, in[0].Action.Kind)
	assert.Equal(t, &traceroute.NodeInterfacePair{Node: "host", Interface: "eth0"}, in[0].Action.NextHop)
	assert.Empty(t, n.IncomingSessions("fw", "inside"))

	orig := n.OriginatingSessions("fw", "mgmt")
	require.Len(t, orig, 1)
	assert.Equal(t, traceroute.IPProtocolICMP, orig[0].Match.IPProtocol)
	assert.Empty(t, n.OriginatingSessions("fw", DefaultVrf))

	cfg, _ := n.Configuration("fw")
	require.NotNil(t, cfg.Vrfs["mgmt"].FirewallSession)
	assert.True(t, cfg.Vrfs["mgmt"].FirewallSession.FibLookup)
	assert.Nil(t, cfg.Vrfs[DefaultVrf].FirewallSession)
}
