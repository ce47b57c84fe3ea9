// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"net/netip"
	"slices"

	"github.com/telekom/flowtrace/internal/traceroute"
)

var _ traceroute.ForwardingAnalysis = (*forwardingAnalysis)(nil)

type faKey struct {
	node, vrf, iface string
}

// forwardingAnalysis classifies packets sent out of an interface that no
// neighbor accepts. Explicit [ForwardingAnalysis] entries win. Otherwise
// unlinked interfaces deliver to their connected subnets, external
// interfaces let everything else exit the network and the remaining
// packets have an unreachable neighbor.
type forwardingAnalysis struct {
	network *Network
	entries map[faKey]*ForwardingAnalysis
}

func (n *Network) addForwardingAnalysis(fa *ForwardingAnalysis) []error {
	p := traceroute.NodeInterfacePair{Node: fa.Node, Interface: fa.Interface}
	iface, ok := n.interfaces[p]
	if !ok {
		return []error{&ReferenceError{Kind: "interface", Name: p.String(), From: "forwarding analysis"}}
	}
	vrf := fa.Vrf
	if vrf == "" {
		vrf = iface.Vrf
	}
	if _, ok := n.configs[fa.Node].Vrfs[vrf]; !ok {
		return []error{&ReferenceError{Node: fa.Node, Kind: "vrf", Name: vrf, From: "forwarding analysis"}}
	}
	n.forwarding.entries[faKey{fa.Node, vrf, fa.Interface}] = fa
	return nil
}

func anyContains(prefixes []netip.Prefix, ip netip.Addr) bool {
	return slices.ContainsFunc(prefixes, func(p netip.Prefix) bool { return p.Contains(ip) })
}

// explicit returns the disposition an explicit entry assigns to ip.
func (a *forwardingAnalysis) explicit(node, vrf, iface string, ip netip.Addr) traceroute.Disposition {
	fa, ok := a.entries[faKey{node, vrf, iface}]
	if !ok {
		return 0
	}
	switch {
	case anyContains(fa.DeliveredToSubnet, ip):
		return traceroute.DispositionDeliveredToSubnet
	case anyContains(fa.ExitsNetwork, ip):
		return traceroute.DispositionExitsNetwork
	case anyContains(fa.InsufficientInfo, ip):
		return traceroute.DispositionInsufficientInfo
	case anyContains(fa.NeighborUnreachable, ip):
		return traceroute.DispositionNeighborUnreachable
	default:
		return 0
	}
}

func (a *forwardingAnalysis) classify(node, vrf, iface string, ip netip.Addr) traceroute.Disposition {
	if d := a.explicit(node, vrf, iface, ip); d != 0 {
		return d
	}
	p := traceroute.NodeInterfacePair{Node: node, Interface: iface}
	i, ok := a.network.interfaces[p]
	if !ok {
		return 0
	}
	if len(a.network.neighbors[p]) == 0 && slices.ContainsFunc(i.Addresses, func(pfx netip.Prefix) bool {
		return pfx.Masked().Contains(ip) && pfx.Addr() != ip
	}) {
		return traceroute.DispositionDeliveredToSubnet
	}
	if i.External {
		return traceroute.DispositionExitsNetwork
	}
	return traceroute.DispositionNeighborUnreachable
}

// ArpReplies reports whether the interface owns ip or answers for it by
// proxy ARP.
func (a *forwardingAnalysis) ArpReplies(node, iface string, ip netip.Addr) bool {
	i, ok := a.network.interfaces[traceroute.NodeInterfacePair{Node: node, Interface: iface}]
	if !ok {
		return false
	}
	owns := slices.ContainsFunc(i.Addresses, func(p netip.Prefix) bool { return p.Addr() == ip })
	return owns || anyContains(i.ProxyArp, ip)
}

func (a *forwardingAnalysis) NeighborUnreachableOrExitsNetwork(node, vrf, iface string, ip netip.Addr) bool {
	return a.explicit(node, vrf, iface, ip) != 0
}

func (a *forwardingAnalysis) DeliveredToSubnet(node, vrf, iface string, ip netip.Addr) bool {
	return a.classify(node, vrf, iface, ip) == traceroute.DispositionDeliveredToSubnet
}

func (a *forwardingAnalysis) ExitsNetwork(node, vrf, iface string, ip netip.Addr) bool {
	return a.classify(node, vrf, iface, ip) == traceroute.DispositionExitsNetwork
}

func (a *forwardingAnalysis) InsufficientInfo(node, vrf, iface string, ip netip.Addr) bool {
	return a.classify(node, vrf, iface, ip) == traceroute.DispositionInsufficientInfo
}

func (a *forwardingAnalysis) NeighborUnreachable(node, vrf, iface string, ip netip.Addr) bool {
	return a.classify(node, vrf, iface, ip) == traceroute.DispositionNeighborUnreachable
}
