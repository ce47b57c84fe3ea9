// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"errors"
	"fmt"
	"net/netip"
	"slices"
	"strconv"
	"strings"
)

// IPProtocol is the IP protocol number carried by a [Flow].
type IPProtocol uint8

// IPProtocol constants for the protocols the explorer knows by name.
const (
	IPProtocolICMP IPProtocol = 1
	IPProtocolTCP  IPProtocol = 6
	IPProtocolUDP  IPProtocol = 17
)

const (
	icmpEchoReply   uint8 = 0
	icmpEchoRequest uint8 = 8
)

func (p IPProtocol) String() string {
	switch p {
	case IPProtocolICMP:
		return "icmp"
	case IPProtocolTCP:
		return "tcp"
	case IPProtocolUDP:
		return "udp"
	default:
		return strconv.Itoa(int(p))
	}
}

// HasSessions reports whether stateful firewalls track sessions for the protocol.
func (p IPProtocol) HasSessions() bool {
	return slices.Contains([]IPProtocol{IPProtocolICMP, IPProtocolTCP, IPProtocolUDP}, p)
}

// hasPorts reports whether the protocol carries layer 4 ports.
func (p IPProtocol) hasPorts() bool {
	return p == IPProtocolTCP || p == IPProtocolUDP
}

// MarshalText implements [encoding.TextMarshaler].
func (p IPProtocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (p *IPProtocol) UnmarshalText(b []byte) error {
	v, err := ParseIPProtocol(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParseIPProtocol parses a protocol name or number.
func ParseIPProtocol(s string) (IPProtocol, error) {
	switch strings.ToLower(s) {
	case "icmp":
		return IPProtocolICMP, nil
	case "tcp":
		return IPProtocolTCP, nil
	case "udp":
		return IPProtocolUDP, nil
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid ip protocol %q", s)
	}
	return IPProtocol(n), nil
}

// Flow is the packet header a traceroute is computed for, together with
// the point where it enters the network.
//
// A Flow is a comparable value and may be used as a map key. Exactly one
// of IngressInterface and IngressVrf identifies the ingress point: a flow
// with an ingress interface is received on that interface, a flow with
// only an ingress vrf originates from the device itself.
type Flow struct {
	IngressNode      string     `json:"ingressNode" yaml:"ingressNode"`
	IngressInterface string     `json:"ingressInterface,omitempty" yaml:"ingressInterface,omitempty"`
	IngressVrf       string     `json:"ingressVrf,omitempty" yaml:"ingressVrf,omitempty"`
	SrcIP            netip.Addr `json:"srcIp" yaml:"srcIp"`
	DstIP            netip.Addr `json:"dstIp" yaml:"dstIp"`
	IPProtocol       IPProtocol `json:"ipProtocol" yaml:"ipProtocol"`
	SrcPort          uint16     `json:"srcPort,omitempty" yaml:"srcPort,omitempty"`
	DstPort          uint16     `json:"dstPort,omitempty" yaml:"dstPort,omitempty"`
	IcmpType         uint8      `json:"icmpType,omitempty" yaml:"icmpType,omitempty"`
	IcmpCode         uint8      `json:"icmpCode,omitempty" yaml:"icmpCode,omitempty"`
}

// Validate checks the flow header. It does not check that the ingress point
// exists in a network, which the [Explorer] does before exploring.
func (f Flow) Validate() error {
	var errs []error
	if f.IngressNode == "" {
		errs = append(errs, &ValidationError{Field: "ingressNode", Reason: "must not be empty"})
	}
	if f.IngressInterface == "" && f.IngressVrf == "" {
		errs = append(errs, &ValidationError{Field: "ingressInterface", Reason: "either an ingress interface or an ingress vrf is required"})
	}
	if !f.DstIP.IsValid() {
		errs = append(errs, &ValidationError{Field: "dstIp", Reason: "must be set"})
	}
	if !f.SrcIP.IsValid() {
		errs = append(errs, &ValidationError{Field: "srcIp", Reason: "must be set"})
	}
	return errors.Join(errs...)
}

func (f Flow) String() string {
	ingress := f.IngressInterface
	if ingress == "" {
		ingress = "vrf:" + f.IngressVrf
	}
	src, dst := f.SrcIP.String(), f.DstIP.String()
	if f.IPProtocol.hasPorts() {
		src = netip.AddrPortFrom(f.SrcIP, f.SrcPort).String()
		dst = netip.AddrPortFrom(f.DstIP, f.DstPort).String()
	}
	return fmt.Sprintf("%s[%s] %s -> %s %s", f.IngressNode, ingress, src, dst, f.IPProtocol)
}

// returnFlow builds the flow a reply to f would carry, entering the network
// at node through either vrf or iface.
func returnFlow(f Flow, node, vrf, iface string) Flow {
	r := Flow{
		IngressNode:      node,
		IngressInterface: iface,
		IngressVrf:       vrf,
		SrcIP:            f.DstIP,
		DstIP:            f.SrcIP,
		IPProtocol:       f.IPProtocol,
		SrcPort:          f.DstPort,
		DstPort:          f.SrcPort,
		IcmpType:         f.IcmpType,
		IcmpCode:         f.IcmpCode,
	}
	if iface != "" {
		r.IngressVrf = ""
	}
	if f.IPProtocol == IPProtocolICMP && f.IcmpType == icmpEchoRequest {
		r.IcmpType = icmpEchoReply
	}
	return r
}

// NodeInterfacePair names one interface of one node.
type NodeInterfacePair struct {
	Node      string `json:"node" yaml:"node"`
	Interface string `json:"interface" yaml:"interface"`
}

func (p NodeInterfacePair) String() string {
	return p.Node + "[" + p.Interface + "]"
}

// Compare orders pairs by node, then interface.
func (p NodeInterfacePair) Compare(o NodeInterfacePair) int {
	if c := strings.Compare(p.Node, o.Node); c != 0 {
		return c
	}
	return strings.Compare(p.Interface, o.Interface)
}

// Hop is the sequence of steps a flow takes at a single node.
type Hop struct {
	Node  string `json:"node"`
	Steps []Step `json:"steps"`
}

func (h Hop) String() string {
	parts := make([]string, 0, len(h.Steps))
	for _, s := range h.Steps {
		parts = append(parts, s.String())
	}
	return fmt.Sprintf("%s: %s", h.Node, strings.Join(parts, ", "))
}

// Trace is one fully explored path of a flow through the network.
type Trace struct {
	Disposition Disposition `json:"disposition"`
	Hops        []Hop       `json:"hops"`
}

// TraceAndReverseFlow is a trace together with the flow a reply would take
// and the firewall sessions set up along the way.
type TraceAndReverseFlow struct {
	Trace       Trace                 `json:"trace"`
	ReturnFlow  *Flow                 `json:"returnFlow,omitempty"`
	NewSessions []FirewallSessionInfo `json:"newSessions,omitempty"`
}
