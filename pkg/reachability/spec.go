// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package reachability

import (
	"errors"
	"fmt"
	"io"
	"net/netip"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/telekom/flowtrace/internal/traceroute"
	"gopkg.in/yaml.v3"
)

// FlowSpec describes the flows to explore. IngressNode and IngressInterface
// are glob patterns; a spec expands to one flow per matching interface, or
// per matching node when it originates from IngressVrf.
type FlowSpec struct {
	Name             string                `json:"name,omitempty" yaml:"name,omitempty"`
	IngressNode      string                `json:"ingressNode" yaml:"ingressNode"`
	IngressInterface string                `json:"ingressInterface,omitempty" yaml:"ingressInterface,omitempty"`
	IngressVrf       string                `json:"ingressVrf,omitempty" yaml:"ingressVrf,omitempty"`
	SrcIP            netip.Addr            `json:"srcIp" yaml:"srcIp"`
	DstIP            netip.Addr            `json:"dstIp" yaml:"dstIp"`
	IPProtocol       traceroute.IPProtocol `json:"ipProtocol" yaml:"ipProtocol"`
	SrcPort          uint16                `json:"srcPort,omitempty" yaml:"srcPort,omitempty"`
	DstPort          uint16                `json:"dstPort,omitempty" yaml:"dstPort,omitempty"`
	IcmpType         uint8                 `json:"icmpType,omitempty" yaml:"icmpType,omitempty"`
	IcmpCode         uint8                 `json:"icmpCode,omitempty" yaml:"icmpCode,omitempty"`
}

type flowFile struct {
	Flows []FlowSpec `yaml:"flows"`
}

// Topology lists the ingress points of a network
type Topology interface {
	// Nodes returns the hostnames of all nodes, sorted.
	Nodes() []string
	// Interfaces returns the interface names of node, sorted.
	Interfaces(node string) []string
}

// ParseFlows decodes a yaml flow file and validates its specs
func ParseFlows(r io.Reader) ([]FlowSpec, error) {
	var f flowFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoFlows
		}
		return nil, fmt.Errorf("failed to decode flows: %w", err)
	}
	if len(f.Flows) == 0 {
		return nil, ErrNoFlows
	}

	var errs []error
	for i, s := range f.Flows {
		if err := s.Validate(i); err != nil {
			errs = append(errs, err)
		}
	}
	return f.Flows, errors.Join(errs...)
}

// Validate checks the patterns and the header of the spec. i is the
// position of the spec in its file.
func (s *FlowSpec) Validate(i int) error {
	invalid := func(field, reason string) error {
		return ErrInvalidFlowSpec{Index: i, Name: s.Name, Field: field, Reason: reason}
	}

	var errs []error
	if s.IngressNode == "" {
		errs = append(errs, invalid("ingressNode", "must not be empty"))
	} else if !doublestar.ValidatePattern(s.IngressNode) {
		errs = append(errs, invalid("ingressNode", "invalid pattern"))
	}
	switch {
	case s.IngressInterface == "" && s.IngressVrf == "":
		errs = append(errs, invalid("ingressInterface", "either an ingress interface or an ingress vrf is required"))
	case s.IngressInterface != "" && s.IngressVrf != "":
		errs = append(errs, invalid("ingressVrf", "must not be set together with an ingress interface"))
	case s.IngressInterface != "" && !doublestar.ValidatePattern(s.IngressInterface):
		errs = append(errs, invalid("ingressInterface", "invalid pattern"))
	}
	if !s.SrcIP.IsValid() {
		errs = append(errs, invalid("srcIp", "must be set"))
	}
	if !s.DstIP.IsValid() {
		errs = append(errs, invalid("dstIp", "must be set"))
	}
	if s.SrcIP.IsValid() && s.DstIP.IsValid() && s.SrcIP.Is4() != s.DstIP.Is4() {
		errs = append(errs, invalid("dstIp", "address family differs from srcIp"))
	}
	return errors.Join(errs...)
}

// Expand resolves the ingress patterns of the spec against the topology.
// The flows are ordered by node, then interface.
func (s *FlowSpec) Expand(topo Topology) ([]traceroute.Flow, error) {
	var flows []traceroute.Flow
	for _, node := range topo.Nodes() {
		ok, err := doublestar.Match(s.IngressNode, node)
		if err != nil {
			return nil, fmt.Errorf("flow %q: %w", s.Name, err)
		}
		if !ok {
			continue
		}

		if s.IngressVrf != "" {
			flows = append(flows, s.flow(node, "", s.IngressVrf))
			continue
		}
		for _, iface := range topo.Interfaces(node) {
			ok, err := doublestar.Match(s.IngressInterface, iface)
			if err != nil {
				return nil, fmt.Errorf("flow %q: %w", s.Name, err)
			}
			if ok {
				flows = append(flows, s.flow(node, iface, ""))
			}
		}
	}

	if len(flows) == 0 {
		return nil, ErrNoIngressMatch{Name: s.Name, Node: s.IngressNode, Interface: s.IngressInterface}
	}
	return flows, nil
}

func (s *FlowSpec) flow(node, iface, vrf string) traceroute.Flow {
	return traceroute.Flow{
		IngressNode:      node,
		IngressInterface: iface,
		IngressVrf:       vrf,
		SrcIP:            s.SrcIP,
		DstIP:            s.DstIP,
		IPProtocol:       s.IPProtocol,
		SrcPort:          s.SrcPort,
		DstPort:          s.DstPort,
		IcmpType:         s.IcmpType,
		IcmpCode:         s.IcmpCode,
	}
}

// ExpandAll expands every spec. Specs matching nothing are reported
// together; the flows of the others are still returned.
func ExpandAll(specs []FlowSpec, topo Topology) ([]traceroute.Flow, error) {
	var (
		flows []traceroute.Flow
		errs  []error
	)
	for i := range specs {
		f, err := specs[i].Expand(topo)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		flows = append(flows, f...)
	}
	return flows, errors.Join(errs...)
}
