// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package reachability

import (
	"errors"
	"fmt"
)

// ErrNoFlows is returned when a flow file holds no flow specs
var ErrNoFlows = errors.New("no flows defined")

// ErrInvalidFlowSpec is returned when a flow spec is invalid
type ErrInvalidFlowSpec struct {
	Index  int
	Name   string
	Field  string
	Reason string
}

func (e ErrInvalidFlowSpec) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("invalid field %q in flow %q: %s", e.Field, e.Name, e.Reason)
	}
	return fmt.Sprintf("invalid field %q in flow #%d: %s", e.Field, e.Index, e.Reason)
}

// ErrNoIngressMatch is returned when the ingress patterns of a flow spec
// match no interface of the network
type ErrNoIngressMatch struct {
	Name      string
	Node      string
	Interface string
}

func (e ErrNoIngressMatch) Error() string {
	return fmt.Sprintf("flow %q: no ingress point matches node %q interface %q", e.Name, e.Node, e.Interface)
}
