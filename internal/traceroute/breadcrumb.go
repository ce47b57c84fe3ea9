// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import "fmt"

// Breadcrumb marks a forwarding context visited on the current path.
// Reaching an equal breadcrumb again on the same path is a forwarding loop.
type Breadcrumb struct {
	Node string `json:"node"`
	Vrf  string `json:"vrf"`
	Flow Flow   `json:"flow"`
}

func (b Breadcrumb) String() string {
	return fmt.Sprintf("%s/%s: %s", b.Node, b.Vrf, b.Flow)
}

// breadcrumbStack is a persistent stack of the breadcrumbs on one path.
// Pushing returns a new stack and leaves the receiver untouched, so a
// branch's stack is released when the branch returns, and sibling branches
// never observe each other's breadcrumbs.
type breadcrumbStack struct {
	top *breadcrumbFrame
}

type breadcrumbFrame struct {
	crumb Breadcrumb
	next  *breadcrumbFrame
	depth int
}

func (s breadcrumbStack) push(b Breadcrumb) breadcrumbStack {
	return breadcrumbStack{top: &breadcrumbFrame{crumb: b, next: s.top, depth: s.len() + 1}}
}

func (s breadcrumbStack) contains(b Breadcrumb) bool {
	for f := s.top; f != nil; f = f.next {
		if f.crumb == b {
			return true
		}
	}
	return false
}

func (s breadcrumbStack) len() int {
	if s.top == nil {
		return 0
	}
	return s.top.depth
}

// breadcrumbSet is the set of breadcrumbs a path prefix has visited.
type breadcrumbSet map[Breadcrumb]struct{}

func (s breadcrumbSet) contains(b Breadcrumb) bool {
	_, ok := s[b]
	return ok
}

// containsAll reports whether every breadcrumb of o is in s.
func (s breadcrumbSet) containsAll(o breadcrumbSet) bool {
	for b := range o {
		if !s.contains(b) {
			return false
		}
	}
	return true
}

// intersects reports whether s and o share a breadcrumb.
func (s breadcrumbSet) intersects(o breadcrumbSet) bool {
	small, large := s, o
	if len(small) > len(large) {
		small, large = large, small
	}
	for b := range small {
		if large.contains(b) {
			return true
		}
	}
	return false
}
