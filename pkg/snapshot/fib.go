// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"net/netip"
	"slices"

	"github.com/telekom/flowtrace/internal/traceroute"
)

var _ traceroute.Fib = (*fib)(nil)

// fib is the forwarding table of one vrf, indexed by masked prefix.
type fib struct {
	entries map[netip.Prefix][]traceroute.FibEntry
	// lengths are the distinct prefix lengths in descending order.
	lengths []int
}

func newFib() *fib {
	return &fib{entries: map[netip.Prefix][]traceroute.FibEntry{}}
}

func (f *fib) add(r Route) {
	p := r.Prefix.Masked()
	resolved := r.ResolvedNextHopIP
	if !resolved.IsValid() {
		resolved = r.NextHopIP
	}
	e := traceroute.FibEntry{
		Interface:         r.Interface,
		ResolvedNextHopIP: resolved,
		Route: traceroute.RouteInfo{
			Network:   p,
			Protocol:  r.Protocol,
			NextHopIP: r.NextHopIP,
		},
	}
	if slices.Contains(f.entries[p], e) {
		return
	}
	f.entries[p] = append(f.entries[p], e)
	if !slices.Contains(f.lengths, p.Bits()) {
		f.lengths = append(f.lengths, p.Bits())
		slices.SortFunc(f.lengths, func(a, b int) int { return b - a })
	}
}

// longestMatch returns the entries of the most specific prefix containing
// dst.
func (f *fib) longestMatch(dst netip.Addr) []traceroute.FibEntry {
	for _, bits := range f.lengths {
		p, err := dst.Prefix(bits)
		if err != nil {
			continue
		}
		if entries, ok := f.entries[p]; ok {
			return entries
		}
	}
	return nil
}

func (f *fib) NextHopInterfaces(dst netip.Addr) []string {
	var ifaces []string
	for _, e := range f.longestMatch(dst) {
		if !slices.Contains(ifaces, e.Interface) {
			ifaces = append(ifaces, e.Interface)
		}
	}
	return ifaces
}

func (f *fib) NextHopInterfacesByRoute(dst netip.Addr) []traceroute.FibEntry {
	return slices.Clone(f.longestMatch(dst))
}
