// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

// dagNode is a finalized node of the trace DAG.
//
// A node is reusable below any path prefix whose visited breadcrumbs
// contain every required and none of the forbidden breadcrumbs: under such
// a prefix, exploring from the node's hop yields exactly its subtree.
type dagNode struct {
	info       *HopInfo
	successors []*dagNode
	required   breadcrumbSet
	forbidden  breadcrumbSet
}

// dagBuilder is a node whose subtree is still being explored.
type dagBuilder struct {
	info      *HopInfo
	key       fingerprint
	finalized []*dagNode
	open      *dagBuilder
}

// dagRecorder folds the paths of a depth first exploration into a DAG,
// sharing subtrees between hops with the same initial flow and steps.
type dagRecorder struct {
	roots    []*dagNode
	open     *dagBuilder
	variants map[fingerprint][]*dagNode
}

func newDagRecorder() *dagRecorder {
	return &dagRecorder{variants: map[fingerprint][]*dagNode{}}
}

func (r *dagRecorder) RecordTrace(hops []*HopInfo) error {
	_, err := r.record(hops)
	return err
}

func (r *dagRecorder) TryRecordPartialTrace(hops []*HopInfo) (bool, error) {
	return r.record(hops)
}

// record walks down the open builders along hops. The first hop that is
// not the open builder of its level closes that builder, then either
// reuses a matching finalized node or opens a new builder.
func (r *dagRecorder) record(hops []*HopInfo) (bool, error) {
	finalized, open := &r.roots, &r.open
	context := breadcrumbSet{}

	for i, h := range hops {
		if *open != nil && (*open).info == h {
			if h.Visited != nil {
				context[*h.Visited] = struct{}{}
			}
			finalized, open = &(*open).finalized, &(*open).open
			continue
		}

		if *open != nil {
			n, err := r.build(*open)
			if err != nil {
				return false, err
			}
			if n != nil {
				*finalized = append(*finalized, n)
			}
			*open = nil
		}

		if i != len(hops)-1 {
			return false, invariantf("path diverges from the recorded paths before its last hop at %s", h.Hop.Node)
		}

		key, err := hopKey(h)
		if err != nil {
			return false, err
		}
		if n := r.reusable(key, context); n != nil {
			*finalized = append(*finalized, n)
			return true, nil
		}
		*open = &dagBuilder{info: h, key: key}
		return false, nil
	}
	return false, nil
}

// reusable returns a finalized node for key usable under context.
func (r *dagRecorder) reusable(key fingerprint, context breadcrumbSet) *dagNode {
	for _, n := range r.variants[key] {
		if context.containsAll(n.required) && !context.intersects(n.forbidden) {
			return n
		}
	}
	return nil
}

// build finalizes b and its open descendants. Forwarded hops without any
// recorded continuation yield nil.
func (r *dagRecorder) build(b *dagBuilder) (*dagNode, error) {
	if b.open != nil {
		n, err := r.build(b.open)
		if err != nil {
			return nil, err
		}
		if n != nil {
			b.finalized = append(b.finalized, n)
		}
		b.open = nil
	}

	h := b.info
	if !h.IsTerminal() && len(b.finalized) == 0 {
		return nil, nil
	}

	n := &dagNode{
		info:       h,
		successors: b.finalized,
		required:   breadcrumbSet{},
		forbidden:  breadcrumbSet{},
	}
	if h.LoopDetected != nil {
		n.required[*h.LoopDetected] = struct{}{}
	}
	if h.Visited != nil {
		n.forbidden[*h.Visited] = struct{}{}
	}

	for _, s := range n.successors {
		if h.Visited != nil && s.forbidden.contains(*h.Visited) {
			return nil, invariantf("successor of hop at %s forbids the breadcrumb of its parent %s", h.Hop.Node, h.Visited)
		}
		for c := range s.forbidden {
			n.forbidden[c] = struct{}{}
		}
		for c := range s.required {
			if h.Visited == nil || c != *h.Visited {
				n.required[c] = struct{}{}
			}
		}
	}
	if h.Visited != nil && n.required.contains(*h.Visited) {
		return nil, invariantf("hop at %s requires its own breadcrumb %s", h.Hop.Node, h.Visited)
	}

	r.variants[b.key] = append(r.variants[b.key], n)
	return n, nil
}

// dag finalizes all open builders and flattens the recorded DAG.
func (r *dagRecorder) dag() (*TraceDag, error) {
	if r.open != nil {
		n, err := r.build(r.open)
		if err != nil {
			return nil, err
		}
		if n != nil {
			r.roots = append(r.roots, n)
		}
		r.open = nil
	}
	return flatten(r.roots), nil
}
