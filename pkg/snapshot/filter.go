// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"fmt"
	"slices"

	"github.com/telekom/flowtrace/internal/traceroute"
)

// implicitDeny is the matched line of flows no acl line matches.
const implicitDeny = "(implicit deny)"

type aclLine struct {
	name   string
	permit bool
	cond   *condition
}

type acl struct {
	lines []aclLine
}

func compileAcl(a Acl) (*acl, error) {
	if a.Name == "" {
		return nil, fmt.Errorf("acl without name")
	}
	compiled := &acl{}
	for i, l := range a.Lines {
		if l.Action != Permit && l.Action != Deny {
			return nil, fmt.Errorf("acl %q line %d: unknown action %q", a.Name, i, l.Action)
		}
		cond, err := compileCondition(l.Match)
		if err != nil {
			return nil, fmt.Errorf("acl %q line %d: %w", a.Name, i, err)
		}
		name := l.Name
		if name == "" {
			name = fmt.Sprintf("line %d", i)
		}
		compiled.lines = append(compiled.lines, aclLine{name: name, permit: l.Action == Permit, cond: cond})
	}
	return compiled, nil
}

func (a *acl) filter(f traceroute.Flow, srcIface string) (traceroute.FilterResult, error) {
	for _, l := range a.lines {
		ok, err := l.cond.matches(f, srcIface)
		if err != nil {
			return traceroute.FilterResult{}, fmt.Errorf("line %q: %w", l.name, err)
		}
		if ok {
			return traceroute.FilterResult{Permitted: l.permit, MatchedLine: l.name}, nil
		}
	}
	return traceroute.FilterResult{MatchedLine: implicitDeny}, nil
}

var fieldOrder = []traceroute.FlowField{
	traceroute.FieldSrcIP,
	traceroute.FieldDstIP,
	traceroute.FieldSrcPort,
	traceroute.FieldDstPort,
}

type rule struct {
	typ   string
	cond  *condition
	diffs []traceroute.FlowDiff
}

type transformation struct {
	rules []rule
}

func compileTransformation(t Transformation) (*transformation, error) {
	if t.Name == "" {
		return nil, fmt.Errorf("transformation without name")
	}
	compiled := &transformation{}
	for i, r := range t.Rules {
		cond, err := compileCondition(r.Match)
		if err != nil {
			return nil, fmt.Errorf("transformation %q rule %d: %w", t.Name, i, err)
		}
		var diffs []traceroute.FlowDiff
		for field, value := range r.Set {
			if !slices.Contains(fieldOrder, field) {
				return nil, fmt.Errorf("transformation %q rule %d: unknown field %q", t.Name, i, field)
			}
			diffs = append(diffs, traceroute.FlowDiff{Field: field, NewValue: value})
		}
		slices.SortFunc(diffs, func(a, b traceroute.FlowDiff) int {
			return slices.Index(fieldOrder, a.Field) - slices.Index(fieldOrder, b.Field)
		})
		if _, err := traceroute.ApplyDiffs(traceroute.Flow{}, diffs); err != nil {
			return nil, fmt.Errorf("transformation %q rule %d: %w", t.Name, i, err)
		}
		typ := r.Type
		if typ == "" {
			typ = t.Name
		}
		compiled.rules = append(compiled.rules, rule{typ: typ, cond: cond, diffs: diffs})
	}
	return compiled, nil
}

// apply rewrites f with the first matching rule. A rewrite that changes
// the flow adds a transformation step.
func (t *transformation) apply(f traceroute.Flow, srcIface string) (traceroute.TransformationResult, error) {
	res := traceroute.TransformationResult{Flow: f}
	for _, r := range t.rules {
		ok, err := r.cond.matches(f, srcIface)
		if err != nil {
			return res, err
		}
		if !ok {
			continue
		}
		out, err := traceroute.ApplyDiffs(f, r.diffs)
		if err != nil {
			return res, err
		}
		if out != f {
			res.Flow = out
			res.Steps = []traceroute.Step{{
				Kind:   traceroute.StepTransformation,
				Action: traceroute.ActionTransformed,
				Detail: traceroute.TransformationDetail{Type: r.typ, Diffs: traceroute.FlowDiffs(f, out)},
			}}
		}
		return res, nil
	}
	return res, nil
}
