// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"fmt"
	"runtime"

	"github.com/telekom/flowtrace/internal/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var (
	_ Explorer = (*engine)(nil)
)

// Explorer discovers every path a flow can take through a network.
//
//go:generate go tool moq -out explorer_moq.go . Explorer
type Explorer interface {
	// ExploreFlow returns every distinct trace of the flow.
	ExploreFlow(ctx context.Context, flow Flow) ([]TraceAndReverseFlow, error)
	// ExploreFlowCompressed returns the traces of the flow folded into a DAG.
	ExploreFlowCompressed(ctx context.Context, flow Flow) (*TraceDag, error)
	// ExploreFlows explores the flows in parallel. A failing flow does not
	// affect the others; its error is part of its result.
	ExploreFlows(ctx context.Context, flows []Flow, opts *Options) []FlowResult
}

// Mode selects how the traces of a flow are recorded.
type Mode string

const (
	// ModeDirect materializes every trace.
	ModeDirect Mode = "direct"
	// ModeDag folds the traces into a [TraceDag].
	ModeDag Mode = "dag"
)

// Validate checks that the mode is known.
func (m Mode) Validate() error {
	switch m {
	case ModeDirect, ModeDag:
		return nil
	default:
		return fmt.Errorf("unknown exploration mode %q", m)
	}
}

// Options configure [Explorer.ExploreFlows].
type Options struct {
	// Mode selects the recorder, defaults to [ModeDirect].
	Mode Mode `json:"mode" yaml:"mode" mapstructure:"mode"`
	// Parallelism is the number of flows explored at once. Zero or less
	// uses one worker per CPU.
	Parallelism int `json:"parallelism" yaml:"parallelism" mapstructure:"parallelism"`
	// IgnoreFilters permits every flow at every acl, including the acls
	// of firewall sessions.
	IgnoreFilters bool `json:"ignoreFilters" yaml:"ignoreFilters" mapstructure:"ignoreFilters"`
}

// FlowResult is the outcome of exploring one flow. Exactly one of Traces
// and Dag is set unless Err is.
type FlowResult struct {
	Flow   Flow
	Traces []TraceAndReverseFlow
	Dag    *TraceDag
	// Paths is the number of complete paths the explorer visited.
	Paths int
	Err   error
}

type engine struct {
	network  Network
	sessions SessionStore
}

// NewExplorer returns an [Explorer] over the network. sessions may be nil
// if no firewall sessions are established.
func NewExplorer(network Network, sessions SessionStore) Explorer {
	return &engine{network: network, sessions: sessions}
}

func (e *engine) ExploreFlow(ctx context.Context, flow Flow) ([]TraceAndReverseFlow, error) {
	rec := newDirectRecorder()
	if _, err := e.explore(ctx, flow, rec, &Options{}); err != nil {
		return nil, err
	}
	return rec.traces, nil
}

func (e *engine) ExploreFlowCompressed(ctx context.Context, flow Flow) (*TraceDag, error) {
	rec := newDagRecorder()
	if _, err := e.explore(ctx, flow, rec, &Options{}); err != nil {
		return nil, err
	}
	dag, err := rec.dag()
	if err != nil {
		return nil, wrapError(ctx, err, "failed to build trace dag of %s", flow)
	}
	return dag, nil
}

// explore runs the explorer for flow with rec and returns the number of
// complete paths it visited.
func (e *engine) explore(ctx context.Context, flow Flow, rec Recorder, opts *Options) (int, error) {
	tracer := trace.SpanFromContext(ctx).TracerProvider().Tracer("traceroute.engine")
	ctx, sp := tracer.Start(ctx, "ExploreFlow", trace.WithAttributes(
		attribute.Stringer("traceroute.flow", flow),
		attribute.String("traceroute.flow.ingress_node", flow.IngressNode),
	))
	defer sp.End()
	log := logger.FromContext(ctx).With("flow", flow.String())

	if err := flow.Validate(); err != nil {
		return 0, wrapError(ctx, err, "invalid flow %s", flow)
	}

	counter := &countingRecorder{Recorder: rec}
	x := &exploration{network: e.network, sessions: e.sessions, recorder: counter, ignoreFilters: opts.IgnoreFilters}
	b, err := newInitialBranch(x, flow)
	if err != nil {
		return 0, wrapError(ctx, err, "invalid flow %s", flow)
	}

	log.DebugContext(ctx, "Exploring flow")
	if err := b.processHop(); err != nil {
		return 0, wrapError(ctx, err, "failed to explore flow %s", flow)
	}

	sp.SetAttributes(attribute.Int("traceroute.paths", counter.paths))
	log.DebugContext(ctx, "Explored flow", "paths", counter.paths)
	return counter.paths, nil
}

func (e *engine) ExploreFlows(ctx context.Context, flows []Flow, opts *Options) []FlowResult {
	if opts == nil {
		opts = &Options{}
	}
	limit := opts.Parallelism
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	results := make([]FlowResult, len(flows))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, flow := range flows {
		g.Go(func() error {
			results[i] = e.exploreOne(ctx, flow, opts)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *engine) exploreOne(ctx context.Context, flow Flow, opts *Options) FlowResult {
	res := FlowResult{Flow: flow}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	switch opts.Mode {
	case ModeDag:
		rec := newDagRecorder()
		if res.Paths, res.Err = e.explore(ctx, flow, rec, opts); res.Err == nil {
			res.Dag, res.Err = rec.dag()
		}
	case ModeDirect, "":
		rec := newDirectRecorder()
		if res.Paths, res.Err = e.explore(ctx, flow, rec, opts); res.Err == nil {
			res.Traces = rec.traces
		}
	default:
		res.Err = opts.Mode.Validate()
	}
	return res
}
