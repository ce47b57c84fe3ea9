// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

var (
	_ Recorder = (*directRecorder)(nil)
	_ Recorder = (*dagRecorder)(nil)
	_ Recorder = (*countingRecorder)(nil)
)

// Recorder receives the paths found while exploring a flow.
//
// The explorer visits paths depth first, so consecutive calls share the
// longest possible prefix, and every prefix is passed as the same *HopInfo
// values on each call.
//
//go:generate go tool moq -out recorder_moq.go . Recorder
type Recorder interface {
	// RecordTrace records a complete path. The last hop is terminal.
	RecordTrace(hops []*HopInfo) error
	// TryRecordPartialTrace offers a path prefix ending in a forwarded hop.
	// Returning true tells the explorer that the recorder already knows
	// every continuation of the prefix, so it is not explored further.
	TryRecordPartialTrace(hops []*HopInfo) (bool, error)
}

// directRecorder materializes every complete path as its own trace.
type directRecorder struct {
	seen   map[fingerprint]struct{}
	traces []TraceAndReverseFlow
}

func newDirectRecorder() *directRecorder {
	return &directRecorder{seen: map[fingerprint]struct{}{}}
}

// RecordTrace stores the trace described by hops unless an identical trace
// was recorded before.
func (r *directRecorder) RecordTrace(hops []*HopInfo) error {
	t := traceFromHops(hops)
	fp, err := fingerprintOf(t)
	if err != nil {
		return err
	}
	if _, ok := r.seen[fp]; ok {
		return nil
	}
	r.seen[fp] = struct{}{}
	r.traces = append(r.traces, t)
	return nil
}

func (r *directRecorder) TryRecordPartialTrace([]*HopInfo) (bool, error) {
	return false, nil
}

// countingRecorder counts the complete paths handed to the wrapped recorder.
// Wrapping keeps bookkeeping like path counting or path ceilings out of the
// explorer.
type countingRecorder struct {
	Recorder
	paths int
}

func (r *countingRecorder) RecordTrace(hops []*HopInfo) error {
	r.paths++
	return r.Recorder.RecordTrace(hops)
}
