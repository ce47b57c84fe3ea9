// Package traceroute explores the paths a flow takes through a modeled
// network without sending a single packet.
//
// Given a [Network] snapshot and a [Flow] entering it at a node, the
// [Explorer] walks the flow hop by hop: it matches established firewall
// sessions, applies filters and transformations, looks the destination up
// in the FIB and forks on every equal-cost choice, resolves neighbors and
// classifies why a flow left the network or was dropped. Forwarding loops
// are detected with breadcrumbs, so exploration always terminates.
//
// Every complete path is handed to a [Recorder]. Direct recording keeps one
// [TraceAndReverseFlow] per path, DAG recording folds paths sharing a
// sub-path into a [TraceDag] which expands back into the same traces.
//
// Typical usage:
//
//	explorer := traceroute.NewExplorer(network, sessions)
//	traces, err := explorer.ExploreFlow(ctx, flow)
//	dag, err := explorer.ExploreFlowCompressed(ctx, flow)
//	// dag.Size() == len(traces)
package traceroute
