// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package flowtrace

import (
	"errors"
	"fmt"
)

var (
	// ErrLoadSnapshot is returned when the snapshot cannot be loaded
	ErrLoadSnapshot = errors.New("failed to load snapshot")
	// ErrLoadFlows is returned when the flow file cannot be read or none of
	// its flow specs matches an ingress point
	ErrLoadFlows = errors.New("failed to load flows")
	// ErrWriteOutput is returned when the report cannot be written
	ErrWriteOutput = errors.New("failed to write output")
)

// ErrFlowsFailed is returned when some flows could not be explored or
// some flow specs matched no ingress point. The report is written
// nevertheless.
type ErrFlowsFailed struct {
	Failed int
	Total  int
	// Unmatched is the number of flow specs that expanded to no flow
	Unmatched int

	specs error
}

func (e ErrFlowsFailed) Error() string {
	msg := fmt.Sprintf("%d of %d flows could not be explored", e.Failed, e.Total)
	if e.Unmatched > 0 {
		msg += fmt.Sprintf(", %d flow specs matched no ingress point: %v", e.Unmatched, e.specs)
	}
	return msg
}

// Unwrap returns the expansion errors of the unmatched flow specs
func (e ErrFlowsFailed) Unwrap() error {
	return e.specs
}

// ErrShutdown holds any errors that may
// have occurred during shutdown of a run
type ErrShutdown struct {
	errAPI     error
	errMetrics error
}

// HasError returns true if any of the errors are set
func (e ErrShutdown) HasError() bool {
	return e.errAPI != nil || e.errMetrics != nil
}

func (e ErrShutdown) Error() string {
	return fmt.Sprintf("shutdown failed: %v", errors.Join(e.errAPI, e.errMetrics))
}

func (e ErrShutdown) Unwrap() []error {
	return []error{e.errAPI, e.errMetrics}
}
