// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/telekom/flowtrace/pkg/reachability"
)

// Format is the encoding a report is written in
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
	FormatDOT  Format = "dot"
)

// ErrInvalidFormat is returned for an unknown output format
var ErrInvalidFormat = errors.New("invalid output format")

// Validate checks that the format is known. The empty format selects json.
func (f Format) Validate() error {
	switch f {
	case "", FormatJSON, FormatText, FormatDOT:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, string(f))
	}
}

// Writer encodes reports
type Writer interface {
	// Write encodes the report to w
	Write(w io.Writer, r *reachability.Report) error
}

// New returns the writer of the format. Compression is only supported for
// json.
func New(format Format, compress bool) (Writer, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	switch format {
	case FormatText:
		return &textWriter{}, nil
	case FormatDOT:
		return &dotWriter{}, nil
	default:
		return &jsonWriter{compress: compress}, nil
	}
}
