// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/telekom/flowtrace/pkg/reachability"
)

type jsonWriter struct {
	compress bool
}

func (j *jsonWriter) Write(w io.Writer, r *reachability.Report) error {
	if !j.compress {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	encoder, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	if err := json.NewEncoder(encoder).Encode(r); err != nil {
		_ = encoder.Close()
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to flush zstd encoder: %w", err)
	}
	return nil
}
