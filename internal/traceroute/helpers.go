// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/telekom/flowtrace/internal/logger"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"lukechampine.com/blake3"
)

// fingerprint identifies a value by the hash of its JSON encoding.
type fingerprint [32]byte

func fingerprintOf(v any) (fingerprint, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return fingerprint{}, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return blake3.Sum256(b), nil
}

// hopKey is the identity of a hop in the trace DAG: the flow that entered
// the hop and what happened at it.
func hopKey(h *HopInfo) (fingerprint, error) {
	return fingerprintOf(struct {
		InitialFlow Flow `json:"initialFlow"`
		Hop         Hop  `json:"hop"`
	}{h.InitialFlow, h.Hop})
}

// wrapError wraps an error with a message and logs it.
// It also records the error in the current OpenTelemetry span.
func wrapError(ctx context.Context, err error, msg string, args ...any) error {
	if err == nil {
		return nil
	}
	log := logger.FromContext(ctx)
	span := trace.SpanFromContext(ctx)
	caser := cases.Title(language.English)

	wrapped := fmt.Sprintf(msg, args...)
	log.ErrorContext(ctx, caser.String(wrapped), "error", err)
	span.SetStatus(codes.Error, wrapped)
	span.RecordError(err)
	return fmt.Errorf("%s: %w", wrapped, err)
}
