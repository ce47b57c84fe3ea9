// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package framework

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/telekom/flowtrace/pkg/reachability"
)

// reportView is the part of a served report the assertions look at.
type reportView struct {
	ID        string               `json:"id"`
	Timestamp time.Time            `json:"timestamp"`
	Summary   reachability.Summary `json:"summary"`
	Results   []struct {
		Flow         json.RawMessage `json:"flow"`
		Dispositions map[string]int  `json:"dispositions"`
		Error        string          `json:"error"`
	} `json:"results"`
}

// ReportAssertion checks the report served by a running flowtrace.
type ReportAssertion struct {
	e2e          *E2E
	base         string
	schema       bool
	summary      *reachability.Summary
	dispositions []map[string]int
}

// ReportAssertion creates an assertion against the report served below
// base, e.g. http://localhost:8080.
func (e *E2E) ReportAssertion(base string) *ReportAssertion {
	return &ReportAssertion{e2e: e, base: base}
}

// WithSchema checks the report fields against the served openapi document.
func (a *ReportAssertion) WithSchema() *ReportAssertion {
	a.schema = true
	return a
}

// WithSummary sets the expected summary.
func (a *ReportAssertion) WithSummary(s reachability.Summary) *ReportAssertion {
	a.summary = &s
	return a
}

// WithDispositions sets the expected disposition counts per result, in
// report order.
func (a *ReportAssertion) WithDispositions(d ...map[string]int) *ReportAssertion {
	a.dispositions = d
	return a
}

// Assert fetches the report and runs the configured checks.
func (a *ReportAssertion) Assert() {
	t := a.e2e.t
	t.Helper()
	require.True(t, a.e2e.running.Load(), "ReportAssertion.Assert must be called after E2E.Run")

	status, data, err := get(t.Context(), a.base+"/report")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	if a.schema {
		require.NoError(t, a.assertSchema(data))
	}

	var got reportView
	require.NoError(t, json.Unmarshal(data, &got), "Failed to decode report")
	assert.NotEmpty(t, got.ID, "Report has no run id")
	assert.WithinDuration(t, time.Now(), got.Timestamp, time.Minute, "Report timestamp is not recent")

	if a.summary != nil {
		assert.Equal(t, *a.summary, got.Summary)
	}
	if a.dispositions != nil {
		require.Len(t, got.Results, len(a.dispositions))
		for i, want := range a.dispositions {
			assert.Equal(t, want, got.Results[i].Dispositions, "flow %s", string(got.Results[i].Flow))
		}
	}
}

// assertSchema checks that the top level fields of the report are the
// properties the openapi document describes for /report.
func (a *ReportAssertion) assertSchema(data []byte) error {
	ctx := a.e2e.t.Context()
	status, doc, err := get(ctx, a.base+"/openapi")
	if err != nil {
		return fmt.Errorf("failed to fetch openapi document: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("openapi document answered with status %d", status)
	}
	spec, err := openapi3.NewLoader().LoadFromData(doc)
	if err != nil {
		return fmt.Errorf("failed to load openapi document: %w", err)
	}
	if err = spec.Validate(ctx); err != nil {
		return fmt.Errorf("invalid openapi document: %w", err)
	}

	item := spec.Paths.Find("/report")
	if item == nil || item.Get == nil {
		return fmt.Errorf("no GET /report in openapi document")
	}
	res := item.Get.Responses.Status(http.StatusOK)
	if res == nil || res.Value == nil || res.Value.Content.Get("application/json") == nil {
		return fmt.Errorf("no json response for GET /report")
	}
	props := res.Value.Content.Get("application/json").Schema.Value.Properties

	var body map[string]json.RawMessage
	if err = json.Unmarshal(data, &body); err != nil {
		return fmt.Errorf("failed to decode report: %w", err)
	}
	for key := range body {
		if _, ok := props[key]; !ok {
			return fmt.Errorf("field %q is not part of the schema", key)
		}
	}
	return nil
}

// StatusAssertion checks that path below base answers with status.
func (e *E2E) StatusAssertion(base, path string, status int) {
	e.t.Helper()
	u, err := url.JoinPath(base, path)
	require.NoError(e.t, err)
	got, _, err := get(e.t.Context(), u)
	require.NoError(e.t, err)
	assert.Equal(e.t, status, got, "Unexpected status code for %s", u)
}

func get(ctx context.Context, u string) (status int, body []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return 0, nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err = io.ReadAll(resp.Body)
	return resp.StatusCode, body, err
}
