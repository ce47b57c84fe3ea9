// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/telekom/flowtrace/internal/helper"
	"github.com/telekom/flowtrace/internal/logger"
	"github.com/telekom/flowtrace/pkg/snapshot"
)

var _ Loader = (*HttpLoader)(nil)

type HttpLoader struct {
	config LoaderConfig
	client *http.Client
}

func NewHttpLoader(cfg *Config) *HttpLoader {
	return &HttpLoader{
		config: cfg.Snapshot,
		client: &http.Client{
			Timeout: cfg.Snapshot.Http.Timeout,
		},
	}
}

// Load fetches the snapshot from the remote endpoint, retrying with an
// exponential backoff as configured.
func (hl *HttpLoader) Load(ctx context.Context) (*snapshot.Snapshot, error) {
	log := logger.FromContext(ctx).With("url", hl.config.Http.Url)

	var s *snapshot.Snapshot
	getSnapshotRetry := helper.Retry(func(ctx context.Context) (err error) {
		s, err = hl.getSnapshot(ctx)
		return err
	}, hl.config.Http.RetryCfg)

	if err := getSnapshotRetry(ctx); err != nil {
		log.Warn("Could not get remote snapshot", "error", err)
		return nil, fmt.Errorf("could not get remote snapshot: %w", err)
	}

	log.Info("Successfully got remote snapshot", "nodes", len(s.Nodes), "edges", len(s.Edges))
	return s, nil
}

// getSnapshot gets the snapshot from the configured endpoint.
func (hl *HttpLoader) getSnapshot(ctx context.Context) (s *snapshot.Snapshot, err error) {
	log := logger.FromContext(ctx).With("url", hl.config.Http.Url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hl.config.Http.Url, http.NoBody)
	if err != nil {
		log.Error("Could not create http GET request", "error", err.Error())
		return nil, err
	}
	if hl.config.Http.Token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", hl.config.Http.Token))
	}

	res, err := hl.client.Do(req) //nolint:bodyclose // closed in defer
	if err != nil {
		log.Error("Http get request failed", "error", err.Error())
		return nil, err
	}
	defer func() {
		cerr := res.Body.Close()
		if cerr != nil {
			log.Error("Failed to close response body", "error", cerr)
		}
		err = errors.Join(cerr, err)
	}()

	if res.StatusCode != http.StatusOK {
		log.Error("Http get request failed", "status", res.Status)
		err = fmt.Errorf("request failed, status is %s", res.Status)
		if isPermanentStatus(res.StatusCode) {
			return nil, helper.Permanent(err)
		}
		return nil, err
	}

	s, err = snapshot.Parse(res.Body)
	if err != nil {
		log.Error("Could not unmarshal response", "error", err.Error())
		return nil, err
	}
	return s, nil
}

// isPermanentStatus reports whether a client error status will not change
// on retry. Rate limiting and request timeouts are retried.
func isPermanentStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return code >= http.StatusBadRequest && code < http.StatusInternalServerError
}
