// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/telekom/flowtrace/internal/logger"
)

//go:generate go tool moq -out api_moq.go . API
type API interface {
	// Run serves the registered routes until the server is shut down.
	Run(ctx context.Context) error
	// Shutdown gracefully stops the server.
	Shutdown(ctx context.Context) error
	// RegisterRoutes adds routes to the router. It must be called before Run.
	RegisterRoutes(ctx context.Context, routes ...Route) error
}

type api struct {
	server *http.Server
	router chi.Router
	// middleware installs the logger middleware once, before the first
	// route
	middleware sync.Once
}

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Config is the configuration of the api server
type Config struct {
	// ListeningAddress is the address the server listens on, e.g. ":8080".
	// The server is disabled if it is empty.
	ListeningAddress string `yaml:"address" mapstructure:"address"`
}

// Validate checks that the listening address is a host:port pair
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.ListeningAddress); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return nil
}

// Route is a route served by the api
type Route struct {
	Path    string
	Method  string
	Handler http.HandlerFunc
}

// New creates a new api server
func New(cfg Config) API {
	r := chi.NewRouter()
	return &api{
		server: &http.Server{Addr: cfg.ListeningAddress, Handler: r, ReadHeaderTimeout: readHeaderTimeout},
		router: r,
	}
}

// Run serves the api. It blocks until the context is canceled or the
// server fails.
func (a *api) Run(ctx context.Context) error {
	ctx, cancel := logger.NewContextWithLogger(ctx)
	defer cancel()
	log := logger.FromContext(ctx)

	cErr := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "Serving api", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "Failed to serve api", "error", err)
			cErr <- err
		}
		close(cErr)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrServerStop, ctx.Err())
	case err, ok := <-cErr:
		if ok && err != nil {
			return fmt.Errorf("%w: %w", ErrServerStop, err)
		}
		return nil
	}
}

// Shutdown gracefully stops the server
func (a *api) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "Failed to shutdown api server", "error", err)
		return fmt.Errorf("failed shutting down api server: %w", err)
	}
	return nil
}

// RegisterRoutes registers the routes behind the logger middleware
func (a *api) RegisterRoutes(ctx context.Context, routes ...Route) error {
	a.middleware.Do(func() { a.router.Use(logger.Middleware(ctx)) })
	for _, route := range routes {
		switch route.Method {
		case http.MethodGet:
			a.router.Get(route.Path, route.Handler)
		case http.MethodHead:
			a.router.Head(route.Path, route.Handler)
		default:
			return fmt.Errorf("%w: %s %s", ErrInvalidRoute, route.Method, route.Path)
		}
	}
	return nil
}
