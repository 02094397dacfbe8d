// Package core provides the HTTP chassis for the vitalmsg service: a chi
// router with the cross-cutting middleware chain (panic recovery, request
// correlation, structured logging, security headers, request metrics) applied
// before requests reach the domain handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vitalmsg/internal/config"
	"vitalmsg/internal/metrics"
)

// Server encapsulates the API dependencies, allowing injection during
// testing and distinct configuration per environment.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Metrics   *metrics.Pipeline
	Validator *Validator

	// V1RouteRegistrars is populated by the entry point with the domain
	// handler mounts. The indirection avoids an import cycle between core
	// and the handler packages.
	V1RouteRegistrars []func(chi.Router)

	// HealthProbes are checked by GET /health.
	HealthProbes []HealthProbe

	// OnShutdown holds cleanup hooks run by Shutdown in registration order.
	OnShutdown []func() error

	router *chi.Mux
}

// NewServer initializes the chassis and prepares the router for route
// mounting. The caller mounts routes via MountRoutes after registering
// handlers and probes.
func NewServer(cfg *config.Config, logger *slog.Logger, m *metrics.Pipeline) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Metrics:   m,
		Validator: NewValidator(),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown runs the registered cleanup hooks. It is called after the HTTP
// listener has stopped accepting requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	for _, hook := range s.OnShutdown {
		if err := hook(); err != nil {
			s.Logger.Error("shutdown hook failed", "error", err)
			return fmt.Errorf("running shutdown hook: %w", err)
		}
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
