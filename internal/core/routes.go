package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vitalmsg/internal/types"
)

// defaultRequestTimeout is the soft deadline applied to request contexts.
// Feed polls and enqueues are short; anything running longer is stuck.
const defaultRequestTimeout = 29 * time.Second

// defaultRedactedHeaders lists header names whose values are masked in
// request logs.
var defaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
}

// MountRoutes defines the top-level routing hierarchy: the global middleware
// chain, the /v1 group, and the operational endpoints.
func (s *Server) MountRoutes() {
	s.registerGlobalMiddleware()

	s.router.Route("/v1", s.mountV1)

	s.router.Get("/health", s.HandleHealth)
	if s.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}
}

// registerGlobalMiddleware applies middleware in strict order.
//
// Ordering rationale:
//  1. Recoverer       - outermost so every panic is caught.
//  2. ContextTimeout  - soft deadline on the request context.
//  3. RequestID       - correlation ID for logs and responses.
//  4. SecurityHeaders - present on all responses, including errors.
//  5. RequestLogger   - structured logging with redacted headers.
//  6. Metrics         - request latency recording by route pattern.
func (s *Server) registerGlobalMiddleware() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(defaultRequestTimeout))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(s.SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, defaultRedactedHeaders))
	s.router.Use(s.MetricsMiddleware)
}

// mountV1 registers all v1 endpoints via the registrars populated by the
// application entry point.
func (s *Server) mountV1(r chi.Router) {
	for _, registrar := range s.V1RouteRegistrars {
		registrar(r)
	}
}

// ContextTimeoutMiddleware sets a deadline on the request context. Handlers
// receive a cancelled context when it expires.
func ContextTimeoutMiddleware(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware generates or propagates a unique request ID for
// correlation across logs. An incoming X-Request-Id header is reused;
// otherwise a new random ID is generated. The ID is stored in the context
// and echoed as the X-Request-Id response header.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = generateRequestID()
		}

		ctx := types.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-Id", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// generateRequestID produces a random 32-character hex correlation ID.
func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing is effectively fatal elsewhere; still return a
		// non-empty ID for correlation.
		return "fallback-" + hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(b)
}
