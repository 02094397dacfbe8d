package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitalmsg/internal/config"
	"vitalmsg/internal/types"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{Environment: "local", Service: "vitalmsg"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewServer(cfg, logger, nil)
	require.NoError(t, err)
	return s
}

func TestNewServerRequiresDependencies(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewServer(nil, logger, nil)
	assert.Error(t, err)

	_, err = NewServer(&config.Config{}, nil, nil)
	assert.Error(t, err)
}

func TestRecovererWritesStructured500(t *testing.T) {
	s := testServer(t)
	s.V1RouteRegistrars = append(s.V1RouteRegistrars, func(r chi.Router) {
		r.Get("/boom", func(http.ResponseWriter, *http.Request) {
			panic("unexpected condition")
		})
	})
	s.MountRoutes()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeInternalUnexpected), resp.Error.Code)
}

func TestRequestIDPropagated(t *testing.T) {
	s := testServer(t)
	var seen string
	s.V1RouteRegistrars = append(s.V1RouteRegistrars, func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			seen = types.GetRequestID(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})
	})
	s.MountRoutes()

	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))
}

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	s := testServer(t)
	s.MountRoutes()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Len(t, rec.Header().Get("X-Request-Id"), 32)
}

func TestSecurityHeadersPresent(t *testing.T) {
	s := testServer(t)
	s.MountRoutes()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestHealthNoProbes(t *testing.T) {
	s := testServer(t)
	s.MountRoutes()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestHealthUnhealthyProbe(t *testing.T) {
	s := testServer(t)
	s.HealthProbes = []HealthProbe{
		ProbeFunc{ProbeName: "database", Fn: func(context.Context) error { return nil }},
		ProbeFunc{ProbeName: "queue", Fn: func(context.Context) error { return errors.New("closed") }},
	}
	s.MountRoutes()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp struct {
		Status     string `json:"status"`
		Components map[string]struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "healthy", resp.Components["database"].Status)
	assert.Equal(t, "unhealthy", resp.Components["queue"].Status)
}

func TestErrorWritesAppErrorStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	Error(rec, req, types.NewAppError(types.ErrCodeNotFoundMessage, "message not found", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found_message")
}

func TestErrorHidesGenericDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	Error(rec, req, errors.New("pq: secret connection string"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.Contains(t, rec.Body.String(), "internal_unexpected_error")
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nope":1}`))

	var dst struct {
		Kind string `json:"kind"`
	}
	err := DecodeJSON(rec, req, &dst)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeValidationPayload, types.CodeOf(err))
}

func TestDecodeJSONRejectsEmptyBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))

	var dst map[string]any
	err := DecodeJSON(rec, req, &dst)
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeValidationPayload, types.CodeOf(err))
}

func TestValidatorJurisdictionTag(t *testing.T) {
	v := NewValidator()

	type req struct {
		Jurisdiction string `validate:"required,jurisdiction"`
		Kind         string `validate:"required,message_kind"`
	}

	assert.NoError(t, v.ValidateStruct(req{Jurisdiction: "NY", Kind: "submission"}))

	err := v.ValidateStruct(req{Jurisdiction: "ZZ", Kind: "submission"})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeValidationJurisdiction, types.CodeOf(err))

	err = v.ValidateStruct(req{Jurisdiction: "NY", Kind: "acknowledgement"})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeValidationKind, types.CodeOf(err))

	err = v.ValidateStruct(req{Kind: "submission"})
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeValidationMissingField, types.CodeOf(err))
}
