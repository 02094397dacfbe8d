package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"vitalmsg/internal/core"
	"vitalmsg/internal/metrics"
	"vitalmsg/internal/types"
)

// OutgoingRepo defines the data access contract for the outgoing-message
// feeds. Mirrors the concrete db.OutgoingRepository methods used here.
type OutgoingRepo interface {
	ListUnretrieved(ctx context.Context, jurisdiction string, consumer types.FeedConsumer, limit int) ([]*types.OutgoingMessage, error)
	MarkRetrieved(ctx context.Context, ids []string, consumer types.FeedConsumer, at time.Time) error
}

// FeedHandler serves the acknowledgement/error feeds. Jurisdictions poll
// their own messages; STEVE polls across all jurisdictions. Each consumer
// has its own retrieved marker, stamped on delivery, so a message is handed
// to each consumer at most once.
type FeedHandler struct {
	repo    OutgoingRepo
	metrics *metrics.Pipeline
	logger  *slog.Logger
}

// NewFeedHandler creates a FeedHandler with the provided dependencies.
func NewFeedHandler(repo OutgoingRepo, m *metrics.Pipeline, l *slog.Logger) *FeedHandler {
	if l == nil {
		l = slog.Default()
	}
	return &FeedHandler{
		repo:    repo,
		metrics: m,
		logger:  l,
	}
}

// RegisterRoutes mounts the feed routes on the provided chi.Router.
func (h *FeedHandler) RegisterRoutes(r chi.Router) {
	r.Get("/jurisdictions/{code}/messages", h.JurisdictionFeed)
	r.Get("/steve/messages", h.SteveFeed)
}

// JurisdictionFeed handles GET /v1/jurisdictions/{code}/messages: the
// unretrieved acknowledgements and errors for one jurisdiction, marked
// retrieved on delivery.
func (h *FeedHandler) JurisdictionFeed(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if !types.ValidJurisdiction(code) {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationJurisdiction, "unknown jurisdiction code "+code, nil))
		return
	}

	h.serveFeed(w, r, code, types.ConsumerJurisdiction)
}

// SteveFeed handles GET /v1/steve/messages: the unretrieved feed across all
// jurisdictions, tracked by the independent STEVE marker.
func (h *FeedHandler) SteveFeed(w http.ResponseWriter, r *http.Request) {
	h.serveFeed(w, r, "", types.ConsumerSteve)
}

func (h *FeedHandler) serveFeed(w http.ResponseWriter, r *http.Request, jurisdiction string, consumer types.FeedConsumer) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	msgs, err := h.repo.ListUnretrieved(r.Context(), jurisdiction, consumer, limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if len(msgs) > 0 {
		ids := make([]string, len(msgs))
		for i, m := range msgs {
			ids[i] = m.ID
		}
		if err := h.repo.MarkRetrieved(r.Context(), ids, consumer, time.Now().UTC()); err != nil {
			// Not stamped means the messages will be served again next poll;
			// fail the request rather than hand out an inconsistent batch.
			core.Error(w, r, err)
			return
		}

		h.metrics.Retrieved.WithLabelValues(string(consumer)).Add(float64(len(msgs)))
	}

	h.logger.Info("feed served",
		"consumer", string(consumer),
		"jurisdiction", jurisdiction,
		"count", len(msgs),
	)

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: msgs})
}
