// Package handlers contains the HTTP handler implementations for the
// vitalmsg API: message ingestion, message status, and the outgoing-message
// feeds polled by jurisdictions and the STEVE aggregator.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"vitalmsg/internal/core"
	"vitalmsg/internal/metrics"
	"vitalmsg/internal/queue"
	"vitalmsg/internal/types"
)

// maxMessageBody bounds an inbound message payload. IJE records are 5000
// bytes; a full envelope with a death record is well under this.
const maxMessageBody = 1 << 20 // 1 MB

// InboundRepo defines the data access contract for message ingestion.
// Mirrors the concrete db.InboundRepository methods used by this handler.
type InboundRepo interface {
	Insert(ctx context.Context, m *types.InboundMessage) error
	GetByID(ctx context.Context, id int64) (*types.InboundMessage, error)
}

// WorkEnqueuer hands accepted messages to the conversion pipeline. Enqueue
// blocks while the queue is full and returns queue.ErrClosed during
// shutdown.
type WorkEnqueuer interface {
	Enqueue(ctx context.Context, order queue.WorkOrder) error
}

// SubmitMessageRequest is the validation view of an inbound message
// envelope. The raw body is persisted as the payload; only the fields needed
// for routing and feed scoping are lifted out and checked here.
type SubmitMessageRequest struct {
	MessageID    string `json:"message_id" validate:"required"`
	Kind         string `json:"kind" validate:"required,message_kind"`
	Jurisdiction string `json:"jurisdiction" validate:"required,jurisdiction"`
	CertNumber   string `json:"cert_number"`
	EventYear    int    `json:"event_year"`
}

// MessageAccepted is the response body for a successful submission.
type MessageAccepted struct {
	ID        int64                  `json:"id"`
	MessageID string                 `json:"message_id"`
	Status    types.ProcessingStatus `json:"status"`
}

// MessageHandler manages message ingestion and status reads.
type MessageHandler struct {
	repo      InboundRepo
	enqueuer  WorkEnqueuer
	validator *core.Validator
	metrics   *metrics.Pipeline
	logger    *slog.Logger
}

// NewMessageHandler creates a MessageHandler with the provided dependencies.
func NewMessageHandler(repo InboundRepo, enqueuer WorkEnqueuer, v *core.Validator, m *metrics.Pipeline, l *slog.Logger) *MessageHandler {
	if l == nil {
		l = slog.Default()
	}
	return &MessageHandler{
		repo:      repo,
		enqueuer:  enqueuer,
		validator: v,
		metrics:   m,
		logger:    l,
	}
}

// RegisterRoutes mounts message routes on the provided chi.Router.
func (h *MessageHandler) RegisterRoutes(r chi.Router) {
	r.Route("/messages", func(r chi.Router) {
		r.Post("/", h.Submit)
		r.Get("/{id}", h.Get)
	})
}

// Submit handles POST /v1/messages.
//
// The full body is stored verbatim as the message payload; decode failures
// inside it surface later as error-kind outgoing messages, not as HTTP
// errors. Only envelope routing fields are validated here. The message is
// persisted before enqueue, so a 503 during shutdown means "stored but not
// scheduled", never silent loss.
func (h *MessageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBody)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			core.Error(w, r, types.NewAppError(types.ErrCodeValidationPayload, "request body must not exceed 1MB", err))
			return
		}
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationPayload, "failed to read request body", err))
		return
	}

	var req SubmitMessageRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationPayload, "request body is not a valid message envelope", err))
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	msg := &types.InboundMessage{
		Payload:      raw,
		MessageID:    req.MessageID,
		Kind:         types.MessageKind(req.Kind),
		Jurisdiction: req.Jurisdiction,
		CertNumber:   req.CertNumber,
		EventYear:    req.EventYear,
		EventType:    "death",
		Status:       types.StatusQueued,
		Outcome:      types.OutcomePending,
		Source:       "api",
	}
	if err := h.repo.Insert(r.Context(), msg); err != nil {
		core.Error(w, r, err)
		return
	}

	order := queue.WorkOrder{Kind: queue.WorkConvert, MessageID: msg.ID}
	if err := h.enqueuer.Enqueue(r.Context(), order); err != nil {
		if errors.Is(err, queue.ErrClosed) {
			core.Error(w, r, types.NewAppError(types.ErrCodeQueueClosed, "service is shutting down, message stored but not scheduled", err))
			return
		}
		core.Error(w, r, err)
		return
	}

	h.metrics.Ingested.WithLabelValues(req.Kind).Inc()
	h.logger.Info("message accepted",
		"inbound_id", msg.ID,
		"message_id", msg.MessageID,
		"kind", req.Kind,
		"jurisdiction", req.Jurisdiction,
	)

	core.JSON(w, r, http.StatusAccepted, core.APIResponse{Data: MessageAccepted{
		ID:        msg.ID,
		MessageID: msg.MessageID,
		Status:    msg.Status,
	}})
}

// Get handles GET /v1/messages/{id}: processing status and conversion
// outcome for one inbound message.
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationPayload, "message id must be an integer", err))
		return
	}

	msg, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: msg})
}
