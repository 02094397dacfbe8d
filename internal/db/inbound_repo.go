package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"vitalmsg/internal/types"
)

// InboundRepository provides data access for the inbound_messages table.
type InboundRepository struct {
	db DBTX
}

// NewInboundRepository creates a new InboundRepository backed by the given
// database connection (pool or transaction).
func NewInboundRepository(db DBTX) *InboundRepository {
	return &InboundRepository{db: db}
}

// Insert persists a newly received message in QUEUED state with a pending
// conversion outcome. The raw payload is compressed at rest. The generated
// id and timestamps are written back onto m.
func (r *InboundRepository) Insert(ctx context.Context, m *types.InboundMessage) error {
	row := r.db.QueryRow(ctx,
		`INSERT INTO inbound_messages
		 (payload, message_id, kind, jurisdiction, cert_number, event_year,
		  event_type, status, conversion_outcome, source)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		compressPayload(m.Payload),
		m.MessageID,
		string(m.Kind),
		m.Jurisdiction,
		m.CertNumber,
		m.EventYear,
		eventTypeOrDefault(m.EventType),
		string(types.StatusQueued),
		string(types.OutcomePending),
		sourceOrDefault(m.Source),
	)
	if err := row.Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert inbound message", err)
	}
	m.Status = types.StatusQueued
	m.Outcome = types.OutcomePending
	return nil
}

// GetByID retrieves one inbound message, decompressing its payload.
// Returns a not_found_message error when no row exists.
func (r *InboundRepository) GetByID(ctx context.Context, id int64) (*types.InboundMessage, error) {
	var (
		m      types.InboundMessage
		stored []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, payload, message_id, kind, jurisdiction, cert_number,
		        event_year, event_type, status, conversion_outcome, source,
		        created_at, updated_at
		 FROM inbound_messages
		 WHERE id = $1`,
		id,
	).Scan(
		&m.ID, &stored, &m.MessageID, (*string)(&m.Kind), &m.Jurisdiction,
		&m.CertNumber, &m.EventYear, &m.EventType, (*string)(&m.Status),
		(*string)(&m.Outcome), &m.Source, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.NewAppError(types.ErrCodeNotFoundMessage, "inbound message not found", err)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to get inbound message", err)
	}

	payload, err := decompressPayload(stored)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to decompress inbound payload", err)
	}
	m.Payload = payload
	return &m, nil
}

// MarkProcessed flips status from QUEUED to PROCESSED, leaving the
// conversion outcome pending. The WHERE clause enforces the at-most-once
// transition; a message that is already PROCESSED is left untouched and no
// error is returned, so a re-enqueued identifier is harmless.
func (r *InboundRepository) MarkProcessed(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE inbound_messages SET
			status = $1,
			updated_at = NOW()
		 WHERE id = $2 AND status = $3`,
		string(types.StatusProcessed),
		id,
		string(types.StatusQueued),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark message processed", err)
	}
	return nil
}

// SetOutcome records the result of the conversion attempt. The outcome only
// moves off pending once; later writes are ignored so a controlled failure
// path cannot overwrite a committed result.
func (r *InboundRepository) SetOutcome(ctx context.Context, id int64, outcome types.ConversionOutcome) error {
	_, err := r.db.Exec(ctx,
		`UPDATE inbound_messages SET
			conversion_outcome = $1,
			updated_at = NOW()
		 WHERE id = $2 AND conversion_outcome = $3`,
		string(outcome),
		id,
		string(types.OutcomePending),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to set conversion outcome", err)
	}
	return nil
}

func eventTypeOrDefault(et string) string {
	if et == "" {
		return "death"
	}
	return et
}

func sourceOrDefault(s string) string {
	if s == "" {
		return "api"
	}
	return s
}
