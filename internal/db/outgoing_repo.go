package db

import (
	"context"
	"time"

	"vitalmsg/internal/types"
)

// OutgoingRepository provides data access for the outgoing_messages table:
// inserts from the conversion pipeline and the polling feed consumed by
// jurisdictions and the STEVE aggregator.
type OutgoingRepository struct {
	db DBTX
}

// NewOutgoingRepository creates a new OutgoingRepository backed by the given
// database connection (pool or transaction).
func NewOutgoingRepository(db DBTX) *OutgoingRepository {
	return &OutgoingRepository{db: db}
}

// Insert persists one acknowledgement or error message. The caller must set
// the ID (UUID) and payload; CreatedAt is written back onto m.
func (r *OutgoingRepository) Insert(ctx context.Context, m *types.OutgoingMessage) error {
	row := r.db.QueryRow(ctx,
		`INSERT INTO outgoing_messages
		 (id, payload, message_id, kind, jurisdiction, cert_number,
		  event_year, event_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`,
		m.ID,
		m.Payload,
		m.MessageID,
		string(m.Kind),
		m.Jurisdiction,
		m.CertNumber,
		m.EventYear,
		eventTypeOrDefault(m.EventType),
	)
	if err := row.Scan(&m.CreatedAt); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert outgoing message", err)
	}
	return nil
}

// ListUnretrieved returns messages the given consumer has not yet retrieved,
// in creation order. For the jurisdiction consumer the feed is scoped to
// that jurisdiction; the STEVE consumer sees all jurisdictions and
// jurisdiction must be empty.
func (r *OutgoingRepository) ListUnretrieved(ctx context.Context, jurisdiction string, consumer types.FeedConsumer, limit int) ([]*types.OutgoingMessage, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var (
		query string
		args  []any
	)
	switch consumer {
	case types.ConsumerSteve:
		query = `SELECT id, payload, message_id, kind, jurisdiction, cert_number,
		                event_year, event_type, created_at, retrieved_at, steve_retrieved_at
		         FROM outgoing_messages
		         WHERE steve_retrieved_at IS NULL
		         ORDER BY created_at, id
		         LIMIT $1`
		args = []any{limit}
	default:
		query = `SELECT id, payload, message_id, kind, jurisdiction, cert_number,
		                event_year, event_type, created_at, retrieved_at, steve_retrieved_at
		         FROM outgoing_messages
		         WHERE jurisdiction = $1 AND retrieved_at IS NULL
		         ORDER BY created_at, id
		         LIMIT $2`
		args = []any{jurisdiction, limit}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list outgoing messages", err)
	}
	defer rows.Close()

	var results []*types.OutgoingMessage
	for rows.Next() {
		var m types.OutgoingMessage
		if err := rows.Scan(
			&m.ID, &m.Payload, &m.MessageID, (*string)(&m.Kind), &m.Jurisdiction,
			&m.CertNumber, &m.EventYear, &m.EventType, &m.CreatedAt,
			&m.RetrievedAt, &m.SteveRetrievedAt,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan outgoing message row", err)
		}
		results = append(results, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating outgoing message rows", err)
	}

	return results, nil
}

// MarkRetrieved stamps the consumer's retrieved marker on the given
// messages. The marker is set at most once: rows already stamped are left
// untouched, so concurrent or repeated polls cannot move a delivery time.
func (r *OutgoingRepository) MarkRetrieved(ctx context.Context, ids []string, consumer types.FeedConsumer, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	column := "retrieved_at"
	if consumer == types.ConsumerSteve {
		column = "steve_retrieved_at"
	}

	_, err := r.db.Exec(ctx,
		`UPDATE outgoing_messages SET `+column+` = $1
		 WHERE id = ANY($2) AND `+column+` IS NULL`,
		at,
		ids,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark messages retrieved", err)
	}
	return nil
}
