package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"vitalmsg/internal/types"
)

// AuditRepository provides data access for the append-only audit_log table.
// The log serves two queries in the reconciliation rules: duplicate
// detection by business message identifier, and recency per death record by
// sender-supplied message time.
type AuditRepository struct {
	db DBTX
}

// NewAuditRepository creates a new AuditRepository backed by the given
// database connection (pool or transaction).
func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends one audit entry. The generated id and created_at are
// written back onto e. Entries are never updated or deleted.
func (r *AuditRepository) Insert(ctx context.Context, e *types.AuditLogEntry) error {
	row := r.db.QueryRow(ctx,
		`INSERT INTO audit_log
		 (message_id, record_id, jurisdiction, message_time, state_auxiliary_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		e.MessageID,
		e.RecordID,
		e.Jurisdiction,
		e.MessageTime,
		e.StateAuxiliaryID,
	)
	if err := row.Scan(&e.ID, &e.CreatedAt); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert audit log entry", err)
	}
	return nil
}

// ExistsByMessageID reports whether any entry was ever logged for the given
// business message identifier. This is the duplicate-suppression check.
func (r *AuditRepository) ExistsByMessageID(ctx context.Context, messageID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM audit_log WHERE message_id = $1)`,
		messageID,
	).Scan(&exists)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to check audit log for message", err)
	}
	return exists, nil
}

// LatestByRecordID returns the entry with the greatest sender-supplied
// message time for the given NCHS record identifier, or nil when the record
// has never been logged. Ties are broken by insertion order so the result
// is stable.
func (r *AuditRepository) LatestByRecordID(ctx context.Context, recordID string) (*types.AuditLogEntry, error) {
	var e types.AuditLogEntry
	err := r.db.QueryRow(ctx,
		`SELECT id, message_id, record_id, jurisdiction, message_time,
		        state_auxiliary_id, created_at
		 FROM audit_log
		 WHERE record_id = $1
		 ORDER BY message_time DESC, id DESC
		 LIMIT 1`,
		recordID,
	).Scan(
		&e.ID, &e.MessageID, &e.RecordID, &e.Jurisdiction, &e.MessageTime,
		&e.StateAuxiliaryID, &e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query latest audit entry", err)
	}
	return &e, nil
}
