package db

import (
	"context"

	"vitalmsg/internal/types"
)

// IJERepository provides data access for the ije_artifacts table. Artifacts
// are append-only; a later update to a death record produces a new row.
type IJERepository struct {
	db DBTX
}

// NewIJERepository creates a new IJERepository backed by the given database
// connection (pool or transaction).
func NewIJERepository(db DBTX) *IJERepository {
	return &IJERepository{db: db}
}

// Insert persists one converted fixed-width artifact. The generated id and
// created_at are written back onto a.
func (r *IJERepository) Insert(ctx context.Context, a *types.IJEArtifact) error {
	row := r.db.QueryRow(ctx,
		`INSERT INTO ije_artifacts (message_id, record_id, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		a.MessageID,
		a.RecordID,
		a.Content,
	)
	if err := row.Scan(&a.ID, &a.CreatedAt); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert IJE artifact", err)
	}
	return nil
}
