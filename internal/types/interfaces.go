package types

import "context"

// PipelineTx is the set of store operations the reconciliation rules perform
// inside one scoped transaction. It is satisfied by the db package bound to
// either a pool or an open pgx transaction.
type PipelineTx interface {
	// InsertOutgoing persists one acknowledgement or error message.
	InsertOutgoing(ctx context.Context, m *OutgoingMessage) error
	// InsertArtifact persists one converted fixed-width artifact.
	InsertArtifact(ctx context.Context, a *IJEArtifact) error
	// AppendAuditEntry appends one audit log entry.
	AppendAuditEntry(ctx context.Context, e *AuditLogEntry) error
	// AuditEntryExists reports whether the business message identifier was
	// ever logged (duplicate detection).
	AuditEntryExists(ctx context.Context, messageID string) (bool, error)
	// LatestAuditEntry returns the most recent entry by sender-supplied
	// message time for an NCHS record identifier, or nil if none exists.
	LatestAuditEntry(ctx context.Context, recordID string) (*AuditLogEntry, error)
	// SetOutcome records the conversion outcome for an inbound message.
	SetOutcome(ctx context.Context, id int64, outcome ConversionOutcome) error
}

// PipelineStore is the full store contract consumed by the conversion
// pipeline. Writes performed through WithTx commit or roll back together;
// the direct methods commit individually.
type PipelineStore interface {
	PipelineTx

	// GetInbound point-reads one inbound message by identifier.
	GetInbound(ctx context.Context, id int64) (*InboundMessage, error)
	// MarkProcessed flips the message status QUEUED -> PROCESSED (at most
	// once; already-processed rows are untouched).
	MarkProcessed(ctx context.Context, id int64) error
	// WithTx runs fn inside a single database transaction.
	WithTx(ctx context.Context, fn func(tx PipelineTx) error) error
}
