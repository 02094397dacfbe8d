package db

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"vitalmsg/internal/config"
	"vitalmsg/internal/types"
)

// ops binds every repository to one DBTX. The same value works over the
// pool (autocommit) and over an open transaction, which is how Store and
// its WithTx callback share repository code.
type ops struct {
	inbound   *InboundRepository
	outgoing  *OutgoingRepository
	artifacts *IJERepository
	audit     *AuditRepository
}

func newOps(db DBTX) ops {
	return ops{
		inbound:   NewInboundRepository(db),
		outgoing:  NewOutgoingRepository(db),
		artifacts: NewIJERepository(db),
		audit:     NewAuditRepository(db),
	}
}

// InsertOutgoing implements types.PipelineTx.
func (o ops) InsertOutgoing(ctx context.Context, m *types.OutgoingMessage) error {
	return o.outgoing.Insert(ctx, m)
}

// InsertArtifact implements types.PipelineTx.
func (o ops) InsertArtifact(ctx context.Context, a *types.IJEArtifact) error {
	return o.artifacts.Insert(ctx, a)
}

// AppendAuditEntry implements types.PipelineTx.
func (o ops) AppendAuditEntry(ctx context.Context, e *types.AuditLogEntry) error {
	return o.audit.Insert(ctx, e)
}

// AuditEntryExists implements types.PipelineTx.
func (o ops) AuditEntryExists(ctx context.Context, messageID string) (bool, error) {
	return o.audit.ExistsByMessageID(ctx, messageID)
}

// LatestAuditEntry implements types.PipelineTx.
func (o ops) LatestAuditEntry(ctx context.Context, recordID string) (*types.AuditLogEntry, error) {
	return o.audit.LatestByRecordID(ctx, recordID)
}

// SetOutcome implements types.PipelineTx.
func (o ops) SetOutcome(ctx context.Context, id int64, outcome types.ConversionOutcome) error {
	return o.inbound.SetOutcome(ctx, id, outcome)
}

// Store aggregates the repositories over a pgx connection pool and
// implements types.PipelineStore. It is the single shared mutable resource
// of the conversion pipeline; all pipeline writes go through it.
type Store struct {
	pool *pgxpool.Pool
	ops
}

// NewStore creates a Store over an established pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, ops: newOps(pool)}
}

// GetInbound implements types.PipelineStore.
func (s *Store) GetInbound(ctx context.Context, id int64) (*types.InboundMessage, error) {
	return s.inbound.GetByID(ctx, id)
}

// MarkProcessed implements types.PipelineStore.
func (s *Store) MarkProcessed(ctx context.Context, id int64) error {
	return s.inbound.MarkProcessed(ctx, id)
}

// WithTx runs fn inside a single database transaction. The transaction is
// rolled back when fn returns an error and committed otherwise. The
// reconciliation rules use this so that the acknowledgement, audit entry,
// and artifact for one message commit or vanish together.
func (s *Store) WithTx(ctx context.Context, fn func(tx types.PipelineTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to begin transaction", err)
	}
	// Rollback after a successful commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(newOps(tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to commit transaction", err)
	}
	return nil
}

// Inbound exposes the inbound repository for the ingestion boundary.
func (s *Store) Inbound() *InboundRepository { return s.inbound }

// Outgoing exposes the outgoing repository for the delivery boundary.
func (s *Store) Outgoing() *OutgoingRepository { return s.outgoing }

// Pool returns the underlying connection pool (health checks, shutdown).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Connect establishes a pgx connection pool using the configured tuning
// parameters, retrying the initial ping with capped exponential backoff so
// a database that comes up a few seconds after the service does not fail
// the deployment.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "invalid database URL", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to create connection pool", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = cfg.ConnectMaxElapsed

	ping := func() error { return pool.Ping(ctx) }
	if err := backoff.Retry(ping, backoff.WithContext(policy, ctx)); err != nil {
		pool.Close()
		return nil, types.NewAppError(types.ErrCodeInternalDB, "database unreachable", err)
	}

	return pool, nil
}

// Compile-time assertion that Store satisfies the pipeline contract.
var _ types.PipelineStore = (*Store)(nil)
