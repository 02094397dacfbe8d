package convert

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"vitalmsg/internal/ije"
	"vitalmsg/internal/metrics"
	"vitalmsg/internal/types"
)

// Reconciler applies the submission and update rules: decide whether a
// message is a duplicate or stale, append the audit trail, and persist the
// converted artifact when the message wins. Each rule's writes run in one
// database transaction; recency state is queried fresh per invocation,
// never cached.
type Reconciler struct {
	store   types.PipelineStore
	codec   *ije.Codec
	metrics *metrics.Pipeline
	logger  *slog.Logger
}

func newReconciler(store types.PipelineStore, m *metrics.Pipeline, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:   store,
		codec:   ije.NewCodec(),
		metrics: m,
		logger:  logger,
	}
}

// Submission applies the submission rule.
//
// The artifact is computed unconditionally and the acknowledgement is always
// emitted. Duplicates (business message identifier already logged) still get
// a fresh audit entry; only the artifact write is suppressed. The duplicate
// logging differs from the update rule on purpose.
func (r *Reconciler) Submission(ctx context.Context, msg *types.InboundMessage, env *ije.Envelope) error {
	content, err := r.codec.Encode(env)
	if err != nil {
		return err
	}

	ack, err := acknowledgement(msg, env)
	if err != nil {
		return err
	}

	var outcome types.ConversionOutcome
	err = r.store.WithTx(ctx, func(tx types.PipelineTx) error {
		isDuplicate, err := tx.AuditEntryExists(ctx, env.MessageID)
		if err != nil {
			return err
		}

		if err := tx.InsertOutgoing(ctx, ack); err != nil {
			return err
		}
		if err := tx.AppendAuditEntry(ctx, auditEntry(msg, env)); err != nil {
			return err
		}

		outcome = types.OutcomeConverted
		if isDuplicate {
			outcome = types.OutcomeSkipped
		} else if err := tx.InsertArtifact(ctx, artifact(env, content)); err != nil {
			return err
		}

		return tx.SetOutcome(ctx, msg.ID, outcome)
	})
	if err != nil {
		return err
	}

	if outcome == types.OutcomeSkipped {
		r.metrics.Duplicates.Inc()
		r.logger.Info("duplicate submission acknowledged",
			"message_id", env.MessageID, "record_id", env.RecordID)
	}
	r.metrics.Processed.WithLabelValues(string(outcome)).Inc()
	return nil
}

// Update applies the update rule.
//
// A duplicate update is acknowledged and nothing else. A non-duplicate
// update always appends its audit entry, but the artifact is persisted only
// when no earlier entry exists for the record or this message's sender
// timestamp is strictly greater than the latest one. Equal timestamps lose.
func (r *Reconciler) Update(ctx context.Context, msg *types.InboundMessage, env *ije.Envelope) error {
	content, err := r.codec.Encode(env)
	if err != nil {
		return err
	}

	ack, err := acknowledgement(msg, env)
	if err != nil {
		return err
	}

	var (
		outcome   types.ConversionOutcome
		duplicate bool
		stale     bool
	)
	err = r.store.WithTx(ctx, func(tx types.PipelineTx) error {
		isDuplicate, err := tx.AuditEntryExists(ctx, env.MessageID)
		if err != nil {
			return err
		}

		if err := tx.InsertOutgoing(ctx, ack); err != nil {
			return err
		}

		if isDuplicate {
			duplicate = true
			outcome = types.OutcomeSkipped
			return tx.SetOutcome(ctx, msg.ID, outcome)
		}

		previous, err := tx.LatestAuditEntry(ctx, env.RecordID)
		if err != nil {
			return err
		}
		if err := tx.AppendAuditEntry(ctx, auditEntry(msg, env)); err != nil {
			return err
		}

		newer := previous == nil || env.Timestamp.After(previous.MessageTime)
		if newer {
			outcome = types.OutcomeConverted
			if err := tx.InsertArtifact(ctx, artifact(env, content)); err != nil {
				return err
			}
		} else {
			stale = true
			outcome = types.OutcomeSkipped
		}

		return tx.SetOutcome(ctx, msg.ID, outcome)
	})
	if err != nil {
		return err
	}

	switch {
	case duplicate:
		r.metrics.Duplicates.Inc()
		r.logger.Info("duplicate update acknowledged",
			"message_id", env.MessageID, "record_id", env.RecordID)
	case stale:
		r.metrics.StaleUpdates.Inc()
		r.logger.Info("stale update acknowledged, artifact discarded",
			"message_id", env.MessageID,
			"record_id", env.RecordID,
			"message_time", env.Timestamp,
		)
	}
	r.metrics.Processed.WithLabelValues(string(outcome)).Inc()
	return nil
}

// Passthrough finalizes a message kind that carries no death record (void,
// alias): acknowledge it and record a skipped outcome. No audit entry, no
// artifact.
func (r *Reconciler) Passthrough(ctx context.Context, msg *types.InboundMessage, env *ije.Envelope) error {
	ack, err := acknowledgement(msg, env)
	if err != nil {
		return err
	}

	err = r.store.WithTx(ctx, func(tx types.PipelineTx) error {
		if err := tx.InsertOutgoing(ctx, ack); err != nil {
			return err
		}
		return tx.SetOutcome(ctx, msg.ID, types.OutcomeSkipped)
	})
	if err != nil {
		return err
	}

	r.metrics.Processed.WithLabelValues(string(types.OutcomeSkipped)).Inc()
	return nil
}

func acknowledgement(msg *types.InboundMessage, env *ije.Envelope) (*types.OutgoingMessage, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(types.AckPayload{
		MessageID:      id,
		Kind:           types.KindAcknowledgement,
		AckedMessageID: env.MessageID,
		RecordID:       env.RecordID,
		CertNumber:     env.CertNumber,
		Jurisdiction:   env.Jurisdiction,
	})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode ack payload", err)
	}

	return &types.OutgoingMessage{
		ID:           id,
		Payload:      payload,
		MessageID:    id,
		Kind:         types.KindAcknowledgement,
		Jurisdiction: msg.Jurisdiction,
		CertNumber:   msg.CertNumber,
		EventYear:    msg.EventYear,
		EventType:    msg.EventType,
	}, nil
}

func auditEntry(msg *types.InboundMessage, env *ije.Envelope) *types.AuditLogEntry {
	jurisdiction := env.Jurisdiction
	if jurisdiction == "" {
		jurisdiction = msg.Jurisdiction
	}
	return &types.AuditLogEntry{
		MessageID:        env.MessageID,
		RecordID:         env.RecordID,
		Jurisdiction:     jurisdiction,
		MessageTime:      env.Timestamp,
		StateAuxiliaryID: env.StateAuxiliaryID,
	}
}

func artifact(env *ije.Envelope, content string) *types.IJEArtifact {
	return &types.IJEArtifact{
		MessageID: env.MessageID,
		RecordID:  env.RecordID,
		Content:   content,
	}
}
