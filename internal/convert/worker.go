// Package convert implements the message processor and the reconciliation
// rules of the legacy-conversion pipeline. A single worker loop drives it:
// load the inbound message, mark it attempted, decode, then apply the rule
// for its kind. Duplicate and ordering checks rely on that single-consumer
// discipline; they are not safe against multiple processes consuming the
// same store.
package convert

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"vitalmsg/internal/ije"
	"vitalmsg/internal/metrics"
	"vitalmsg/internal/queue"
	"vitalmsg/internal/types"
)

// Worker processes one conversion work order at a time. It satisfies
// queue.Worker.
type Worker struct {
	store   types.PipelineStore
	codec   *ije.Codec
	rec     *Reconciler
	metrics *metrics.Pipeline
	logger  *slog.Logger
}

// NewWorker wires the message processor to its store, codec, and
// instrumentation.
func NewWorker(store types.PipelineStore, m *metrics.Pipeline, logger *slog.Logger) *Worker {
	return &Worker{
		store:   store,
		codec:   ije.NewCodec(),
		rec:     newReconciler(store, m, logger),
		metrics: m,
		logger:  logger,
	}
}

// Process runs the conversion pipeline for one inbound message.
//
// The message is marked PROCESSED before the conversion attempt: the status
// means "attempted", not "succeeded". Decode and conversion failures are
// absorbed here as an error-kind outgoing message plus a failed outcome; only
// load and persistence errors propagate to the worker loop, leaving the
// outcome pending for diagnosis.
func (w *Worker) Process(ctx context.Context, order queue.WorkOrder) error {
	msg, err := w.store.GetInbound(ctx, order.MessageID)
	if err != nil {
		return err
	}

	if err := w.store.MarkProcessed(ctx, msg.ID); err != nil {
		return err
	}

	env, err := w.codec.Decode(msg.Payload)
	if err != nil {
		return w.reject(ctx, msg, err)
	}

	switch env.Kind {
	case types.KindSubmission:
		err = w.rec.Submission(ctx, msg, env)
	case types.KindUpdate:
		err = w.rec.Update(ctx, msg, env)
	default:
		// Void and alias messages carry no death record: acknowledge and
		// record a skipped outcome, nothing else.
		err = w.rec.Passthrough(ctx, msg, env)
	}
	if err == nil {
		return nil
	}

	switch types.CodeOf(err) {
	case types.ErrCodeConversionFailed:
		return w.reject(ctx, msg, err)
	default:
		return err
	}
}

// reject finalizes a message whose decode or conversion threw: one
// error-kind outgoing message referencing the original, outcome failed.
// The write errors here do propagate; everything else is absorbed.
func (w *Worker) reject(ctx context.Context, msg *types.InboundMessage, cause error) error {
	w.logger.Warn("message conversion failed",
		"inbound_id", msg.ID,
		"message_id", msg.MessageID,
		"code", string(types.CodeOf(cause)),
		"error", cause,
	)

	out, err := errorMessage(msg, cause)
	if err != nil {
		return err
	}

	err = w.store.WithTx(ctx, func(tx types.PipelineTx) error {
		if err := tx.InsertOutgoing(ctx, out); err != nil {
			return err
		}
		return tx.SetOutcome(ctx, msg.ID, types.OutcomeFailed)
	})
	if err != nil {
		return err
	}

	w.metrics.Processed.WithLabelValues(string(types.OutcomeFailed)).Inc()
	return nil
}

// errorMessage builds the error-kind outgoing message for a failed inbound
// message. Envelope fields may be unavailable (decode failures), so it is
// built from the stored row alone.
func errorMessage(msg *types.InboundMessage, cause error) (*types.OutgoingMessage, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(types.ErrorPayload{
		MessageID:       id,
		Kind:            types.KindError,
		FailedMessageID: msg.MessageID,
		Code:            string(types.CodeOf(cause)),
		Detail:          cause.Error(),
	})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode error payload", err)
	}

	return &types.OutgoingMessage{
		ID:           id,
		Payload:      payload,
		MessageID:    id,
		Kind:         types.KindError,
		Jurisdiction: msg.Jurisdiction,
		CertNumber:   msg.CertNumber,
		EventYear:    msg.EventYear,
		EventType:    msg.EventType,
	}, nil
}
