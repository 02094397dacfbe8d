package queue

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Worker processes one work order of a registered kind. A returned error is
// fatal to that order only: the loop logs it and moves on, with no retry.
type Worker interface {
	Process(ctx context.Context, order WorkOrder) error
}

// Loop drives the queue for the lifetime of the process: dequeue one order,
// dispatch it to the worker registered for its kind, isolate any failure,
// repeat. Dispatch is a map lookup over a tagged union of work kinds; there
// is exactly one Loop per queue.
type Loop struct {
	queue   *Queue
	workers map[WorkKind]Worker
	logger  *slog.Logger
}

// NewLoop creates a worker loop over q. Workers are registered before Run
// is called; Register is not safe concurrently with Run.
func NewLoop(q *Queue, logger *slog.Logger) *Loop {
	return &Loop{
		queue:   q,
		workers: make(map[WorkKind]Worker),
		logger:  logger,
	}
}

// Register binds a worker to a work kind, replacing any previous binding.
func (l *Loop) Register(kind WorkKind, w Worker) {
	l.workers[kind] = w
}

// Run blocks until the queue is closed and drained, or ctx is cancelled
// while the loop is waiting for work. An in-flight order is always allowed
// to finish; cancellation is only observed between orders.
//
// A failure in one order's processing never halts the loop and is never
// retried: the order is logged and dropped, and the next dequeue proceeds.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("worker loop started",
		"queue_capacity", l.queue.Capacity(),
	)

	for {
		order, ok := l.queue.Dequeue(ctx)
		if !ok {
			l.logger.Info("worker loop stopped", "queue_depth", l.queue.Depth())
			return nil
		}

		worker, ok := l.workers[order.Kind]
		if !ok {
			l.logger.Error("no worker registered for work kind",
				"kind", string(order.Kind),
				"message_id", order.MessageID,
			)
			continue
		}

		if err := l.dispatch(ctx, worker, order); err != nil {
			l.logger.Error("work order failed",
				"kind", string(order.Kind),
				"message_id", order.MessageID,
				"error", err.Error(),
			)
		}
	}
}

// dispatch invokes the worker with a panic boundary so a panicking order is
// contained like any other per-item failure.
func (l *Loop) dispatch(ctx context.Context, worker Worker, order WorkOrder) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			err = fmt.Errorf("panic processing work order: %v\n%s", rvr, debug.Stack())
		}
	}()
	return worker.Process(ctx, order)
}
