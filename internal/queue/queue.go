// Package queue provides the bounded in-process work queue that decouples
// message ingestion from legacy conversion, and the single-consumer loop
// that drains it.
//
// The queue enforces a single logical consumer per process. The dedup and
// ordering checks in the conversion rules are race-free only because at
// most one work order is being reconciled at a time; they are NOT safe
// against multiple processes consuming the same store. Horizontal scaling
// requires moving those checks into the database (unique constraint plus
// conditional write) before adding consumers.
package queue

import (
	"context"
	"errors"
	"sync"
)

// WorkKind tags a work order with the worker that must handle it.
type WorkKind string

// WorkConvert is the legacy-conversion work kind: convert one stored
// inbound message to IJE and reconcile it.
const WorkConvert WorkKind = "convert"

// WorkOrder is one unit of deferred work: a kind plus a reference to a
// persisted inbound message. Immutable once enqueued.
type WorkOrder struct {
	Kind      WorkKind
	MessageID int64
}

// DefaultCapacity is the queue bound applied when the configured capacity
// is not a positive integer.
const DefaultCapacity = 100

// ErrClosed is returned by Enqueue after Close; producers must treat it as
// "service is shutting down", not as a transient failure.
var ErrClosed = errors.New("queue: closed")

// Queue is a bounded, FIFO, multi-producer/single-consumer work queue.
// Enqueue blocks when the queue is full (backpressure); it never drops or
// reorders. Orders are handed to the consumer strictly in enqueue order.
type Queue struct {
	orders chan WorkOrder
	done   chan struct{}
	once   sync.Once
}

// New creates a queue with the given capacity, falling back to
// DefaultCapacity when the value is not positive.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		orders: make(chan WorkOrder, capacity),
		done:   make(chan struct{}),
	}
}

// Enqueue makes the order visible to the consumer in FIFO order relative to
// other enqueues. When the queue is at capacity the caller blocks until a
// dequeue frees space, the queue closes, or ctx is cancelled. The only
// terminal failure is ErrClosed.
func (q *Queue) Enqueue(ctx context.Context, order WorkOrder) error {
	// Fast-path rejection so a closed queue fails even when space is free.
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.orders <- order:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue suspends the caller until an order is available. The second
// return is false only once the queue has been closed AND drained, or when
// ctx is cancelled; closure is a signal, not an error. Single consumer: no
// reordering.
func (q *Queue) Dequeue(ctx context.Context) (WorkOrder, bool) {
	select {
	case order := <-q.orders:
		return order, true
	case <-ctx.Done():
		return WorkOrder{}, false
	case <-q.done:
		// Closed: drain anything that landed before (or raced with) Close.
		select {
		case order := <-q.orders:
			return order, true
		default:
			return WorkOrder{}, false
		}
	}
}

// Close permanently shuts the queue. Blocked producers are released with
// ErrClosed; the consumer keeps receiving until the backlog is drained.
// Safe to call more than once.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}

// Depth reports the number of orders currently waiting. Used for the queue
// depth gauge.
func (q *Queue) Depth() int {
	return len(q.orders)
}

// Capacity reports the configured bound.
func (q *Queue) Capacity() int {
	return cap(q.orders)
}
