// Package queue implements the bounded per-link queues that carry
// decoded events (and connection lifecycle notifications) from the
// listener goroutine to consumer workers (spec §5 "EventQueue", C6 in
// the module map). Modeled on the teacher's pkg/ingest/queue (bounded
// channel, drop-on-full, Prometheus-visible depth) but simplified to the
// drop-newest overflow policy this engine commits to (DESIGN.md, "Open
// Question decisions", item 2): once a queue is full,
// new items for that link are dropped rather than evicting anything
// already queued, so ordering of whatever does make it through is never
// disturbed.
package queue

import "eventwire/pkg/metrics"

// DefaultCapacity is the fallback used when neither the listener nor the
// consumer specifies one, matching the original's EventListener(max_queue=1000).
const DefaultCapacity = 1000

// Queue is a single-link MPSC channel: any listener goroutine handling a
// connection bound to this link may push to it; exactly one consumer
// worker drains it. T is queue.Item for named events and lifecycle
// notifications alike.
type Queue[T any] struct {
	name string
	ch   chan T
}

// New allocates a bounded queue for the given link name.
func New[T any](name string, capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue[T]{name: name, ch: make(chan T, capacity)}
}

// Name returns the link name this queue was built for.
func (q *Queue[T]) Name() string { return q.name }

// C exposes the receive side for the consumer's select loop.
func (q *Queue[T]) C() <-chan T { return q.ch }

// Len reports the number of items currently buffered.
func (q *Queue[T]) Len() int { return len(q.ch) }

// TryPush enqueues v without blocking. On a full queue it returns false
// and leaves v undelivered; the caller is responsible for releasing any
// pooled resources v holds. The listener goroutine never blocks on a
// slow consumer.
func (q *Queue[T]) TryPush(v T) bool {
	select {
	case q.ch <- v:
		metrics.QueueDepth.WithLabelValues(q.name).Set(float64(len(q.ch)))
		return true
	default:
		metrics.QueueDropped.WithLabelValues(q.name).Inc()
		return false
	}
}
