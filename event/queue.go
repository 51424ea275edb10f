// Package event implements the per-type push-only event queues the tick
// loop drains once per tick. Each event type T gets its own Queue[T]: any
// goroutine (e.g. the goroutine processing player A's packets, reacting to
// something that affects player B) may push into it concurrently, and the
// queue is drained by a single dispatch phase at a known point in the
// tick. Unlike the original Rust runtime's type-erased bump-arena pointers
// behind a shared queue, Go's GC makes manual per-thread arenas for event
// payloads unnecessary: a Queue[T] is just a preallocated, lock-free
// multi-producer slot array of T, which gives the same "push concurrently,
// drain exactly once per tick, reset in bulk" shape without unsafe pointer
// tricks.
package event

import (
	"fmt"
	"sync/atomic"
)

// Queue is a bounded, lock-free multi-producer single-consumer-drain event
// queue for one event type T. The zero value is not usable; construct
// with NewQueue.
type Queue[T any] struct {
	slots []T
	next  atomic.Uint32
}

// NewQueue returns a Queue with room for capacity pending events per tick.
func NewQueue[T any](capacity int) *Queue[T] {
	return &Queue[T]{slots: make([]T, capacity)}
}

// Push claims the next free slot and stores elem into it. It returns an
// error if the queue is already full for this tick — callers decide
// whether to drop, log, or grow capacity next construction.
func (q *Queue[T]) Push(elem T) error {
	idx := q.next.Add(1) - 1
	if int(idx) >= len(q.slots) {
		return fmt.Errorf("event: queue full (capacity %d)", len(q.slots))
	}
	q.slots[idx] = elem
	return nil
}

// Drain invokes visit once for every event pushed since the last Reset, in
// push order modulo concurrent-push interleaving (slot claims are ordered
// but not FIFO across racing producers). It does not reset the queue;
// callers call Reset separately once the dispatch phase is fully done,
// matching the tick's dedicated arena-reset phase.
func (q *Queue[T]) Drain(visit func(T)) {
	n := int(q.next.Load())
	if n > len(q.slots) {
		n = len(q.slots)
	}
	for i := 0; i < n; i++ {
		visit(q.slots[i])
	}
}

// Reset clears the queue back to empty. Must only be called once the
// tick's dispatch phase has finished calling Drain — anything still
// holding a reference into a slot across Reset is a scoping bug the
// caller must prevent, the same invariant the per-thread bump arenas in
// package arena carry.
func (q *Queue[T]) Reset() {
	var zero T
	n := int(q.next.Load())
	if n > len(q.slots) {
		n = len(q.slots)
	}
	for i := 0; i < n; i++ {
		q.slots[i] = zero
	}
	q.next.Store(0)
}

// Len reports how many events have been pushed since the last Reset
// (capped at capacity).
func (q *Queue[T]) Len() int {
	n := int(q.next.Load())
	if n > len(q.slots) {
		n = len(q.slots)
	}
	return n
}

// Cap returns the queue's fixed per-tick capacity.
func (q *Queue[T]) Cap() int { return len(q.slots) }
