// Package scheduled implements a generic min-heap of (key, value) pairs
// used for time-based deferral such as staged block-destruction
// animations and similar "do this once tick/time reaches K" bookkeeping.
// (The delayed broadcast enabling after a join uses a timer in the proxy
// session, not this heap.) Keys are typically tick
// numbers or absolute timestamps.
package scheduled

import (
	"container/heap"

	"golang.org/x/exp/constraints"
)

// Scheduled is a min-heap keyed by K, holding values of type V. Zero value
// is ready to use.
type Scheduled[K constraints.Ordered, V any] struct {
	h innerHeap[K, V]
}

type entry[K constraints.Ordered, V any] struct {
	key   K
	value V
}

type innerHeap[K constraints.Ordered, V any] []entry[K, V]

func (h innerHeap[K, V]) Len() int            { return len(h) }
func (h innerHeap[K, V]) Less(i, j int) bool  { return h[i].key < h[j].key }
func (h innerHeap[K, V]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *innerHeap[K, V]) Push(x any)         { *h = append(*h, x.(entry[K, V])) }
func (h *innerHeap[K, V]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// New returns an empty Scheduled.
func New[K constraints.Ordered, V any]() *Scheduled[K, V] {
	return &Scheduled[K, V]{}
}

// Schedule inserts value to fire at key.
func (s *Scheduled[K, V]) Schedule(key K, value V) {
	heap.Push(&s.h, entry[K, V]{key: key, value: value})
}

// PopUntil removes and returns, in ascending key order, every value whose
// key is <= limit.
func (s *Scheduled[K, V]) PopUntil(limit K) []V {
	var out []V
	for s.h.Len() > 0 && s.h[0].key <= limit {
		e := heap.Pop(&s.h).(entry[K, V])
		out = append(out, e.value)
	}
	return out
}

// Peek returns the lowest-keyed entry without removing it.
func (s *Scheduled[K, V]) Peek() (key K, value V, ok bool) {
	if s.h.Len() == 0 {
		return key, value, false
	}
	return s.h[0].key, s.h[0].value, true
}

// Clear discards every scheduled entry.
func (s *Scheduled[K, V]) Clear() { s.h = nil }

// Len returns the number of scheduled entries.
func (s *Scheduled[K, V]) Len() int { return s.h.Len() }

// IsEmpty reports whether no entries remain.
func (s *Scheduled[K, V]) IsEmpty() bool { return s.h.Len() == 0 }
