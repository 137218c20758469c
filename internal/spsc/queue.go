package spsc

import "sync/atomic"

// Queue is a bounded lock-free ring for exactly one producer goroutine and
// one consumer goroutine. head counts pushes and tail counts pops; both
// grow monotonically and the slot index is the counter masked by
// capacity-1. The counters sit on separate cache lines.
type Queue[T any] struct {
	head atomic.Uint64
	_    [64]byte
	tail atomic.Uint64
	_    [64]byte

	buf  []T
	mask uint64
}

// New returns a queue holding up to capacity elements. Capacity is rounded
// up to a power of two, with a floor of 2.
func New[T any](capacity int) *Queue[T] {
	n := uint64(2)
	for n < uint64(capacity) {
		n <<= 1
	}
	return &Queue[T]{buf: make([]T, n), mask: n - 1}
}

// TryPush appends v and returns true, or returns false when the queue is
// full. Producer side only.
func (q *Queue[T]) TryPush(v T) bool {
	head := q.head.Load()
	if head-q.tail.Load() == uint64(len(q.buf)) {
		return false
	}
	q.buf[head&q.mask] = v
	q.head.Store(head + 1)
	return true
}

// TryPop removes the oldest element. It returns the zero value and false
// when the queue is empty. The consumed slot is zeroed. Consumer side only.
func (q *Queue[T]) TryPop() (T, bool) {
	var zero T
	tail := q.tail.Load()
	if tail == q.head.Load() {
		return zero, false
	}
	slot := &q.buf[tail&q.mask]
	v := *slot
	*slot = zero
	q.tail.Store(tail + 1)
	return v, true
}

// Clear drains every element. Consumer side only.
func (q *Queue[T]) Clear() {
	for {
		if _, ok := q.TryPop(); !ok {
			return
		}
	}
}

// Len reports the number of queued elements. The value is exact on either
// endpoint's own goroutine and approximate from anywhere else.
func (q *Queue[T]) Len() int {
	return int(q.head.Load() - q.tail.Load())
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int { return len(q.buf) }

// Empty reports whether the queue has no elements.
func (q *Queue[T]) Empty() bool { return q.Len() == 0 }

// Full reports whether the queue is at capacity.
func (q *Queue[T]) Full() bool { return q.Len() == len(q.buf) }
