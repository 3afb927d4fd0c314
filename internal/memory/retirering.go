package memory

import "sync/atomic"

// cacheLinePad separates the head and tail counters onto distinct cache
// lines so the single producer and single consumer don't false-share.
type cacheLinePad [56]byte

// RetireRing is a lock-free single-producer single-consumer ring buffer
// used to hand retired objects from the matching goroutine to the epoch
// reclaimer without blocking the hot path. Adapted from the teacher's
// memory/retire_ring.go, generalized with Go generics in place of the
// teacher's any-typed buffer.
type RetireRing[T any] struct {
	head uint64
	_    cacheLinePad
	tail uint64
	_    cacheLinePad
	buf  []T
	mask uint64
}

// NewRetireRing constructs a ring of capacity pow2, which must be a power
// of two.
func NewRetireRing[T any](pow2 uint64) *RetireRing[T] {
	if pow2 == 0 || pow2&(pow2-1) != 0 {
		panic("memory: RetireRing capacity must be a power of two")
	}
	return &RetireRing[T]{
		buf:  make([]T, pow2),
		mask: pow2 - 1,
	}
}

// Enqueue appends item for the single producer. It returns false if the
// ring is full.
func (r *RetireRing[T]) Enqueue(item T) bool {
	head := atomic.LoadUint64(&r.head)
	tail := atomic.LoadUint64(&r.tail)
	if head-tail >= uint64(len(r.buf)) {
		return false
	}
	r.buf[head&r.mask] = item
	atomic.AddUint64(&r.head, 1)
	return true
}

// Dequeue removes and returns the oldest retired item for the single
// consumer. ok is false if the ring is empty.
func (r *RetireRing[T]) Dequeue() (item T, ok bool) {
	tail := atomic.LoadUint64(&r.tail)
	head := atomic.LoadUint64(&r.head)
	if tail >= head {
		return item, false
	}
	item = r.buf[tail&r.mask]
	atomic.AddUint64(&r.tail, 1)
	return item, true
}

// Len reports the number of items currently queued.
func (r *RetireRing[T]) Len() int {
	return int(atomic.LoadUint64(&r.head) - atomic.LoadUint64(&r.tail))
}

// Cap reports the ring's fixed capacity.
func (r *RetireRing[T]) Cap() int {
	return len(r.buf)
}

// IsFull reports whether the ring has no free slots.
func (r *RetireRing[T]) IsFull() bool {
	return r.Len() >= len(r.buf)
}

// IsEmpty reports whether the ring has nothing queued.
func (r *RetireRing[T]) IsEmpty() bool {
	return r.Len() == 0
}
