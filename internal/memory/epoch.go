package memory

import (
	"math"
	"sync/atomic"
)

// idleEpoch is the sentinel a ReaderEpoch carries while no traversal is in
// progress, chosen so it never equals a real GlobalEpoch value.
const idleEpoch = math.MaxUint64

// GlobalEpoch is advanced once per maintenance tick. A retired object is
// safe to recycle once every reader's observed epoch has moved past the
// epoch it was retired in.
var GlobalEpoch atomic.Uint64

// ReaderEpoch lets a traversal announce the epoch it is reading under so
// the reclaimer knows not to recycle anything still in flight. Adapted
// from the teacher's memory/epoch.go.
type ReaderEpoch struct {
	value atomic.Uint64
}

// NewReaderEpoch constructs a reader epoch in the idle state.
func NewReaderEpoch() *ReaderEpoch {
	r := &ReaderEpoch{}
	r.value.Store(idleEpoch)
	return r
}

// Enter announces that a traversal is beginning under the current global
// epoch. Callers must pair every Enter with an Exit, typically via defer.
func (r *ReaderEpoch) Enter() {
	r.value.Store(GlobalEpoch.Load())
}

// Exit announces that the traversal has finished.
func (r *ReaderEpoch) Exit() {
	r.value.Store(idleEpoch)
}

func minReaderEpoch(readers ...*ReaderEpoch) uint64 {
	min := uint64(idleEpoch)
	for _, r := range readers {
		v := r.value.Load()
		if v < min {
			min = v
		}
	}
	return min
}

// Reclaimer binds a Pool to a RetireRing under the global epoch, so a
// matching engine can retire an Order it just fully removed from a price
// level and reclaim it back into the pool once no in-flight traversal
// could still be holding a reference to it.
type Reclaimer[T any] struct {
	pool *Pool[T]
	ring *RetireRing[T]
}

// NewReclaimer constructs a Reclaimer backed by pool, with a retire ring
// of capacity ringSize (must be a power of two).
func NewReclaimer[T any](pool *Pool[T], ringSize uint64) *Reclaimer[T] {
	return &Reclaimer[T]{pool: pool, ring: NewRetireRing[T](ringSize)}
}

// Get returns a pooled object, allocating a fresh one if the pool is
// empty.
func (r *Reclaimer[T]) Get() T {
	return r.pool.Get()
}

// Retire queues v for reclamation. If the retire ring is full, v is
// dropped and left for the garbage collector instead of blocking the
// caller.
func (r *Reclaimer[T]) Retire(v T) {
	r.ring.Enqueue(v)
}

// AdvanceAndReclaim advances the global epoch and, when none of readers is
// inside a traversal, drains every retired object back into the pool. If
// any reader is active, nothing is reclaimed in this call. Retirement
// epochs are not tracked per object. Must not run concurrently with itself.
func (r *Reclaimer[T]) AdvanceAndReclaim(readers ...*ReaderEpoch) {
	GlobalEpoch.Add(1)
	min := minReaderEpoch(readers...)
	for {
		v, ok := r.ring.Dequeue()
		if !ok {
			return
		}
		if min == idleEpoch {
			r.pool.Put(v)
			continue
		}
		// A reader might still be observing the pre-advance epoch;
		// put v back and stop draining this round.
		r.ring.Enqueue(v)
		return
	}
}
