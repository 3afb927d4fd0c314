// Package memory provides the epoch-based reclamation and object pooling
// the matching engine uses to recycle Order structs instead of leaving them
// to the garbage collector on every fill or cancellation.
package memory

import "sync"

// Pool is a generic sync.Pool wrapper, adapted from the teacher's
// memory/pool.go (there specialized to *orderbook.Order) to work for any
// type via Go generics.
type Pool[T any] struct {
	pool sync.Pool
}

// NewPool constructs a pool whose Get falls back to newFn when empty.
func NewPool[T any](newFn func() T) *Pool[T] {
	return &Pool[T]{pool: sync.Pool{New: func() any { return newFn() }}}
}

// Get returns a pooled value, or a freshly constructed one if the pool is
// empty.
func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

// Put returns v to the pool for reuse.
func (p *Pool[T]) Put(v T) {
	p.pool.Put(v)
}
