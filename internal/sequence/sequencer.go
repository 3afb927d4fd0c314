// Package sequence provides a monotonically increasing counter used to
// stamp snapshots and WAL records with a strictly ordered sequence number.
package sequence

import "sync/atomic"

// Sequencer hands out a strictly increasing stream of uint64 values.
// Adapted from the teacher's infra/sequence/sequencer.go.
type Sequencer struct {
	next atomic.Uint64
}

// New constructs a Sequencer whose first Next() call returns start.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence value and advances the counter.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1) - 1
}

// Current returns the next value Next() would hand out, without advancing
// the counter.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset rewinds the counter to v. Only meaningful immediately after WAL
// replay, to resume numbering from the last durably recorded sequence
// rather than restarting at zero.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}
