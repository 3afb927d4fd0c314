// Package snapshotstore persists the checksummed raw snapshot
// (internal/analytics.RawSnapshot) durably, keyed by sequence number.
// No book is rebuilt from a stored snapshot: cmd/server reads Latest only
// to resume snapshot numbering and rebuilds the book by replaying the full
// WAL.
package snapshotstore

import (
	"encoding/binary"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"

	"lobengine/internal/analytics"
)

// ErrNotFound is returned when no snapshot exists yet for a requested key.
var ErrNotFound = errors.New("snapshotstore: no snapshot found")

// Store is a Pebble-backed LSM keyed by big-endian sequence number, each
// value the JSON-encoded RawSnapshot. Grounded on the teacher's
// snapshot/writer.go and snapshot/loader.go, which instead gob-encode a
// single flat snapshot.bin with no history and no crash-safety beyond
// "file either fully exists or doesn't" — swapping that for Pebble's own
// WAL and atomic batch commits gives durability without reinventing it.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) a Pebble store at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying Pebble database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Key namespace: a one-byte prefix keeps the "latest" pointer out of the
// big-endian sequence keyspace regardless of how large seq grows, instead
// of relying on seq never reaching the pointer key's byte value.
const (
	prefixSeq    byte = 0x01
	prefixLatest byte = 0x00
)

var latestKey = []byte{prefixLatest}

func seqKey(seq uint64) []byte {
	buf := make([]byte, 9)
	buf[0] = prefixSeq
	binary.BigEndian.PutUint64(buf[1:], seq)
	return buf
}

// Put durably stores snap under its own sequence number, and additionally
// updates the "latest" pointer key in the same atomic batch so Latest
// never observes a seq whose snapshot write didn't commit.
func (s *Store) Put(seq uint64, snap analytics.RawSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(seqKey(seq), data, nil); err != nil {
		return err
	}
	if err := batch.Set(latestKey, seqKey(seq), nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// Get retrieves the snapshot stored under seq.
func (s *Store) Get(seq uint64) (analytics.RawSnapshot, error) {
	value, closer, err := s.db.Get(seqKey(seq))
	if errors.Is(err, pebble.ErrNotFound) {
		return analytics.RawSnapshot{}, ErrNotFound
	}
	if err != nil {
		return analytics.RawSnapshot{}, err
	}
	defer closer.Close()

	var snap analytics.RawSnapshot
	if err := json.Unmarshal(value, &snap); err != nil {
		return analytics.RawSnapshot{}, err
	}
	return snap, nil
}

// Latest retrieves the most recently Put snapshot and its sequence
// number.
func (s *Store) Latest() (uint64, analytics.RawSnapshot, error) {
	value, closer, err := s.db.Get(latestKey)
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, analytics.RawSnapshot{}, ErrNotFound
	}
	if err != nil {
		return 0, analytics.RawSnapshot{}, err
	}
	seq := binary.BigEndian.Uint64(value[1:])
	closer.Close()

	snap, err := s.Get(seq)
	return seq, snap, err
}

// DeleteBefore removes every snapshot with sequence number strictly less
// than seq, keeping only recent history.
func (s *Store) DeleteBefore(seq uint64) error {
	return s.db.DeleteRange(seqKey(0), seqKey(seq), pebble.Sync)
}
