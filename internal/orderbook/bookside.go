package orderbook

import "sync"

// BookSide is the ordered map from price to PriceLevel for one side of the
// book. Bids iterate in descending price order, asks ascending. Per
// spec.md §5 this is backed by an ordered concurrent structure; since no
// pack dependency provides a ready skiplist/DashMap equivalent (checked:
// none of the retrieved go.mod files carry one), the fallback spec.md §9
// explicitly allows — "per-side reader-writer lock... if skiplist is
// unavailable" — is used here: a single RWMutex guards a red-black tree
// keyed by price. Mutations (insert/remove-empty) take the write lock;
// best-price/iteration reads take the read lock, so concurrent readers
// never block each other, while the per-level mutex inside PriceLevel
// still isolates unrelated-price contention from queue mutation itself.
type BookSide struct {
	mu   sync.RWMutex
	side Side
	tree *rbTree
}

func newBookSide(side Side) *BookSide {
	return &BookSide{side: side, tree: newRBTree()}
}

// BestPrice returns the best (highest for Buy/bids, lowest for Sell/asks)
// resting price, and whether one exists.
func (b *BookSide) BestPrice() (uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var lvl *PriceLevel
	if b.side == Buy {
		lvl = b.tree.Max()
	} else {
		lvl = b.tree.Min()
	}
	if lvl == nil {
		return 0, false
	}
	return lvl.Price, true
}

// BestLevel returns the best level itself, or nil if the side is empty.
func (b *BookSide) BestLevel() *PriceLevel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.side == Buy {
		return b.tree.Max()
	}
	return b.tree.Min()
}

// LevelAt returns the level at price, or nil.
func (b *BookSide) LevelAt(price uint64) *PriceLevel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tree.Find(price)
}

// Insert locates or creates the level at o.Price and pushes o onto its tail.
func (b *BookSide) Insert(o *Order) *PriceLevel {
	b.mu.Lock()
	lvl := b.tree.Upsert(o.Price, func() *PriceLevel { return newPriceLevel(o.Price, b.side) })
	b.mu.Unlock()
	lvl.PushBack(o)
	return lvl
}

// RemoveEmpty deletes the level at price if it is currently empty.
// Idempotent and safe against a concurrent inserter that re-created the
// level between the caller noticing emptiness and this call.
func (b *BookSide) RemoveEmpty(price uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lvl := b.tree.Find(price)
	if lvl != nil && lvl.IsEmpty() {
		b.tree.Delete(price)
	}
}

// LevelCount returns the number of distinct resting price levels.
func (b *BookSide) LevelCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tree.Size()
}

// IterateFromBest walks levels best-first (descending for bids, ascending
// for asks), calling fn(price, level) until it returns false. Per the
// iterator-tolerance guarantee of spec.md §4.C/§9, each yielded level was
// valid at some real instant during the walk; the walk holds the side's
// read lock for its entire duration, across every fn invocation, not just
// while positioning between nodes, so a concurrent insert/remove is
// blocked for the whole traversal.
func (b *BookSide) IterateFromBest(fn func(price uint64, lvl *PriceLevel) bool) {
	// The tree's rotations mutate raw pointers, so unlike a lock-free
	// skiplist this walk must hold the side's read lock for its whole
	// duration rather than just while positioning between nodes: a
	// concurrent insert/delete's rotation could otherwise corrupt the
	// walk. Per-level contention is still isolated by PriceLevel's own
	// mutex, so fn observing a level's live aggregates never blocks on
	// an unrelated level.
	b.mu.RLock()
	defer b.mu.RUnlock()

	visit := func(lvl *PriceLevel) bool { return fn(lvl.Price, lvl) }
	if b.side == Buy {
		b.tree.ForEachDescending(visit)
	} else {
		b.tree.ForEachAscending(visit)
	}
}
