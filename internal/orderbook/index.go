package orderbook

import "sync"

// locator is the weak back-reference an order's id maps to: enough to find
// its level, never ownership of the order itself (spec.md §9 ownership
// graph — the index holds a locator, not the order).
type locator struct {
	side  Side
	price uint64
}

// orderIndex is the independent concurrent order_id -> (side, price) map
// spec.md §5 calls for. A sharded map would reduce contention further; a
// single mutex-guarded map is adopted here since the pack carries no
// concurrent-map dependency and the index is only touched once per
// submission/cancel, not once per matched unit.
type orderIndex struct {
	mu    sync.RWMutex
	byID  map[OrderID]locator
}

func newOrderIndex() *orderIndex {
	return &orderIndex{byID: make(map[OrderID]locator)}
}

func (idx *orderIndex) put(id OrderID, side Side, price uint64) {
	idx.mu.Lock()
	idx.byID[id] = locator{side: side, price: price}
	idx.mu.Unlock()
}

func (idx *orderIndex) get(id OrderID) (locator, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	loc, ok := idx.byID[id]
	return loc, ok
}

func (idx *orderIndex) delete(id OrderID) {
	idx.mu.Lock()
	delete(idx.byID, id)
	idx.mu.Unlock()
}

func (idx *orderIndex) has(id OrderID) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.byID[id]
	return ok
}

func (idx *orderIndex) len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.byID)
}
