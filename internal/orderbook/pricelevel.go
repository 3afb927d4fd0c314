package orderbook

import "sync"

// PriceLevel is a concurrent FIFO queue of orders sharing one price on one
// side, with cached visible/hidden aggregates. Contention is per-price: a
// mutex here guards only this level's linkage and sums, so unrelated levels
// never block each other, following the fine-grained-lock alternative
// spec.md §5/§9 offers in place of a lock-free MPSC queue.
type PriceLevel struct {
	mu sync.Mutex

	Price uint64
	Side  Side

	head, tail *Order
	count      int

	visibleSum uint64
	hiddenSum  uint64

	nextSeq uint64
}

// newPriceLevel constructs an empty level for the given price/side.
func newPriceLevel(price uint64, side Side) *PriceLevel {
	return &PriceLevel{Price: price, Side: side}
}

// PushBack enqueues order at the tail, assigning it the next sequence
// number for price-time priority, and updates the cached sums.
func (lvl *PriceLevel) PushBack(o *Order) {
	lvl.mu.Lock()
	defer lvl.mu.Unlock()
	lvl.pushBackLocked(o)
}

func (lvl *PriceLevel) pushBackLocked(o *Order) {
	o.seq = lvl.nextSeq
	lvl.nextSeq++

	o.next, o.prev = nil, nil
	if lvl.tail != nil {
		lvl.tail.next = o
		o.prev = lvl.tail
	} else {
		lvl.head = o
	}
	lvl.tail = o
	lvl.count++

	lvl.visibleSum += o.visibleRemaining()
	if o.IsIceberg() {
		lvl.hiddenSum += o.HiddenReserve
	}
}

// PeekFront returns the head order without removing it, or nil if empty.
func (lvl *PriceLevel) PeekFront() *Order {
	lvl.mu.Lock()
	defer lvl.mu.Unlock()
	return lvl.head
}

// ConsumeUpTo matches against the head order for up to `want` units,
// computing the actual fill as min(want, head.visibleRemaining) and
// applying it atomically under the level's lock — both the read of the
// head's visible quantity and its mutation happen in one critical section,
// so a concurrent analytics traversal (which also takes this lock to read
// cached sums) never observes a torn intermediate state.
//
// It returns the maker's order id, the fill size, and the order removed
// from the level's linkage if the head is now fully done (either a plain
// order exhausted, or an iceberg with no hidden reserve left). ok is false
// if the level is empty.
func (lvl *PriceLevel) ConsumeUpTo(want uint64) (maker OrderID, filled uint64, removed *Order, ok bool) {
	lvl.mu.Lock()
	defer lvl.mu.Unlock()

	head := lvl.head
	if head == nil {
		return OrderID{}, 0, nil, false
	}

	fill := head.visibleRemaining()
	if fill > want {
		fill = want
	}
	maker = head.ID

	lvl.visibleSum -= fill
	switch head.consumeVisible(fill) {
	case sliceNone:
		return maker, fill, nil, true
	case sliceComplete:
		lvl.unlinkLocked(head)
		return maker, fill, head, true
	case sliceReshuffle:
		lvl.unlinkLocked(head)
		// pushBackLocked below re-adds head.HiddenReserve unconditionally,
		// so the pre-reshuffle reserve (including the slice that just moved
		// from hidden to visible) must be fully backed out first or it is
		// double-counted.
		lvl.hiddenSum -= head.HiddenReserve + head.VisibleRemaining
		lvl.pushBackLocked(head)
		return maker, fill, nil, true
	}
	return maker, fill, nil, true
}

// RemoveByID scans the level for an order with the given id and removes it,
// returning it, or nil if not present. O(n) in the level's order count.
func (lvl *PriceLevel) RemoveByID(id OrderID) *Order {
	lvl.mu.Lock()
	defer lvl.mu.Unlock()

	for n := lvl.head; n != nil; n = n.next {
		if n.ID == id {
			lvl.visibleSum -= n.visibleRemaining()
			if n.IsIceberg() {
				lvl.hiddenSum -= n.HiddenReserve
			}
			lvl.unlinkLocked(n)
			return n
		}
	}
	return nil
}

// unlinkLocked removes o from the doubly linked list. Caller holds mu.
func (lvl *PriceLevel) unlinkLocked(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		lvl.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		lvl.tail = o.prev
	}
	o.next, o.prev = nil, nil
	lvl.count--
}

// TotalVisible returns the cached sum of visible_remaining across the queue.
func (lvl *PriceLevel) TotalVisible() uint64 {
	lvl.mu.Lock()
	defer lvl.mu.Unlock()
	return lvl.visibleSum
}

// TotalHidden returns the cached sum of hidden reserves across the queue.
func (lvl *PriceLevel) TotalHidden() uint64 {
	lvl.mu.Lock()
	defer lvl.mu.Unlock()
	return lvl.hiddenSum
}

// Count returns the number of resting orders at this level.
func (lvl *PriceLevel) Count() int {
	lvl.mu.Lock()
	defer lvl.mu.Unlock()
	return lvl.count
}

// IsEmpty reports whether the level currently holds no orders.
func (lvl *PriceLevel) IsEmpty() bool {
	lvl.mu.Lock()
	defer lvl.mu.Unlock()
	return lvl.count == 0
}

// Snapshot returns the resting orders in queue order, oldest first. Used by
// analytics traversal and by the wire-format snapshot writer.
func (lvl *PriceLevel) Snapshot() []*Order {
	lvl.mu.Lock()
	defer lvl.mu.Unlock()
	out := make([]*Order, 0, lvl.count)
	for n := lvl.head; n != nil; n = n.next {
		out = append(out, n)
	}
	return out
}
