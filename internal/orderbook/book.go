package orderbook

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"lobengine/internal/memory"
)

// infBuyLimit / zeroSellLimit are the sentinel limit prices market orders
// use so the matching loop's crossability test ("Buy: opp_best <= L; Sell:
// opp_best >= L") needs no special-casing, per spec.md §4.D.
const infBuyLimit = math.MaxUint64
const zeroSellLimit = 0

// Trade is emitted by the matching engine for each unit of liquidity
// consumed, exactly as described in spec.md §3.
type Trade struct {
	MakerOrderID  OrderID
	TakerOrderID  OrderID
	Price         uint64
	Quantity      uint64
	Timestamp     time.Time
	Symbol        string
	AggressorSide Side
}

// MatchReport is returned from every submission per spec.md §4.D step 5.
type MatchReport struct {
	FilledQuantity   uint64
	UnfilledQuantity uint64
	Trades           []Trade
	AveragePrice     float64
	RestingOrderID   *OrderID
}

// TradeListener receives trades as they are emitted. Invocations are
// serialized per submission (the single writer calls them in emission
// order) but may interleave across submissions once more than one
// listener goroutine is in play downstream, per spec.md §6.
type TradeListener func(Trade)

// OrderBook is one symbol's pair of book sides plus the secondary
// order-id index. Per the teacher's own doc.go ("single-writer system...
// lock-free reads"), mutating operations (Submit*, Cancel, CancelAll) are
// serialized on submitMu — logically concurrent callers queue briefly on
// one critical section, exactly as a single matching thread would — while
// Query/Analytics operations read through BookSide's RWMutex and
// PriceLevel's per-price mutex without ever taking submitMu, so readers
// never wait on each other and only briefly on an in-flight write.
type OrderBook struct {
	Symbol string

	Bids *BookSide
	Asks *BookSide

	index *orderIndex

	submitMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []TradeListener

	hasTraded      atomic.Bool
	lastTradePrice atomic.Uint64
	lastTradeAtNs  atomic.Int64

	// reclaimer recycles *Order structs through the epoch-based reclaimer
	// instead of leaving them to the garbage collector on every fill or
	// cancellation. Nil unless the book was built with NewOrderBookWithPool;
	// when nil, every allocation/retirement below falls through to the
	// plain heap path.
	reclaimer *memory.Reclaimer[*Order]
}

// NewOrderBook constructs an empty book for symbol with no order pooling;
// every Order is a plain heap allocation left for the garbage collector.
func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		Bids:   newBookSide(Buy),
		Asks:   newBookSide(Sell),
		index:  newOrderIndex(),
	}
}

// NewOrderBookWithPool constructs an empty book that recycles fully
// removed Order structs through reclaimer rather than abandoning them to
// the garbage collector, trading a little bookkeeping for lower
// allocation pressure on a high-churn book. Callers must invoke
// AdvanceEpoch periodically (e.g. from a ticker) to actually reclaim
// retired orders; readers that need the iterator-tolerance guarantee
// across a traversal should bracket it with a *memory.ReaderEpoch's
// Enter/Exit and pass that epoch into AdvanceEpoch.
func NewOrderBookWithPool(symbol string, reclaimer *memory.Reclaimer[*Order]) *OrderBook {
	b := NewOrderBook(symbol)
	b.reclaimer = reclaimer
	return b
}

// AdvanceEpoch advances the global reclamation epoch and, when no reader in
// readers is inside a traversal, returns every retired order to the pool;
// while any reader is active nothing is reclaimed. A no-op on a book built
// without NewOrderBookWithPool.
func (b *OrderBook) AdvanceEpoch(readers ...*memory.ReaderEpoch) {
	if b.reclaimer == nil {
		return
	}
	b.reclaimer.AdvanceAndReclaim(readers...)
}

// allocOrder returns a zeroed Order, drawing from the pool when the book
// was built with one.
func (b *OrderBook) allocOrder() *Order {
	if b.reclaimer == nil {
		return &Order{}
	}
	o := b.reclaimer.Get()
	o.reset()
	return o
}

// retireOrder hands a fully removed order to the reclaimer, when the book
// has one; it is a no-op otherwise, leaving o for the garbage collector.
// The order's fields are left untouched here — a concurrent reader that
// captured a reference before removal may still be reading them — and are
// only cleared once AdvanceEpoch confirms no reader can still observe it
// and the pool actually reissues the object.
func (b *OrderBook) retireOrder(o *Order) {
	if b.reclaimer == nil || o == nil {
		return
	}
	b.reclaimer.Retire(o)
}

// OnTrade registers a listener and returns a function to unsubscribe it.
func (b *OrderBook) OnTrade(l TradeListener) (unsubscribe func()) {
	b.listenersMu.Lock()
	defer b.listenersMu.Unlock()
	b.listeners = append(b.listeners, l)
	idx := len(b.listeners) - 1
	return func() {
		b.listenersMu.Lock()
		defer b.listenersMu.Unlock()
		if idx < len(b.listeners) {
			b.listeners[idx] = nil
		}
	}
}

func (b *OrderBook) emit(t Trade) {
	b.hasTraded.Store(true)
	b.lastTradePrice.Store(t.Price)
	b.lastTradeAtNs.Store(t.Timestamp.UnixNano())

	b.listenersMu.RLock()
	defer b.listenersMu.RUnlock()
	for _, l := range b.listeners {
		if l != nil {
			l(t)
		}
	}
}

// LastTrade returns the last traded price, its timestamp, and whether a
// trade has ever occurred on this book.
func (b *OrderBook) LastTrade() (price uint64, at time.Time, ok bool) {
	if !b.hasTraded.Load() {
		return 0, time.Time{}, false
	}
	return b.lastTradePrice.Load(), time.Unix(0, b.lastTradeAtNs.Load()), true
}

// BestBid / BestAsk are the Query API's price accessors (spec.md §6).
func (b *OrderBook) BestBid() (uint64, bool) { return b.Bids.BestPrice() }
func (b *OrderBook) BestAsk() (uint64, bool) { return b.Asks.BestPrice() }

// HasOrder reports whether id currently rests in the book.
func (b *OrderBook) HasOrder(id OrderID) bool { return b.index.has(id) }

// LevelCount returns the number of distinct resting prices on side.
func (b *OrderBook) LevelCount(side Side) int {
	if side == Buy {
		return b.Bids.LevelCount()
	}
	return b.Asks.LevelCount()
}

func (b *OrderBook) sideOf(side Side) *BookSide {
	if side == Buy {
		return b.Bids
	}
	return b.Asks
}

// SubmitLimit implements spec.md §6's submit_limit.
func (b *OrderBook) SubmitLimit(id OrderID, side Side, price, qty uint64, tif TIF, extra any) (MatchReport, error) {
	o := b.allocOrder()
	o.ID, o.Side, o.Kind = id, side, KindLimit
	o.Price, o.QuantityTotal, o.QuantityRemain = price, qty, qty
	o.TIF, o.Timestamp, o.Extra = tif, time.Now(), extra
	return b.submit(o)
}

// SubmitMarket implements spec.md §6's submit_market. Market orders are
// always IOC-shaped: any residual is discarded, never rested.
func (b *OrderBook) SubmitMarket(id OrderID, side Side, qty uint64, extra any) (MatchReport, error) {
	limit := uint64(infBuyLimit)
	if side == Sell {
		limit = zeroSellLimit
	}
	o := b.allocOrder()
	o.ID, o.Side, o.Kind = id, side, KindMarket
	o.Price, o.QuantityTotal, o.QuantityRemain = limit, qty, qty
	o.TIF, o.Timestamp, o.Extra = TIF{Kind: IOC}, time.Now(), extra
	return b.submit(o)
}

// SubmitIceberg implements spec.md §6's submit_iceberg.
func (b *OrderBook) SubmitIceberg(id OrderID, side Side, price, totalQty, visibleQty uint64, tif TIF, extra any) (MatchReport, error) {
	if visibleQty > totalQty {
		return MatchReport{}, ErrInvalidIceberg
	}
	o := b.allocOrder()
	o.ID, o.Side, o.Kind = id, side, KindIceberg
	o.Price, o.QuantityTotal, o.QuantityRemain = price, totalQty, totalQty
	o.VisibleQuantity, o.VisibleRemaining = visibleQty, visibleQty
	o.HiddenReserve = totalQty - visibleQty
	o.TIF, o.Timestamp, o.Extra = tif, time.Now(), extra
	return b.submit(o)
}

// isExpired reports whether a GTD order's expiry has passed as of now.
// Expiry detection is lazy/best-effort per spec.md §5: checked only when a
// traversal or matching attempt encounters the order, never by a reaper.
func isExpired(o *Order, now time.Time) bool {
	return o.TIF.Kind == GTD && !now.Before(o.TIF.ExpiresAt)
}

// crosses reports whether a resting level at price can match against a
// submission on side with limit L.
func crosses(side Side, levelPrice, limit uint64) bool {
	if side == Buy {
		return levelPrice <= limit
	}
	return levelPrice >= limit
}

// submit runs the full contract of spec.md §4.D for one arriving order.
func (b *OrderBook) submit(o *Order) (MatchReport, error) {
	b.submitMu.Lock()
	defer b.submitMu.Unlock()

	// Step 1: pre-match validity checks. No mutation has happened yet,
	// so returning an error here leaves the book untouched.
	if b.index.has(o.ID) {
		return MatchReport{}, ErrDuplicateID
	}
	if o.QuantityTotal == 0 {
		return MatchReport{}, ErrZeroQuantity
	}
	if o.IsIceberg() && o.VisibleQuantity > o.QuantityTotal {
		return MatchReport{}, ErrInvalidIceberg
	}

	opposite := b.sideOf(o.Side.Opposite())

	// Step 2: FOK feasibility gate.
	if o.TIF.Kind == FOK {
		if !fokFeasible(opposite, o.Side, o.Price, o.QuantityTotal) {
			return MatchReport{}, ErrFokUnfillable
		}
	}

	// Step 3: matching loop.
	report := MatchReport{}
	for o.QuantityRemain > 0 {
		lvl := opposite.BestLevel()
		if lvl == nil || !crosses(o.Side, lvl.Price, o.Price) {
			break
		}

		if head := lvl.PeekFront(); head != nil && isExpired(head, time.Now()) {
			lvl.RemoveByID(head.ID)
			b.index.delete(head.ID)
			b.retireOrder(head)
			if lvl.IsEmpty() {
				opposite.RemoveEmpty(lvl.Price)
			}
			continue
		}

		maker, fill, removed, ok := lvl.ConsumeUpTo(o.QuantityRemain)
		if !ok {
			// Level drained by us already observing empty; reap it.
			opposite.RemoveEmpty(lvl.Price)
			continue
		}
		if fill == 0 && removed == nil {
			// Shouldn't happen once ok==true and level non-empty, but
			// guards against spinning if it ever does.
			opposite.RemoveEmpty(lvl.Price)
			continue
		}

		o.QuantityRemain -= fill
		now := time.Now()
		trade := Trade{
			MakerOrderID: maker, TakerOrderID: o.ID,
			Price: lvl.Price, Quantity: fill, Timestamp: now,
			Symbol: b.Symbol, AggressorSide: o.Side,
		}
		report.Trades = append(report.Trades, trade)
		report.FilledQuantity += fill
		b.emit(trade)

		if removed != nil {
			b.index.delete(removed.ID)
			b.retireOrder(removed)
		}
		if lvl.IsEmpty() {
			opposite.RemoveEmpty(lvl.Price)
		}
	}

	report.UnfilledQuantity = o.QuantityRemain
	if report.FilledQuantity > 0 {
		var notional float64
		for _, t := range report.Trades {
			notional += float64(t.Price) * float64(t.Quantity)
		}
		report.AveragePrice = notional / float64(report.FilledQuantity)
	}

	// Step 4: residual handling.
	switch o.TIF.Kind {
	case GTC, GTD:
		if o.QuantityRemain > 0 {
			if o.IsIceberg() {
				reconcileIcebergResidual(o)
			}
			b.sideOf(o.Side).Insert(o)
			b.index.put(o.ID, o.Side, o.Price)
			id := o.ID
			report.RestingOrderID = &id
		} else {
			b.retireOrder(o)
		}
	default: // IOC, FOK, and market (always IOC-shaped): residual is discarded.
		b.retireOrder(o)
	}

	return report, nil
}

// reconcileIcebergResidual resets an iceberg order's visible/hidden split
// against its post-match QuantityRemain before it rests. An aggressive
// iceberg only has QuantityRemain decremented while it is the taker (the
// matching loop above never touches VisibleRemaining/HiddenReserve, since
// those are consumed only through a maker's PriceLevel.ConsumeUpTo); left
// unreconciled, the level it rests on would advertise the split from its
// original submission rather than what actually remains, violating
// spec.md §3's visible+hidden==remaining invariant.
func reconcileIcebergResidual(o *Order) {
	visible := o.VisibleQuantity
	if visible > o.QuantityRemain {
		visible = o.QuantityRemain
	}
	o.VisibleRemaining = visible
	o.HiddenReserve = o.QuantityRemain - visible
}

// fokFeasible walks the opposite side, summing visible-only quantity
// across crossable levels (hidden iceberg reserves count only after
// reshuffle, per spec.md §4.D step 2), short-circuiting once `need` units
// are accounted for.
func fokFeasible(opposite *BookSide, side Side, limit uint64, need uint64) bool {
	var have uint64
	opposite.IterateFromBest(func(price uint64, lvl *PriceLevel) bool {
		if !crosses(side, price, limit) {
			return false
		}
		have += lvl.TotalVisible()
		return have < need
	})
	return have >= need
}

// Cancel implements spec.md §4.D's cancellation contract: idempotent,
// returns ErrNotFound if the order already completed or never existed.
func (b *OrderBook) Cancel(id OrderID) error {
	b.submitMu.Lock()
	defer b.submitMu.Unlock()

	loc, ok := b.index.get(id)
	if !ok {
		return ErrNotFound
	}

	lvl := b.sideOf(loc.side).LevelAt(loc.price)
	if lvl == nil {
		b.index.delete(id)
		return ErrNotFound
	}

	removed := lvl.RemoveByID(id)
	b.index.delete(id)
	if removed == nil {
		return ErrNotFound
	}
	b.retireOrder(removed)
	if lvl.IsEmpty() {
		b.sideOf(loc.side).RemoveEmpty(loc.price)
	}
	return nil
}

// PurgeExpired sweeps side for GTD orders whose expiry has passed and
// removes them as if cancelled, with no synthetic trade event per
// spec.md §9's default. Callers (a query path or a periodic cycle tick)
// drive this; there is no dedicated reaper thread per spec.md §5.
func (b *OrderBook) PurgeExpired(side Side) int {
	b.submitMu.Lock()
	defer b.submitMu.Unlock()

	bs := b.sideOf(side)
	now := time.Now()

	var prices []uint64
	bs.IterateFromBest(func(price uint64, lvl *PriceLevel) bool {
		prices = append(prices, price)
		return true
	})

	n := 0
	for _, price := range prices {
		lvl := bs.LevelAt(price)
		if lvl == nil {
			continue
		}
		for _, o := range lvl.Snapshot() {
			if isExpired(o, now) {
				lvl.RemoveByID(o.ID)
				b.index.delete(o.ID)
				b.retireOrder(o)
				n++
			}
		}
		bs.RemoveEmpty(price)
	}
	return n
}

// CancelAll cancels every resting order, optionally restricted to one
// side, and returns the number of orders removed.
func (b *OrderBook) CancelAll(side *Side) int {
	b.submitMu.Lock()
	defer b.submitMu.Unlock()

	var sides []*BookSide
	if side == nil {
		sides = []*BookSide{b.Bids, b.Asks}
	} else {
		sides = []*BookSide{b.sideOf(*side)}
	}

	n := 0
	for _, bs := range sides {
		var prices []uint64
		bs.IterateFromBest(func(price uint64, lvl *PriceLevel) bool {
			prices = append(prices, price)
			return true
		})
		for _, price := range prices {
			lvl := bs.LevelAt(price)
			if lvl == nil {
				continue
			}
			for _, o := range lvl.Snapshot() {
				lvl.RemoveByID(o.ID)
				b.index.delete(o.ID)
				b.retireOrder(o)
				n++
			}
			bs.RemoveEmpty(price)
		}
	}
	return n
}
