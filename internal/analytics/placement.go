package analytics

import "lobengine/internal/orderbook"

// Intelligent placement helpers, supplementing spec.md §2's "intelligent
// placement helpers" phrase with the concrete operations the Rust reference
// exposes (original_source/src/orderbook/book.rs): PriceNTicksInside,
// PriceForQueuePosition, PriceAtDepthAdjusted, QueueAheadAtPrice.

// PriceNTicksInside returns a price nTicks*tickSize better (more
// aggressive) than the best price on side, or ok=false if side is empty.
// For Buy this moves the price up toward the ask; for Sell, down toward
// the bid.
func PriceNTicksInside(book *orderbook.OrderBook, side orderbook.Side, nTicks, tickSize uint64) (uint64, bool) {
	best, ok := sameSideBest(book, side)
	if !ok {
		return 0, false
	}
	offset := nTicks * tickSize
	if side == orderbook.Buy {
		return best + offset, true
	}
	if offset > best {
		return 0, true
	}
	return best - offset, true
}

func sameSideBest(book *orderbook.OrderBook, side orderbook.Side) (uint64, bool) {
	if side == orderbook.Buy {
		return book.BestBid()
	}
	return book.BestAsk()
}

// QueueAheadAtPrice returns the total visible quantity resting ahead of a
// new order that would be placed at price on side (i.e. the level's
// current visible sum, since a new order always joins the tail).
func QueueAheadAtPrice(book *orderbook.OrderBook, side orderbook.Side, price uint64) uint64 {
	lvl := sameSide(book, side).LevelAt(price)
	if lvl == nil {
		return 0
	}
	return lvl.TotalVisible()
}

// PriceForQueuePosition returns the price at which a resting order would
// have at most `position` visible quantity ahead of it, scanning from the
// best price outward. ok is false if no level satisfies it (the book
// never accumulates enough depth).
func PriceForQueuePosition(book *orderbook.OrderBook, side orderbook.Side, position uint64) (price uint64, ok bool) {
	sameSide(book, side).IterateFromBest(func(p uint64, lvl *orderbook.PriceLevel) bool {
		if lvl.TotalVisible() <= position {
			price, ok = p, true
			return false
		}
		return true
	})
	return
}

// PriceAtDepthAdjusted is PriceAtDepth moved one tickSize further into
// the book as a slippage buffer: plus one tick for a buy, minus one tick
// for a sell (not below 0). A tickSize of 0 returns the raw depth price.
// The result is not rounded to a tick grid.
func PriceAtDepthAdjusted(book *orderbook.OrderBook, side orderbook.Side, targetDepth, tickSize uint64) (uint64, bool) {
	price, ok := PriceAtDepth(book, side, targetDepth)
	if !ok || tickSize == 0 {
		return price, ok
	}
	if side == orderbook.Buy {
		return price + tickSize, true
	}
	if tickSize > price {
		return 0, true
	}
	return price - tickSize, true
}
