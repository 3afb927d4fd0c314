// Package analytics implements the single-pass traversal metrics and
// snapshotting layer of the limit order book: depth statistics, VWAP,
// imbalance, micro-price, market-impact simulation, intelligent placement
// helpers, and enriched/raw snapshots.
package analytics

import (
	"math"

	"lobengine/internal/orderbook"
)

// LevelView is the read-only projection of one price level used throughout
// this package: just price and visible/hidden totals, decoupled from the
// matching engine's internal PriceLevel so analytics never mutates book
// state.
type LevelView struct {
	Price   uint64
	Visible uint64
	Hidden  uint64
}

// topLevels walks side from its best price, collecting up to n LevelViews.
// Every analytic in this file is built on top of this single traversal
// primitive so each top-level call performs exactly one pass over the
// book, per spec.md §4.E.
func topLevels(side *orderbook.BookSide, n int) []LevelView {
	out := make([]LevelView, 0, n)
	side.IterateFromBest(func(price uint64, lvl *orderbook.PriceLevel) bool {
		if len(out) >= n {
			return false
		}
		out = append(out, LevelView{Price: price, Visible: lvl.TotalVisible(), Hidden: lvl.TotalHidden()})
		return true
	})
	return out
}

// BestBidAsk returns the best bid and ask prices/sizes in one pass each,
// used by MidPrice, Spread*, and MicroPrice.
func BestBidAsk(book *orderbook.OrderBook) (bidPrice, bidSize, askPrice, askSize uint64, haveBid, haveAsk bool) {
	bidLevels := topLevels(book.Bids, 1)
	askLevels := topLevels(book.Asks, 1)
	if len(bidLevels) > 0 {
		bidPrice, bidSize, haveBid = bidLevels[0].Price, bidLevels[0].Visible, true
	}
	if len(askLevels) > 0 {
		askPrice, askSize, haveAsk = askLevels[0].Price, askLevels[0].Visible, true
	}
	return
}

// MidPrice is (best_bid + best_ask) / 2, absent when either side is empty.
func MidPrice(book *orderbook.OrderBook) (float64, bool) {
	bid, _, ask, _, haveBid, haveAsk := BestBidAsk(book)
	if !haveBid || !haveAsk {
		return 0, false
	}
	return (float64(bid) + float64(ask)) / 2, true
}

// SpreadAbsolute is best_ask - best_bid.
func SpreadAbsolute(book *orderbook.OrderBook) (int64, bool) {
	bid, _, ask, _, haveBid, haveAsk := BestBidAsk(book)
	if !haveBid || !haveAsk {
		return 0, false
	}
	return int64(ask) - int64(bid), true
}

// SpreadBps is 10^4 * spread / mid.
func SpreadBps(book *orderbook.OrderBook) (float64, bool) {
	bid, _, ask, _, haveBid, haveAsk := BestBidAsk(book)
	if !haveBid || !haveAsk {
		return 0, false
	}
	mid := (float64(bid) + float64(ask)) / 2
	if mid == 0 {
		return 0, false
	}
	return 10000 * (float64(ask) - float64(bid)) / mid, true
}

// MicroPrice is the size-weighted refinement of mid, using best-level
// visible sizes: (bid*askSize + ask*bidSize) / (bidSize + askSize).
func MicroPrice(book *orderbook.OrderBook) (float64, bool) {
	bid, bidSize, ask, askSize, haveBid, haveAsk := BestBidAsk(book)
	if !haveBid || !haveAsk {
		return 0, false
	}
	denom := bidSize + askSize
	if denom == 0 {
		return 0, false
	}
	return (float64(bid)*float64(askSize) + float64(ask)*float64(bidSize)) / float64(denom), true
}

// crossSide returns the BookSide a submission on side would execute
// against: asks for a buy, bids for a sell. ComputeMarketImpact walks it;
// VWAP reads the same side instead (see sameSide).
func crossSide(book *orderbook.OrderBook, side orderbook.Side) *orderbook.BookSide {
	if side == orderbook.Buy {
		return book.Asks
	}
	return book.Bids
}

// sameSide returns the side's own book side (for depth/imbalance reads
// that describe that side's resting liquidity, not what it would cross).
func sameSide(book *orderbook.OrderBook, side orderbook.Side) *orderbook.BookSide {
	if side == orderbook.Buy {
		return book.Bids
	}
	return book.Asks
}

// VWAP is Σ(price*qty)/Σ(qty) over the first N levels of side's own
// resting liquidity (visible only), per spec.md §4.E.
func VWAP(book *orderbook.OrderBook, side orderbook.Side, n int) (float64, bool) {
	levels := topLevels(sameSide(book, side), n)
	var notional, qty float64
	for _, lvl := range levels {
		notional += float64(lvl.Price) * float64(lvl.Visible)
		qty += float64(lvl.Visible)
	}
	if qty == 0 {
		return 0, false
	}
	return notional / qty, true
}

// OrderBookImbalance is (Σbid − Σask) / (Σbid + Σask) over the first N
// levels of each side; result in [-1, 1].
func OrderBookImbalance(book *orderbook.OrderBook, n int) (float64, bool) {
	bidQty := sumVisible(topLevels(book.Bids, n))
	askQty := sumVisible(topLevels(book.Asks, n))
	denom := bidQty + askQty
	if denom == 0 {
		return 0, false
	}
	return (bidQty - askQty) / denom, true
}

func sumVisible(levels []LevelView) float64 {
	var total float64
	for _, lvl := range levels {
		total += float64(lvl.Visible)
	}
	return total
}

// TotalDepthAtLevels sums visible quantity over the first N levels of side.
func TotalDepthAtLevels(book *orderbook.OrderBook, side orderbook.Side, n int) uint64 {
	var total uint64
	for _, lvl := range topLevels(sameSide(book, side), n) {
		total += lvl.Visible
	}
	return total
}

// PriceAtDepth returns the first price at which cumulative visible depth on
// side reaches target, short-circuiting the traversal. ok is false if the
// side never accumulates that much depth.
func PriceAtDepth(book *orderbook.OrderBook, side orderbook.Side, target uint64) (price uint64, ok bool) {
	var cum uint64
	sameSide(book, side).IterateFromBest(func(p uint64, lvl *orderbook.PriceLevel) bool {
		cum += lvl.TotalVisible()
		if cum >= target {
			price, ok = p, true
			return false
		}
		return true
	})
	return
}

// LevelsUntilDepth returns the number of levels that must be consumed from
// the best price on side to reach target cumulative visible depth.
func LevelsUntilDepth(book *orderbook.OrderBook, side orderbook.Side, target uint64) (levels int, ok bool) {
	var cum uint64
	sameSide(book, side).IterateFromBest(func(p uint64, lvl *orderbook.PriceLevel) bool {
		levels++
		cum += lvl.TotalVisible()
		if cum >= target {
			ok = true
			return false
		}
		return true
	})
	if !ok {
		levels = 0
	}
	return
}

// LiquidityInRange sums visible quantity on side across prices in [lo, hi].
// Bids traverse best-first in descending price order, asks ascending, so
// once the walk drops below lo (bids) or rises above hi (asks) no further level can fall in
// range and the traversal short-circuits.
func LiquidityInRange(book *orderbook.OrderBook, side orderbook.Side, lo, hi uint64) uint64 {
	var total uint64
	sameSide(book, side).IterateFromBest(func(p uint64, lvl *orderbook.PriceLevel) bool {
		if side == orderbook.Buy && p < lo {
			return false
		}
		if side == orderbook.Sell && p > hi {
			return false
		}
		if p >= lo && p <= hi {
			total += lvl.TotalVisible()
		}
		return true
	})
	return total
}

// DepthStatistics aggregates per-level visible depth over the first N
// levels of side.
type DepthStatistics struct {
	Total           uint64
	Mean            float64
	Min             uint64
	Max             uint64
	StdDev          float64
	WeightedAvgPrice float64
}

// ComputeDepthStatistics implements spec.md §4.E's depth_statistics.
func ComputeDepthStatistics(book *orderbook.OrderBook, side orderbook.Side, n int) DepthStatistics {
	levels := topLevels(sameSide(book, side), n)
	if len(levels) == 0 {
		return DepthStatistics{}
	}

	stats := DepthStatistics{Min: levels[0].Visible, Max: levels[0].Visible}
	var sum, notional float64
	for _, lvl := range levels {
		stats.Total += lvl.Visible
		if lvl.Visible < stats.Min {
			stats.Min = lvl.Visible
		}
		if lvl.Visible > stats.Max {
			stats.Max = lvl.Visible
		}
		sum += float64(lvl.Visible)
		notional += float64(lvl.Price) * float64(lvl.Visible)
	}
	stats.Mean = sum / float64(len(levels))
	if sum > 0 {
		stats.WeightedAvgPrice = notional / sum
	}

	var variance float64
	for _, lvl := range levels {
		d := float64(lvl.Visible) - stats.Mean
		variance += d * d
	}
	variance /= float64(len(levels))
	stats.StdDev = math.Sqrt(variance)

	return stats
}

// IsThinBook reports whether the shallower of the two sides' depth over
// its first N levels is below threshold.
func IsThinBook(book *orderbook.OrderBook, threshold uint64, n int) bool {
	bidDepth := TotalDepthAtLevels(book, orderbook.Buy, n)
	askDepth := TotalDepthAtLevels(book, orderbook.Sell, n)
	best := bidDepth
	if askDepth < best {
		best = askDepth
	}
	return best < threshold
}

// Fill is one simulated execution unit within MarketImpact/SimulateMarketOrder.
type Fill struct {
	Price    uint64
	Quantity uint64
}

// MarketImpact is the non-mutating simulation of spec.md §4.E: it walks the
// opposite side exactly as the matching engine would, without touching book
// state, and reports the resulting average price, cost, and slippage versus
// the opposing best observed at the start of the simulation.
type MarketImpact struct {
	AveragePrice    float64
	TotalCost       float64
	SlippageBps     float64
	LevelsConsumed  int
	Fills           []Fill
	UnfilledQty     uint64
}

// ComputeMarketImpact implements spec.md §4.E's market_impact(side, qty).
func ComputeMarketImpact(book *orderbook.OrderBook, side orderbook.Side, qty uint64) MarketImpact {
	opposingBest, haveBest := startingBest(book, side)

	impact := MarketImpact{}
	remaining := qty
	var notional float64

	crossSide(book, side).IterateFromBest(func(price uint64, lvl *orderbook.PriceLevel) bool {
		if remaining == 0 {
			return false
		}
		avail := lvl.TotalVisible()
		if avail == 0 {
			return true
		}
		take := avail
		if take > remaining {
			take = remaining
		}
		impact.Fills = append(impact.Fills, Fill{Price: price, Quantity: take})
		notional += float64(price) * float64(take)
		remaining -= take
		impact.LevelsConsumed++
		return true
	})

	filled := qty - remaining
	impact.UnfilledQty = remaining
	if filled > 0 {
		impact.AveragePrice = notional / float64(filled)
		impact.TotalCost = notional
		if haveBest && opposingBest > 0 {
			impact.SlippageBps = 10000 * (impact.AveragePrice - float64(opposingBest)) / float64(opposingBest)
			if side == orderbook.Sell {
				impact.SlippageBps = -impact.SlippageBps
			}
		}
	}
	return impact
}

func startingBest(book *orderbook.OrderBook, side orderbook.Side) (uint64, bool) {
	if side == orderbook.Buy {
		return book.BestAsk()
	}
	return book.BestBid()
}

// OrderSimulation is the Rust reference's richer result shape
// (simulate_market_order), supplementing market_impact with the full
// fills list and a remaining_quantity field, grounded on
// original_source/src/orderbook/book.rs's simulate_market_order.
type OrderSimulation struct {
	Fills            []Fill
	AveragePrice     float64
	TotalFilled      uint64
	RemainingQuantity uint64
}

// SimulateMarketOrder runs the same non-mutating walk as ComputeMarketImpact
// but returns the fill-centric shape the original implementation exposed.
func SimulateMarketOrder(book *orderbook.OrderBook, side orderbook.Side, qty uint64) OrderSimulation {
	impact := ComputeMarketImpact(book, side, qty)
	filled := qty - impact.UnfilledQty
	return OrderSimulation{
		Fills:             impact.Fills,
		AveragePrice:      impact.AveragePrice,
		TotalFilled:       filled,
		RemainingQuantity: impact.UnfilledQty,
	}
}
