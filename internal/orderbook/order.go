// Package orderbook implements the matching engine: order records, price
// levels, book sides, and the price-time priority matching loop.
package orderbook

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Side identifies which book side an order rests on or crosses against.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// TIFKind is the time-in-force discriminant.
type TIFKind uint8

const (
	GTC TIFKind = iota
	IOC
	FOK
	GTD
)

// TIF carries the time-in-force and, for GTD, the expiry timestamp.
type TIF struct {
	Kind      TIFKind
	ExpiresAt time.Time // only meaningful when Kind == GTD
}

// OrderID is the 128-bit globally unique order identifier.
type OrderID = uuid.UUID

// NewOrderID generates a fresh random order id.
func NewOrderID() OrderID {
	return uuid.New()
}

// Kind distinguishes the three submission shapes described in spec.md §6;
// it is carried on the Order in its Kind field (IsIceberg reads it).
type Kind uint8

const (
	KindLimit Kind = iota
	KindMarket
	KindIceberg
)

// Order is the mutable resting/arriving order record. Identity fields never
// change after construction; QuantityRemain, VisibleRemaining and
// HiddenReserve are mutated only by the matching engine.
type Order struct {
	ID   OrderID
	Side Side
	Kind Kind

	Price          uint64 // ticks; ignored (treated as sentinel) for market orders
	QuantityTotal  uint64
	QuantityRemain uint64

	// Iceberg-only fields. VisibleQuantity is the cap on each exposed
	// slice; VisibleRemaining is what's left of the current slice;
	// HiddenReserve is the undisclosed remainder still to be sliced in.
	VisibleQuantity   uint64
	VisibleRemaining  uint64
	HiddenReserve     uint64

	TIF       TIF
	Timestamp time.Time
	Extra     any

	seq uint64 // enqueue sequence within its price level, assigned by PriceLevel.PushBack

	next, prev *Order // PriceLevel FIFO linkage; nil when not resting
}

// String renders the TIF for the canonical snapshot wire format of
// spec.md §6 — "GTC", "IOC", "FOK", or "GTD:<expiry unix nanos>".
func (t TIF) String() string {
	switch t.Kind {
	case GTC:
		return "GTC"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	case GTD:
		return "GTD:" + strconv.FormatInt(t.ExpiresAt.UnixNano(), 10)
	default:
		return "GTC"
	}
}

// IsIceberg reports whether the order has a hidden reserve mechanism.
func (o *Order) IsIceberg() bool {
	return o.Kind == KindIceberg
}

// reset clears every field so a pooled Order can be reused for an
// unrelated submission without leaking state (in particular the FIFO
// linkage and Extra, which would otherwise keep arbitrary caller data and
// dead list nodes alive).
func (o *Order) reset() {
	*o = Order{}
}

// visibleRemaining returns the quantity currently exposed at the head of
// the queue: the full remaining quantity for plain orders, or the current
// visible slice for icebergs.
func (o *Order) visibleRemaining() uint64 {
	if o.IsIceberg() {
		return o.VisibleRemaining
	}
	return o.QuantityRemain
}

// sliceResult reports what consumeVisible must do to the level's linkage.
type sliceResult uint8

const (
	sliceNone     sliceResult = iota // visible slice not exhausted
	sliceComplete                    // order fully done (no hidden reserve left)
	sliceReshuffle                   // visible slice refilled from hidden reserve; re-enqueue at tail
)

// consumeVisible deducts fill from the visible slice and, per spec.md §4.A,
// performs iceberg slicing: when the visible slice reaches zero and a hidden
// reserve remains, it resets VisibleRemaining up to VisibleQuantity drawing
// from the reserve and signals the caller (PriceLevel) to re-enqueue this
// order at the tail, losing priority.
func (o *Order) consumeVisible(fill uint64) sliceResult {
	o.QuantityRemain -= fill

	if o.IsIceberg() {
		o.VisibleRemaining -= fill
		if o.VisibleRemaining > 0 {
			return sliceNone
		}
		if o.HiddenReserve == 0 {
			return sliceComplete
		}
		slice := o.VisibleQuantity
		if slice > o.HiddenReserve {
			slice = o.HiddenReserve
		}
		o.HiddenReserve -= slice
		o.VisibleRemaining = slice
		return sliceReshuffle
	}

	if o.QuantityRemain == 0 {
		return sliceComplete
	}
	return sliceNone
}
