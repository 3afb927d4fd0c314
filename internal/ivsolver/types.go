// Package ivsolver extracts a market price from the order book and inverts
// the Black-Scholes formula for it via a hybrid Newton-Raphson/bisection
// solver, grading the result by the liquidity observed at solve time.
package ivsolver

import (
	"math"
	"time"
)

// OptionType distinguishes calls from puts.
type OptionType uint8

const (
	Call OptionType = iota
	Put
)

// PriceSourceKind selects how price_from_book extracts a market price from
// the order book, per spec.md §4.F.
type PriceSourceKind uint8

const (
	MidPrice PriceSourceKind = iota
	WeightedMid
	LastTrade
)

// PriceSource configures price extraction. MaxAge is only meaningful for
// LastTrade: a trade older than MaxAge is treated as unavailable, resolving
// the staleness open question of spec.md §9 (recorded in SPEC_FULL.md §5).
// A zero MaxAge means no staleness limit.
type PriceSource struct {
	Kind   PriceSourceKind
	MaxAge time.Duration
}

// IVQuality grades a solved IV by the spread observed at calculation time.
type IVQuality uint8

const (
	// High: spread < 100 bps.
	High IVQuality = iota
	// Medium: spread in [100, 500) bps.
	Medium
	// Low: spread in [500, 10000) bps.
	Low
	// Interpolated marks an IV derived from nearby strikes rather than
	// solved directly — not produced by price_from_book today; reserved
	// for a future surface-smoothing hook (spec.md §9), grounded on
	// original_source/.../types.rs's IVQuality::Interpolated variant.
	Interpolated
)

func (q IVQuality) String() string {
	switch q {
	case High:
		return "High"
	case Medium:
		return "Medium"
	case Low:
		return "Low"
	case Interpolated:
		return "Interpolated"
	default:
		return "Unknown"
	}
}

// IVParams describes the option contract and market conditions needed to
// price it under Black-Scholes and invert for implied volatility.
type IVParams struct {
	Spot           float64
	Strike         float64
	TimeToExpiry   float64 // years
	RiskFreeRate   float64
	OptionType     OptionType
}

// IntrinsicValue is max(0, S-K) for a call, max(0, K-S) for a put.
func (p IVParams) IntrinsicValue() float64 {
	if p.OptionType == Call {
		return math.Max(p.Spot-p.Strike, 0)
	}
	return math.Max(p.Strike-p.Spot, 0)
}

// IsITM reports whether the option currently has positive intrinsic value.
func (p IVParams) IsITM() bool { return p.IntrinsicValue() > 0 }

// IsATM reports whether spot is within 0.1% of strike.
func (p IVParams) IsATM() bool {
	return math.Abs(p.Spot-p.Strike)/p.Strike < 0.001
}

// IsOTM reports whether the option is neither ITM nor ATM.
func (p IVParams) IsOTM() bool { return !p.IsITM() && !p.IsATM() }

// IVResult is the outcome of a successful solve.
type IVResult struct {
	IV         float64
	PriceUsed  float64
	SpreadBps  float64
	Iterations int
	Quality    IVQuality
}

// IVPercent returns IV as a percentage, e.g. 25.0 for 0.25.
func (r IVResult) IVPercent() float64 { return r.IV * 100 }
