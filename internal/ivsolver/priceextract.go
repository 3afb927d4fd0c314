package ivsolver

import (
	"time"

	"github.com/cockroachdb/errors"

	"lobengine/internal/analytics"
	"lobengine/internal/orderbook"
)

// PriceFromBook extracts a market price and the current spread (in bps)
// from book per spec.md §4.F's price_from_book, using source to select
// mid-price, size-weighted mid, or last trade.
func PriceFromBook(book *orderbook.OrderBook, source PriceSource) (price, spreadBps float64, err error) {
	spreadBps, haveSpread := analytics.SpreadBps(book)

	switch source.Kind {
	case MidPrice:
		mid, ok := analytics.MidPrice(book)
		if !ok {
			return 0, 0, ErrNoPriceAvailable
		}
		return mid, spreadBps, nil

	case WeightedMid:
		micro, ok := analytics.MicroPrice(book)
		if !ok {
			return 0, 0, ErrNoPriceAvailable
		}
		return micro, spreadBps, nil

	case LastTrade:
		tradePrice, at, ok := book.LastTrade()
		if !ok {
			return 0, 0, ErrNoPriceAvailable
		}
		if source.MaxAge > 0 && time.Since(at) > source.MaxAge {
			return 0, 0, errors.Wrapf(ErrNoPriceAvailable, "last trade at %s exceeds max age %s", at, source.MaxAge)
		}
		if !haveSpread {
			spreadBps = 0
		}
		return float64(tradePrice), spreadBps, nil

	default:
		return 0, 0, errors.Wrapf(ErrInvalidParams, "unknown price source kind %d", source.Kind)
	}
}

// classifyLiquidity grades spreadBps per spec.md §4.F's liquidity filter:
// High below 100 bps, Medium below 500, Low below 10000, otherwise the
// solve is rejected outright.
func classifyLiquidity(spreadBps float64) (IVQuality, error) {
	switch {
	case spreadBps < 100:
		return High, nil
	case spreadBps < 500:
		return Medium, nil
	case spreadBps < 10000:
		return Low, nil
	default:
		return 0, ErrIlliquidReject
	}
}

// ImpliedVolatility implements spec.md §6's top-level IV API: extract a
// price from book per source, apply the liquidity gate, then invert
// Black-Scholes for σ using cfg's tolerances.
func ImpliedVolatility(book *orderbook.OrderBook, params IVParams, source PriceSource, cfg SolverConfig) (IVResult, error) {
	price, spreadBps, err := PriceFromBook(book, source)
	if err != nil {
		return IVResult{}, err
	}

	quality, err := classifyLiquidity(spreadBps)
	if err != nil {
		return IVResult{}, err
	}

	iv, iterations, err := Solve(params, price, cfg)
	if err != nil {
		return IVResult{}, err
	}

	return IVResult{
		IV:         iv,
		PriceUsed:  price,
		SpreadBps:  spreadBps,
		Iterations: iterations,
		Quality:    quality,
	}, nil
}
