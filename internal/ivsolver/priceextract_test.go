package ivsolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lobengine/internal/orderbook"
)

func tightBook(t *testing.T) *orderbook.OrderBook {
	t.Helper()
	book := orderbook.NewOrderBook("TEST")
	_, err := book.SubmitLimit(orderbook.NewOrderID(), orderbook.Buy, 14950, 100, orderbook.TIF{Kind: orderbook.GTC}, nil)
	require.NoError(t, err)
	_, err = book.SubmitLimit(orderbook.NewOrderID(), orderbook.Sell, 15050, 100, orderbook.TIF{Kind: orderbook.GTC}, nil)
	require.NoError(t, err)
	return book
}

func TestPriceFromBook_MidPrice(t *testing.T) {
	book := tightBook(t)
	price, spreadBps, err := PriceFromBook(book, PriceSource{Kind: MidPrice})
	require.NoError(t, err)
	require.InDelta(t, 15000, price, 1e-9)
	require.Greater(t, spreadBps, 0.0)
}

func TestPriceFromBook_NoPriceWhenSideEmpty(t *testing.T) {
	book := orderbook.NewOrderBook("TEST")
	_, err := book.SubmitLimit(orderbook.NewOrderID(), orderbook.Buy, 100, 10, orderbook.TIF{Kind: orderbook.GTC}, nil)
	require.NoError(t, err)

	_, _, err = PriceFromBook(book, PriceSource{Kind: MidPrice})
	require.ErrorIs(t, err, ErrNoPriceAvailable)
}

func TestPriceFromBook_LastTrade(t *testing.T) {
	book := orderbook.NewOrderBook("TEST")
	_, err := book.SubmitLimit(orderbook.NewOrderID(), orderbook.Buy, 100, 10, orderbook.TIF{Kind: orderbook.GTC}, nil)
	require.NoError(t, err)

	_, _, err = PriceFromBook(book, PriceSource{Kind: LastTrade})
	require.ErrorIs(t, err, ErrNoPriceAvailable)

	_, err = book.SubmitMarket(orderbook.NewOrderID(), orderbook.Sell, 5, nil)
	require.NoError(t, err)

	price, _, err := PriceFromBook(book, PriceSource{Kind: LastTrade})
	require.NoError(t, err)
	require.InDelta(t, 100, price, 1e-9)
}

func TestClassifyLiquidity_Thresholds(t *testing.T) {
	q, err := classifyLiquidity(50)
	require.NoError(t, err)
	require.Equal(t, High, q)

	q, err = classifyLiquidity(300)
	require.NoError(t, err)
	require.Equal(t, Medium, q)

	q, err = classifyLiquidity(2000)
	require.NoError(t, err)
	require.Equal(t, Low, q)

	_, err = classifyLiquidity(20000)
	require.ErrorIs(t, err, ErrIlliquidReject)
}

// Scenario 6 (spec.md §8), driven through the full book-backed API: a
// synthetic option book quoted in cents (14999/15001, mid 15000, a spread
// of about 1.3 bps, well under 1%) with spot = strike = 300000 cents
// should solve the same iv ≈ 0.5306 with quality High.
func TestImpliedVolatility_Scenario6ThroughBook(t *testing.T) {
	book := orderbook.NewOrderBook("OPT-3000C-30D")
	_, err := book.SubmitLimit(orderbook.NewOrderID(), orderbook.Buy, 14999, 10, orderbook.TIF{Kind: orderbook.GTC}, nil)
	require.NoError(t, err)
	_, err = book.SubmitLimit(orderbook.NewOrderID(), orderbook.Sell, 15001, 10, orderbook.TIF{Kind: orderbook.GTC}, nil)
	require.NoError(t, err)

	params := IVParams{Spot: 300000, Strike: 300000, TimeToExpiry: 30.0 / 365.0, RiskFreeRate: 0, OptionType: Call}
	result, err := ImpliedVolatility(book, params, PriceSource{Kind: MidPrice}, DefaultSolverConfig())
	require.NoError(t, err)
	require.InDelta(t, 0.5306, result.IV, 0.001)
	require.LessOrEqual(t, result.Iterations, 10)
	require.Equal(t, High, result.Quality)
	require.InDelta(t, 15000, result.PriceUsed, 1e-9)
}

func TestImpliedVolatility_IlliquidBookRejected(t *testing.T) {
	book := orderbook.NewOrderBook("TEST")
	_, err := book.SubmitLimit(orderbook.NewOrderID(), orderbook.Buy, 100, 10, orderbook.TIF{Kind: orderbook.GTC}, nil)
	require.NoError(t, err)
	_, err = book.SubmitLimit(orderbook.NewOrderID(), orderbook.Sell, 400, 10, orderbook.TIF{Kind: orderbook.GTC}, nil)
	require.NoError(t, err)

	params := IVParams{Spot: 250, Strike: 250, TimeToExpiry: 0.25, RiskFreeRate: 0.05, OptionType: Call}
	_, err = ImpliedVolatility(book, params, PriceSource{Kind: MidPrice}, DefaultSolverConfig())
	require.ErrorIs(t, err, ErrIlliquidReject)
}
