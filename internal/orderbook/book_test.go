package orderbook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestBook() *OrderBook {
	return NewOrderBook("TEST")
}

func timeInPast() time.Time {
	return time.Now().Add(-time.Hour)
}

// Scenario 1 (spec.md §8.1): resting limit crossed by a smaller IOC.
func TestScenario1_LimitThenIOCPartial(t *testing.T) {
	book := newTestBook()

	id1, id2 := NewOrderID(), NewOrderID()
	_, err := book.SubmitLimit(id1, Buy, 100, 10, TIF{Kind: GTC}, nil)
	require.NoError(t, err)

	report, err := book.SubmitLimit(id2, Sell, 100, 4, TIF{Kind: IOC}, nil)
	require.NoError(t, err)

	require.Len(t, report.Trades, 1)
	trade := report.Trades[0]
	require.Equal(t, id1, trade.MakerOrderID)
	require.Equal(t, id2, trade.TakerOrderID)
	require.EqualValues(t, 100, trade.Price)
	require.EqualValues(t, 4, trade.Quantity)

	require.True(t, book.HasOrder(id1))
	require.False(t, book.HasOrder(id2))

	lvl := book.Bids.LevelAt(100)
	require.NotNil(t, lvl)
	require.EqualValues(t, 6, lvl.TotalVisible())

	bid, ok := book.BestBid()
	require.True(t, ok)
	require.EqualValues(t, 100, bid)
	_, ok = book.BestAsk()
	require.False(t, ok)
}

// Scenario 2 (spec.md §8.2): a market sell walks two resting buys FIFO.
func TestScenario2_MarketSellWalksTwoOrdersFIFO(t *testing.T) {
	book := newTestBook()

	idA, idB, idC := NewOrderID(), NewOrderID(), NewOrderID()
	_, err := book.SubmitLimit(idA, Buy, 50, 10, TIF{Kind: GTC}, nil)
	require.NoError(t, err)
	_, err = book.SubmitLimit(idB, Buy, 50, 10, TIF{Kind: GTC}, nil)
	require.NoError(t, err)

	report, err := book.SubmitMarket(idC, Sell, 15, nil)
	require.NoError(t, err)

	require.Len(t, report.Trades, 2)
	require.Equal(t, idA, report.Trades[0].MakerOrderID)
	require.EqualValues(t, 10, report.Trades[0].Quantity)
	require.Equal(t, idB, report.Trades[1].MakerOrderID)
	require.EqualValues(t, 5, report.Trades[1].Quantity)

	require.False(t, book.HasOrder(idA))
	require.True(t, book.HasOrder(idB))

	lvl := book.Bids.LevelAt(50)
	require.NotNil(t, lvl)
	require.EqualValues(t, 5, lvl.TotalVisible())
}

// Scenario 3 (spec.md §8.3): iceberg reshuffle under repeated IOC fills.
func TestScenario3_IcebergReshuffle(t *testing.T) {
	book := newTestBook()

	idI, idSell := NewOrderID(), NewOrderID()
	_, err := book.SubmitIceberg(idI, Buy, 100, 100, 10, TIF{Kind: GTC}, nil)
	require.NoError(t, err)

	report, err := book.SubmitLimit(idSell, Sell, 100, 25, TIF{Kind: IOC}, nil)
	require.NoError(t, err)

	require.Len(t, report.Trades, 3)
	require.EqualValues(t, []uint64{10, 10, 5}, []uint64{
		report.Trades[0].Quantity, report.Trades[1].Quantity, report.Trades[2].Quantity,
	})
	for _, tr := range report.Trades {
		require.EqualValues(t, 100, tr.Price)
	}

	require.True(t, book.HasOrder(idI))
	lvl := book.Bids.LevelAt(100)
	require.EqualValues(t, 1, lvl.Count())
	require.EqualValues(t, 5, lvl.TotalVisible())
	require.EqualValues(t, 70, lvl.TotalHidden())
}

// An iceberg submitted at a crossing price fills aggressively as a taker
// before any of it ever rests. The visible/hidden split it rests with must
// be reconciled against what actually remains, not the original
// submission, or the level advertises phantom depth (spec.md §3:
// visible_remaining + hidden_reserve == quantity_remaining).
func TestSubmit_AggressiveIcebergRestsWithReconciledSplit(t *testing.T) {
	book := newTestBook()

	idMaker, idI := NewOrderID(), NewOrderID()
	_, err := book.SubmitLimit(idMaker, Sell, 100, 30, TIF{Kind: GTC}, nil)
	require.NoError(t, err)

	report, err := book.SubmitIceberg(idI, Buy, 100, 100, 10, TIF{Kind: GTC}, nil)
	require.NoError(t, err)

	require.Len(t, report.Trades, 1)
	require.EqualValues(t, 30, report.Trades[0].Quantity)
	require.EqualValues(t, 30, report.FilledQuantity)
	require.EqualValues(t, 70, report.UnfilledQuantity)

	require.True(t, book.HasOrder(idI))
	lvl := book.Bids.LevelAt(100)
	require.NotNil(t, lvl)
	require.EqualValues(t, 1, lvl.Count())
	require.EqualValues(t, 10, lvl.TotalVisible())
	require.EqualValues(t, 60, lvl.TotalHidden())
	require.EqualValues(t, 70, lvl.TotalVisible()+lvl.TotalHidden())

	// Draining the reconciled residual entirely must account for exactly
	// 70 units with no wraparound past zero.
	drainReport, err := book.SubmitMarket(NewOrderID(), Sell, 70, nil)
	require.NoError(t, err)
	var drained uint64
	for _, tr := range drainReport.Trades {
		drained += tr.Quantity
	}
	require.EqualValues(t, 70, drained)
	require.False(t, book.HasOrder(idI))
}

// Scenario 4 (spec.md §8.4): FOK fails and leaves the book untouched.
func TestScenario4_FOKUnfillable(t *testing.T) {
	book := newTestBook()

	id1, id2 := NewOrderID(), NewOrderID()
	_, err := book.SubmitLimit(id1, Sell, 101, 3, TIF{Kind: GTC}, nil)
	require.NoError(t, err)
	_, err = book.SubmitLimit(id2, Sell, 102, 2, TIF{Kind: GTC}, nil)
	require.NoError(t, err)

	idBuy := NewOrderID()
	_, err = book.SubmitLimit(idBuy, Buy, 101, 4, TIF{Kind: FOK}, nil)
	require.ErrorIs(t, err, ErrFokUnfillable)

	require.True(t, book.HasOrder(id1))
	require.True(t, book.HasOrder(id2))
	require.False(t, book.HasOrder(idBuy))
	require.EqualValues(t, 3, book.Asks.LevelAt(101).TotalVisible())
}

func TestSubmit_DuplicateID(t *testing.T) {
	book := newTestBook()
	id := NewOrderID()
	_, err := book.SubmitLimit(id, Buy, 100, 1, TIF{Kind: GTC}, nil)
	require.NoError(t, err)
	_, err = book.SubmitLimit(id, Buy, 100, 1, TIF{Kind: GTC}, nil)
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestSubmit_ZeroQuantity(t *testing.T) {
	book := newTestBook()
	_, err := book.SubmitLimit(NewOrderID(), Buy, 100, 0, TIF{Kind: GTC}, nil)
	require.ErrorIs(t, err, ErrZeroQuantity)
}

func TestSubmit_InvalidIceberg(t *testing.T) {
	book := newTestBook()
	_, err := book.SubmitIceberg(NewOrderID(), Buy, 100, 10, 20, TIF{Kind: GTC}, nil)
	require.ErrorIs(t, err, ErrInvalidIceberg)
}

func TestCancel_Idempotent(t *testing.T) {
	book := newTestBook()
	id := NewOrderID()
	_, err := book.SubmitLimit(id, Buy, 100, 5, TIF{Kind: GTC}, nil)
	require.NoError(t, err)

	require.NoError(t, book.Cancel(id))
	require.ErrorIs(t, book.Cancel(id), ErrNotFound)
	require.ErrorIs(t, book.Cancel(NewOrderID()), ErrNotFound)
}

// R2 (spec.md §8): cancel(submit_limit(...)) is a no-op on observable state.
func TestRoundTrip_CancelSubmitIsNoOp(t *testing.T) {
	book := newTestBook()
	_, beforeOK := book.BestBid()
	require.False(t, beforeOK)

	id := NewOrderID()
	_, err := book.SubmitLimit(id, Buy, 100, 5, TIF{Kind: GTC}, nil)
	require.NoError(t, err)
	require.NoError(t, book.Cancel(id))

	_, afterOK := book.BestBid()
	require.False(t, afterOK)
	require.Equal(t, 0, book.LevelCount(Buy))
}

func TestCancelAll(t *testing.T) {
	book := newTestBook()
	for i := 0; i < 3; i++ {
		_, err := book.SubmitLimit(NewOrderID(), Buy, uint64(100+i), 1, TIF{Kind: GTC}, nil)
		require.NoError(t, err)
	}
	_, err := book.SubmitLimit(NewOrderID(), Sell, 200, 1, TIF{Kind: GTC}, nil)
	require.NoError(t, err)

	n := book.CancelAll(&[]Side{Buy}[0])
	require.Equal(t, 3, n)
	require.Equal(t, 0, book.LevelCount(Buy))
	require.Equal(t, 1, book.LevelCount(Sell))
}

func TestTradeListener_Invoked(t *testing.T) {
	book := newTestBook()
	var trades []Trade
	unsub := book.OnTrade(func(tr Trade) { trades = append(trades, tr) })
	defer unsub()

	_, err := book.SubmitLimit(NewOrderID(), Buy, 100, 5, TIF{Kind: GTC}, nil)
	require.NoError(t, err)
	_, err = book.SubmitLimit(NewOrderID(), Sell, 100, 5, TIF{Kind: IOC}, nil)
	require.NoError(t, err)

	require.Len(t, trades, 1)
	price, at, ok := book.LastTrade()
	require.True(t, ok)
	require.EqualValues(t, 100, price)
	require.False(t, at.IsZero())
}

func TestGTDExpiry_PurgedLazily(t *testing.T) {
	book := newTestBook()
	id := NewOrderID()
	_, err := book.SubmitLimit(id, Buy, 100, 5, TIF{Kind: GTD, ExpiresAt: timeInPast()}, nil)
	require.NoError(t, err)
	require.True(t, book.HasOrder(id))

	n := book.PurgeExpired(Buy)
	require.Equal(t, 1, n)
	require.False(t, book.HasOrder(id))
}
