package service

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"lobengine/internal/orderbook"
	"lobengine/internal/walstore"
)

func tempWALDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "engine-wal-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func TestEngine_SubmitAndCancelAppendToWAL(t *testing.T) {
	dir := tempWALDir(t)
	w, err := walstore.Open(walstore.Config{Dir: dir})
	require.NoError(t, err)
	defer w.Close()

	book := orderbook.NewOrderBook("BTC-USD")
	engine := NewEngine(book, w)

	id := orderbook.NewOrderID()
	_, err = engine.SubmitLimit(id, orderbook.Buy, 100, 10, orderbook.TIF{Kind: orderbook.GTC}, nil)
	require.NoError(t, err)
	require.NoError(t, engine.Cancel(id))
	require.NoError(t, w.Sync())
}

func TestEngine_ReplayFromWALRebuildsBookState(t *testing.T) {
	dir := tempWALDir(t)

	func() {
		w, err := walstore.Open(walstore.Config{Dir: dir})
		require.NoError(t, err)
		defer w.Close()

		book := orderbook.NewOrderBook("BTC-USD")
		engine := NewEngine(book, w)

		require.NoError(t, func() error {
			_, err := engine.SubmitLimit(orderbook.NewOrderID(), orderbook.Buy, 99, 5, orderbook.TIF{Kind: orderbook.GTC}, nil)
			return err
		}())
		cancelled := orderbook.NewOrderID()
		_, err = engine.SubmitLimit(cancelled, orderbook.Buy, 98, 3, orderbook.TIF{Kind: orderbook.GTC}, nil)
		require.NoError(t, err)
		require.NoError(t, engine.Cancel(cancelled))
		require.NoError(t, w.Sync())
	}()

	replayed := orderbook.NewOrderBook("BTC-USD")
	require.NoError(t, ReplayFromWAL(dir, replayed))

	bid, ok := replayed.BestBid()
	require.True(t, ok)
	require.Equal(t, uint64(99), bid)
	require.Equal(t, 1, replayed.LevelCount(orderbook.Buy))
}
