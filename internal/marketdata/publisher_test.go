package marketdata

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"lobengine/internal/analytics"
	"lobengine/internal/orderbook"
)

type fakeSender struct {
	sent [][]byte
}

func (f *fakeSender) Send(ctx context.Context, key, value []byte) error {
	f.sent = append(f.sent, value)
	return nil
}

func TestPublisher_PublishOnceSendsEnrichedSnapshot(t *testing.T) {
	book := orderbook.NewOrderBook("ETH-USD")
	_, err := book.SubmitLimit(orderbook.NewOrderID(), orderbook.Buy, 100, 10, orderbook.TIF{Kind: orderbook.GTC}, nil)
	require.NoError(t, err)
	_, err = book.SubmitLimit(orderbook.NewOrderID(), orderbook.Sell, 101, 10, orderbook.TIF{Kind: orderbook.GTC}, nil)
	require.NoError(t, err)

	fake := &fakeSender{}
	p := newPublisherWithSender(fake, book, 10, analytics.MetricAll, 0)

	require.NoError(t, p.publishOnce(context.Background()))
	require.Len(t, fake.sent, 1)

	var snap analytics.EnrichedSnapshot
	require.NoError(t, json.Unmarshal(fake.sent[0], &snap))
	require.Equal(t, "ETH-USD", snap.Symbol)
	require.NotNil(t, snap.MidPrice)
	require.InDelta(t, 100.5, *snap.MidPrice, 1e-9)
}
