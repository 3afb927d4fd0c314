package grpcapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"lobengine/internal/ivsolver"
	"lobengine/internal/orderbook"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	book := orderbook.NewOrderBook("BTC-USD")
	return NewServer(book, ivsolver.DefaultSolverConfig())
}

func TestServer_SubmitLimitThenCancel(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	id := orderbook.NewOrderID()

	resp, err := s.Submit(ctx, structOf(map[string]any{
		"kind":     "limit",
		"order_id": id.String(),
		"side":     "buy",
		"price":    float64(100),
		"qty":      float64(10),
	}))
	require.NoError(t, err)
	require.Equal(t, float64(0), resp.Fields["filled_quantity"].GetNumberValue())
	require.Equal(t, float64(10), resp.Fields["unfilled_quantity"].GetNumberValue())

	_, err = s.Cancel(ctx, structOf(map[string]any{"order_id": id.String()}))
	require.NoError(t, err)

	_, err = s.Cancel(ctx, structOf(map[string]any{"order_id": id.String()}))
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.NotFound, st.Code())
}

func TestServer_SubmitCrossingOrdersProducesFill(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.Submit(ctx, structOf(map[string]any{
		"kind": "limit", "order_id": orderbook.NewOrderID().String(),
		"side": "sell", "price": float64(100), "qty": float64(10),
	}))
	require.NoError(t, err)

	resp, err := s.Submit(ctx, structOf(map[string]any{
		"kind": "market", "order_id": orderbook.NewOrderID().String(),
		"side": "buy", "qty": float64(10),
	}))
	require.NoError(t, err)
	require.Equal(t, float64(10), resp.Fields["filled_quantity"].GetNumberValue())
	require.Equal(t, float64(1), resp.Fields["trade_count"].GetNumberValue())
}

func TestServer_QueryReportsBestBidAsk(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.Submit(ctx, structOf(map[string]any{
		"kind": "limit", "order_id": orderbook.NewOrderID().String(),
		"side": "buy", "price": float64(99), "qty": float64(5),
	}))
	require.NoError(t, err)

	resp, err := s.Query(ctx, structOf(map[string]any{}))
	require.NoError(t, err)
	require.Equal(t, float64(99), resp.Fields["best_bid"].GetNumberValue())
	require.Equal(t, float64(1), resp.Fields["bid_level_count"].GetNumberValue())
}

func TestServer_SnapshotReturnsEnrichedFields(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.Submit(ctx, structOf(map[string]any{
		"kind": "limit", "order_id": orderbook.NewOrderID().String(),
		"side": "buy", "price": float64(100), "qty": float64(5),
	}))
	require.NoError(t, err)
	_, err = s.Submit(ctx, structOf(map[string]any{
		"kind": "limit", "order_id": orderbook.NewOrderID().String(),
		"side": "sell", "price": float64(102), "qty": float64(5),
	}))
	require.NoError(t, err)

	resp, err := s.Snapshot(ctx, structOf(map[string]any{"enriched": true, "depth": float64(5)}))
	require.NoError(t, err)
	require.Contains(t, resp.Fields, "mid_price")
}

func TestServer_SubmitRejectsUnknownKind(t *testing.T) {
	s := newTestServer(t)
	_, err := s.Submit(context.Background(), structOf(map[string]any{
		"kind": "bogus", "order_id": orderbook.NewOrderID().String(), "side": "buy",
	}))
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.InvalidArgument, st.Code())
}

func TestServer_ImpliedVolatilityRejectsMissingFields(t *testing.T) {
	s := newTestServer(t)
	_, err := s.ImpliedVolatility(context.Background(), structOf(map[string]any{}))
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.InvalidArgument, st.Code())
}

func TestServer_ImplementsOrderBookServer(t *testing.T) {
	var _ OrderBookServer = newTestServer(t)
}
