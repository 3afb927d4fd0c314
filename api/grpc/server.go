package grpcapi

import (
	"context"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"lobengine/internal/analytics"
	"lobengine/internal/ivsolver"
	"lobengine/internal/orderbook"
	"lobengine/internal/service"
)

// bookWriter is the mutating subset of *orderbook.OrderBook's API that
// Submit/Cancel/CancelAll dispatch through. It is satisfied both by a bare
// *orderbook.OrderBook (no durability, used by tests and by
// NewServer) and by *service.Engine (WAL-durable, used by cmd/server via
// NewServerWithEngine).
type bookWriter interface {
	SubmitLimit(id orderbook.OrderID, side orderbook.Side, price, qty uint64, tif orderbook.TIF, extra any) (orderbook.MatchReport, error)
	SubmitMarket(id orderbook.OrderID, side orderbook.Side, qty uint64, extra any) (orderbook.MatchReport, error)
	SubmitIceberg(id orderbook.OrderID, side orderbook.Side, price, totalQty, visibleQty uint64, tif orderbook.TIF, extra any) (orderbook.MatchReport, error)
	Cancel(id orderbook.OrderID) error
	CancelAll(side *orderbook.Side) int
}

// Server adapts an OrderBook (plus an ivsolver configuration) to gRPC,
// transport framing only — no matching logic lives here. Grounded on the
// teacher's api/grpcserver/server.go Server{svc}/NewServer shape, widened
// from the teacher's PlaceOrder/CancelOrder/GetSnapshot trio to spec.md
// §6's full Submission/Query/IV surface.
type Server struct {
	book   *orderbook.OrderBook
	writer bookWriter
	ivCfg  ivsolver.SolverConfig
}

// NewServer constructs a Server over book with no WAL durability behind
// its mutating RPCs, using cfg for every ImpliedVolatility RPC it serves.
func NewServer(book *orderbook.OrderBook, cfg ivsolver.SolverConfig) *Server {
	return &Server{book: book, writer: book, ivCfg: cfg}
}

// NewServerWithEngine constructs a Server whose mutating RPCs are framed
// to engine's WAL before being applied, reading back through engine's
// embedded order book for Query/Snapshot/ImpliedVolatility.
func NewServerWithEngine(engine *service.Engine, cfg ivsolver.SolverConfig) *Server {
	return &Server{book: engine.OrderBook, writer: engine, ivCfg: cfg}
}

// Submit implements spec.md §6's submit_limit/submit_market/submit_iceberg,
// dispatched on req's "kind" field ("limit"|"market"|"iceberg").
func (s *Server) Submit(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	idStr, err := getString(req, "order_id")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	id, err := parseOrderID(idStr)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	sideStr, err := getString(req, "side")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	side, err := parseSide(sideStr)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var report orderbook.MatchReport
	switch kind := getOptionalString(req, "kind", "limit"); kind {
	case "limit":
		price, perr := getUint64(req, "price")
		qty, qerr := getUint64(req, "qty")
		if perr != nil || qerr != nil {
			return nil, status.Error(codes.InvalidArgument, "limit requires price and qty")
		}
		tif, terr := parseTIFFromStruct(req)
		if terr != nil {
			return nil, status.Error(codes.InvalidArgument, terr.Error())
		}
		report, err = s.writer.SubmitLimit(id, side, price, qty, tif, nil)
	case "market":
		qty, qerr := getUint64(req, "qty")
		if qerr != nil {
			return nil, status.Error(codes.InvalidArgument, "market requires qty")
		}
		report, err = s.writer.SubmitMarket(id, side, qty, nil)
	case "iceberg":
		price, perr := getUint64(req, "price")
		total, terr2 := getUint64(req, "total_qty")
		visible, verr := getUint64(req, "visible_qty")
		if perr != nil || terr2 != nil || verr != nil {
			return nil, status.Error(codes.InvalidArgument, "iceberg requires price, total_qty, visible_qty")
		}
		tif, terr := parseTIFFromStruct(req)
		if terr != nil {
			return nil, status.Error(codes.InvalidArgument, terr.Error())
		}
		report, err = s.writer.SubmitIceberg(id, side, price, total, visible, tif, nil)
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown submit kind %q", kind)
	}
	if err != nil {
		return nil, toGRPCError(err)
	}

	resp := map[string]any{
		"filled_quantity":   float64(report.FilledQuantity),
		"unfilled_quantity": float64(report.UnfilledQuantity),
		"average_price":     report.AveragePrice,
		"trade_count":       float64(len(report.Trades)),
	}
	if report.RestingOrderID != nil {
		resp["resting_order_id"] = report.RestingOrderID.String()
	}
	return structOf(resp), nil
}

func parseTIFFromStruct(req *structpb.Struct) (orderbook.TIF, error) {
	kind := getOptionalString(req, "tif", "GTC")
	var expiresAtNs int64
	if v, ok := req.Fields["tif_expires_at_unix_ns"]; ok {
		expiresAtNs = int64(v.GetNumberValue())
	}
	return parseTIF(kind, expiresAtNs)
}

// Cancel implements spec.md §6's cancel(order_id).
func (s *Server) Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	idStr, err := getString(req, "order_id")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	id, err := parseOrderID(idStr)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.writer.Cancel(id); err != nil {
		return nil, toGRPCError(err)
	}
	return structOf(map[string]any{"status": "ok"}), nil
}

// CancelAll implements spec.md §6's cancel_all(side?).
func (s *Server) CancelAll(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var sidePtr *orderbook.Side
	if sideStr := getOptionalString(req, "side", ""); sideStr != "" {
		side, err := parseSide(sideStr)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		sidePtr = &side
	}
	n := s.writer.CancelAll(sidePtr)
	return structOf(map[string]any{"cancelled": float64(n)}), nil
}

// Snapshot implements spec.md §6's snapshot wire format, returning the raw
// checksummed snapshot when req.enriched is false/absent, or the enriched
// metrics snapshot of spec.md §4.E when true.
func (s *Server) Snapshot(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	depth := 20
	if v, ok := req.Fields["depth"]; ok {
		depth = int(v.GetNumberValue())
	}

	if enriched, ok := req.Fields["enriched"]; ok && enriched.GetBoolValue() {
		snap := analytics.BuildEnrichedSnapshot(s.book, depth, analytics.MetricAll)
		return jsonToStruct(snap)
	}

	raw, err := analytics.BuildRawSnapshot(s.book, depth)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return jsonToStruct(raw)
}

// Query implements spec.md §6's best_bid/best_ask/has_order/level_count.
func (s *Server) Query(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	resp := map[string]any{}
	if bid, ok := s.book.BestBid(); ok {
		resp["best_bid"] = float64(bid)
	}
	if ask, ok := s.book.BestAsk(); ok {
		resp["best_ask"] = float64(ask)
	}
	resp["bid_level_count"] = float64(s.book.LevelCount(orderbook.Buy))
	resp["ask_level_count"] = float64(s.book.LevelCount(orderbook.Sell))

	if idStr := getOptionalString(req, "order_id", ""); idStr != "" {
		id, err := parseOrderID(idStr)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		resp["has_order"] = s.book.HasOrder(id)
	}
	return structOf(resp), nil
}

// ImpliedVolatility implements spec.md §6's IV API.
func (s *Server) ImpliedVolatility(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	spot, err1 := getFloat64(req, "spot")
	strike, err2 := getFloat64(req, "strike")
	t, err3 := getFloat64(req, "time_to_expiry_years")
	rate, err4 := getFloat64(req, "risk_free_rate")
	if err := firstErr(err1, err2, err3, err4); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	optType := ivsolver.Call
	if getOptionalString(req, "option_type", "Call") == "Put" {
		optType = ivsolver.Put
	}
	params := ivsolver.IVParams{Spot: spot, Strike: strike, TimeToExpiry: t, RiskFreeRate: rate, OptionType: optType}

	source := ivsolver.PriceSource{}
	switch getOptionalString(req, "price_source", "mid_price") {
	case "weighted_mid":
		source.Kind = ivsolver.WeightedMid
	case "last_trade":
		source.Kind = ivsolver.LastTrade
	default:
		source.Kind = ivsolver.MidPrice
	}

	result, err := ivsolver.ImpliedVolatility(s.book, params, source, s.ivCfg)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return structOf(map[string]any{
		"iv":         result.IV,
		"price_used": result.PriceUsed,
		"spread_bps": result.SpreadBps,
		"iterations": float64(result.Iterations),
		"quality":    result.Quality.String(),
	}), nil
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// toGRPCError maps a domain sentinel error to the gRPC status code
// spec.md §7's validation/not-found/conflict/internal grouping implies.
func toGRPCError(err error) error {
	switch {
	case errors.Is(err, orderbook.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, orderbook.ErrDuplicateID):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, orderbook.ErrZeroQuantity),
		errors.Is(err, orderbook.ErrInvalidIceberg),
		errors.Is(err, orderbook.ErrFokUnfillable),
		errors.Is(err, orderbook.ErrExpired):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, analytics.ErrCorruptSnapshot),
		errors.Is(err, analytics.ErrVersionMismatch):
		return status.Error(codes.DataLoss, err.Error())
	case errors.Is(err, ivsolver.ErrPriceOutOfArbitrageBounds),
		errors.Is(err, ivsolver.ErrIlliquidReject),
		errors.Is(err, ivsolver.ErrNonConvergent),
		errors.Is(err, ivsolver.ErrInvalidParams),
		errors.Is(err, ivsolver.ErrTimeToExpiryTooSmall),
		errors.Is(err, ivsolver.ErrNoPriceAvailable):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
