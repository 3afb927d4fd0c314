// Package service is the single durable write entry point into the
// matching engine, grounded on UmarFarooq-MP-Loki/service/order_service.go's
// OrderService — "the ONLY write entry point into the system", coordinating
// the domain order book with the WAL. Every submission and cancellation is
// framed to the WAL before being applied to the book, so a crash between
// the two leaves a replayable record rather than a silently lost submission.
package service

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"lobengine/internal/orderbook"
	"lobengine/internal/walstore"
)

// Engine wraps an *orderbook.OrderBook with WAL durability. Only the
// submission/cancellation methods are shadowed below to add a WAL append
// ahead of the domain call; every other method (BestBid, BestAsk,
// LevelCount, HasOrder, OnTrade, LastTrade, and the state-changing
// PurgeExpired and AdvanceEpoch) is promoted unchanged from the embedded
// book and writes no WAL record.
type Engine struct {
	*orderbook.OrderBook
	wal *walstore.WAL
}

// NewEngine wires book to w. w may be nil, in which case Engine behaves
// exactly like the bare book with no durability — useful for tests that
// don't need a WAL directory.
func NewEngine(book *orderbook.OrderBook, w *walstore.WAL) *Engine {
	return &Engine{OrderBook: book, wal: w}
}

type submitKind string

const (
	submitLimitKind   submitKind = "limit"
	submitMarketKind  submitKind = "market"
	submitIcebergKind submitKind = "iceberg"
)

type submitPayload struct {
	Kind           submitKind      `json:"kind"`
	OrderID        string          `json:"order_id"`
	Side           orderbook.Side  `json:"side"`
	Price          uint64          `json:"price,omitempty"`
	Qty            uint64          `json:"qty"`
	TotalQty       uint64          `json:"total_qty,omitempty"`
	VisibleQty     uint64          `json:"visible_qty,omitempty"`
	TIFKind        orderbook.TIFKind `json:"tif_kind"`
	TIFExpiresUnix int64           `json:"tif_expires_unix_ns,omitempty"`
}

func (e *Engine) appendSubmit(p submitPayload) error {
	if e.wal == nil {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = e.wal.Append(&walstore.Record{Kind: walstore.RecordSubmit, Data: data})
	return err
}

// SubmitLimit frames the submission to the WAL, then applies it to the
// underlying book.
func (e *Engine) SubmitLimit(id orderbook.OrderID, side orderbook.Side, price, qty uint64, tif orderbook.TIF, extra any) (orderbook.MatchReport, error) {
	if err := e.appendSubmit(submitPayload{
		Kind: submitLimitKind, OrderID: id.String(), Side: side, Price: price, Qty: qty,
		TIFKind: tif.Kind, TIFExpiresUnix: unixNanoOrZero(tif),
	}); err != nil {
		return orderbook.MatchReport{}, errors.Wrap(err, "service: WAL append failed")
	}
	return e.OrderBook.SubmitLimit(id, side, price, qty, tif, extra)
}

// SubmitMarket frames the submission to the WAL, then applies it.
func (e *Engine) SubmitMarket(id orderbook.OrderID, side orderbook.Side, qty uint64, extra any) (orderbook.MatchReport, error) {
	if err := e.appendSubmit(submitPayload{Kind: submitMarketKind, OrderID: id.String(), Side: side, Qty: qty}); err != nil {
		return orderbook.MatchReport{}, errors.Wrap(err, "service: WAL append failed")
	}
	return e.OrderBook.SubmitMarket(id, side, qty, extra)
}

// SubmitIceberg frames the submission to the WAL, then applies it.
func (e *Engine) SubmitIceberg(id orderbook.OrderID, side orderbook.Side, price, totalQty, visibleQty uint64, tif orderbook.TIF, extra any) (orderbook.MatchReport, error) {
	if err := e.appendSubmit(submitPayload{
		Kind: submitIcebergKind, OrderID: id.String(), Side: side, Price: price,
		TotalQty: totalQty, VisibleQty: visibleQty, TIFKind: tif.Kind, TIFExpiresUnix: unixNanoOrZero(tif),
	}); err != nil {
		return orderbook.MatchReport{}, errors.Wrap(err, "service: WAL append failed")
	}
	return e.OrderBook.SubmitIceberg(id, side, price, totalQty, visibleQty, tif, extra)
}

type cancelPayload struct {
	All     bool           `json:"all"`
	OrderID string         `json:"order_id,omitempty"`
	Side    orderbook.Side `json:"side,omitempty"`
	HasSide bool           `json:"has_side,omitempty"`
}

func (e *Engine) appendCancel(p cancelPayload) error {
	if e.wal == nil {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = e.wal.Append(&walstore.Record{Kind: walstore.RecordCancel, Data: data})
	return err
}

// Cancel frames the cancellation to the WAL, then applies it.
func (e *Engine) Cancel(id orderbook.OrderID) error {
	if err := e.appendCancel(cancelPayload{OrderID: id.String()}); err != nil {
		return errors.Wrap(err, "service: WAL append failed")
	}
	return e.OrderBook.Cancel(id)
}

// CancelAll frames the bulk cancellation to the WAL, then applies it.
func (e *Engine) CancelAll(side *orderbook.Side) int {
	p := cancelPayload{All: true}
	if side != nil {
		p.Side, p.HasSide = *side, true
	}
	_ = e.appendCancel(p)
	return e.OrderBook.CancelAll(side)
}

func unixNanoOrZero(tif orderbook.TIF) int64 {
	if tif.Kind != orderbook.GTD {
		return 0
	}
	return tif.ExpiresAt.UnixNano()
}

// ReplayFromWAL rebuilds book's state from every record in dir, in the
// order they were originally appended. It is meant to run once at
// startup, before the engine is wired to any transport, matching the
// teacher's service/replay.go ReplayFromWAL step in cmd/server/main.go.
func ReplayFromWAL(dir string, book *orderbook.OrderBook) error {
	return walstore.ReplayAll(dir, func(rec *walstore.Record) error {
		switch rec.Kind {
		case walstore.RecordSubmit:
			return replaySubmit(book, rec)
		case walstore.RecordCancel:
			return replayCancel(book, rec)
		default:
			return nil
		}
	})
}

func replaySubmit(book *orderbook.OrderBook, rec *walstore.Record) error {
	var p submitPayload
	if err := json.Unmarshal(rec.Data, &p); err != nil {
		return err
	}
	id, err := parseOrderID(p.OrderID)
	if err != nil {
		return err
	}
	tif := orderbook.TIF{Kind: p.TIFKind}
	if p.TIFKind == orderbook.GTD {
		tif.ExpiresAt = time.Unix(0, p.TIFExpiresUnix)
	}

	var submitErr error
	switch p.Kind {
	case submitLimitKind:
		_, submitErr = book.SubmitLimit(id, p.Side, p.Price, p.Qty, tif, nil)
	case submitMarketKind:
		_, submitErr = book.SubmitMarket(id, p.Side, p.Qty, nil)
	case submitIcebergKind:
		_, submitErr = book.SubmitIceberg(id, p.Side, p.Price, p.TotalQty, p.VisibleQty, tif, nil)
	}
	// A record whose order already expired (GTD) or whose id collides
	// with a later record replayed out of order is not a replay
	// failure — the book's own validation already enforced the
	// invariant the first time this record was applied live.
	if errors.Is(submitErr, orderbook.ErrExpired) || errors.Is(submitErr, orderbook.ErrDuplicateID) {
		return nil
	}
	return submitErr
}

func replayCancel(book *orderbook.OrderBook, rec *walstore.Record) error {
	var p cancelPayload
	if err := json.Unmarshal(rec.Data, &p); err != nil {
		return err
	}
	if p.All {
		var side *orderbook.Side
		if p.HasSide {
			side = &p.Side
		}
		book.CancelAll(side)
		return nil
	}
	id, err := parseOrderID(p.OrderID)
	if err != nil {
		return err
	}
	if err := book.Cancel(id); err != nil && !errors.Is(err, orderbook.ErrNotFound) {
		return err
	}
	return nil
}

func parseOrderID(s string) (orderbook.OrderID, error) {
	return uuid.Parse(s)
}
