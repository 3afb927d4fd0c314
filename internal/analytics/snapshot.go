package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"lobengine/internal/orderbook"
)

// FormatVersion is the current snapshot wire format version (spec.md §6).
const FormatVersion uint32 = 1

// Errors surfaced while restoring a raw snapshot, named exactly as
// spec.md §6/§7 requires.
var (
	ErrCorruptSnapshot = errors.New("analytics: snapshot checksum mismatch")
	ErrVersionMismatch = errors.New("analytics: snapshot format_version mismatch")
)

// MetricFlag selects which optional metrics an EnrichedSnapshot computes,
// letting a caller skip expensive ones (spec.md §4.E), grounded on the
// MetricFlags bitmask named in original_source/src/orderbook/book.rs.
type MetricFlag uint32

const (
	MetricMidPrice MetricFlag = 1 << iota
	MetricSpreadBps
	MetricTotalDepth
	MetricVWAP
	MetricImbalance

	MetricAll = MetricMidPrice | MetricSpreadBps | MetricTotalDepth | MetricVWAP | MetricImbalance
)

func (f MetricFlag) has(m MetricFlag) bool { return f&m != 0 }

// EnrichedLevel is one price level as exposed in an enriched snapshot: just
// the aggregates, not the per-order breakdown (that belongs to RawSnapshot).
type EnrichedLevel struct {
	Price   uint64 `json:"price"`
	Visible uint64 `json:"visible"`
	Hidden  uint64 `json:"hidden,omitempty"`
}

// EnrichedSnapshot is the immutable record spec.md §4.E describes: top-N
// levels on each side plus a bitmask-selected subset of derived metrics.
type EnrichedSnapshot struct {
	FormatVersion uint32          `json:"format_version"`
	Symbol        string          `json:"symbol"`
	TimestampNs   int64           `json:"timestamp_ns"`
	Bids          []EnrichedLevel `json:"bids"`
	Asks          []EnrichedLevel `json:"asks"`

	MidPrice      *float64 `json:"mid_price,omitempty"`
	SpreadBps     *float64 `json:"spread_bps,omitempty"`
	TotalBidDepth *uint64  `json:"total_bid_depth,omitempty"`
	TotalAskDepth *uint64  `json:"total_ask_depth,omitempty"`
	BuyVWAP       *float64 `json:"buy_vwap,omitempty"`
	SellVWAP      *float64 `json:"sell_vwap,omitempty"`
	Imbalance     *float64 `json:"imbalance,omitempty"`
}

func toLevelViews(levels []LevelView) []EnrichedLevel {
	out := make([]EnrichedLevel, len(levels))
	for i, lvl := range levels {
		out[i] = EnrichedLevel{Price: lvl.Price, Visible: lvl.Visible, Hidden: lvl.Hidden}
	}
	return out
}

// BuildEnrichedSnapshot performs exactly one traversal per side (via
// topLevels) plus the metric helpers flags selects, assembling the result
// described in spec.md §4.E.
func BuildEnrichedSnapshot(book *orderbook.OrderBook, depth int, flags MetricFlag) EnrichedSnapshot {
	snap := EnrichedSnapshot{
		FormatVersion: FormatVersion,
		Symbol:        book.Symbol,
		TimestampNs:   time.Now().UnixNano(),
		Bids:          toLevelViews(topLevels(book.Bids, depth)),
		Asks:          toLevelViews(topLevels(book.Asks, depth)),
	}

	if flags.has(MetricMidPrice) {
		if v, ok := MidPrice(book); ok {
			snap.MidPrice = &v
		}
	}
	if flags.has(MetricSpreadBps) {
		if v, ok := SpreadBps(book); ok {
			snap.SpreadBps = &v
		}
	}
	if flags.has(MetricTotalDepth) {
		bidDepth := TotalDepthAtLevels(book, orderbook.Buy, depth)
		askDepth := TotalDepthAtLevels(book, orderbook.Sell, depth)
		snap.TotalBidDepth = &bidDepth
		snap.TotalAskDepth = &askDepth
	}
	if flags.has(MetricVWAP) {
		if v, ok := VWAP(book, orderbook.Buy, depth); ok {
			snap.BuyVWAP = &v
		}
		if v, ok := VWAP(book, orderbook.Sell, depth); ok {
			snap.SellVWAP = &v
		}
	}
	if flags.has(MetricImbalance) {
		if v, ok := OrderBookImbalance(book, depth); ok {
			snap.Imbalance = &v
		}
	}

	return snap
}

// RawOrder is one resting order as exposed in the raw (persistence)
// snapshot, matching spec.md §6's wire format exactly.
type RawOrder struct {
	ID      string `json:"id"`
	Visible uint64 `json:"visible"`
	Hidden  uint64 `json:"hidden,omitempty"`
	TIF     string `json:"tif"`
}

// RawLevel is one price level's full order breakdown.
type RawLevel struct {
	Price  uint64     `json:"price"`
	Orders []RawOrder `json:"orders"`
}

// rawSnapshotBody is the portion of the raw snapshot the checksum covers:
// every field spec.md §6 lists except checksum_sha256 itself, serialized
// with keys in the order listed.
type rawSnapshotBody struct {
	FormatVersion uint32     `json:"format_version"`
	Symbol        string     `json:"symbol"`
	TimestampNs   int64      `json:"timestamp_ns"`
	Bids          []RawLevel `json:"bids"`
	Asks          []RawLevel `json:"asks"`
}

// RawSnapshot is the persisted, checksummed snapshot of spec.md §6/§4.E.
type RawSnapshot struct {
	rawSnapshotBody
	ChecksumSHA256 string `json:"checksum_sha256"`
}

func levelOrders(lvl *orderbook.PriceLevel) []RawOrder {
	orders := lvl.Snapshot()
	out := make([]RawOrder, len(orders))
	for i, o := range orders {
		out[i] = RawOrder{ID: o.ID.String(), Visible: o.VisibleRemaining, Hidden: o.HiddenReserve, TIF: o.TIF.String()}
		if !o.IsIceberg() {
			out[i].Visible = o.QuantityRemain
			out[i].Hidden = 0
		}
	}
	return out
}

func rawLevels(side *orderbook.BookSide, depth int) []RawLevel {
	var out []RawLevel
	n := 0
	side.IterateFromBest(func(price uint64, lvl *orderbook.PriceLevel) bool {
		if n >= depth {
			return false
		}
		out = append(out, RawLevel{Price: price, Orders: levelOrders(lvl)})
		n++
		return true
	})
	return out
}

// BuildRawSnapshot implements spec.md §4.E's raw/persistence snapshot:
// top-N levels on each side plus a SHA-256 content checksum.
func BuildRawSnapshot(book *orderbook.OrderBook, depth int) (RawSnapshot, error) {
	body := rawSnapshotBody{
		FormatVersion: FormatVersion,
		Symbol:        book.Symbol,
		TimestampNs:   time.Now().UnixNano(),
		Bids:          rawLevels(book.Bids, depth),
		Asks:          rawLevels(book.Asks, depth),
	}

	sum, err := checksumBody(body)
	if err != nil {
		return RawSnapshot{}, err
	}
	return RawSnapshot{rawSnapshotBody: body, ChecksumSHA256: sum}, nil
}

func checksumBody(body rawSnapshotBody) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", errors.Wrap(err, "analytics: marshal snapshot body")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Validate verifies the format version and recomputes the checksum, per
// spec.md §7: a mismatch on either aborts the restore without touching any
// live book.
func (s RawSnapshot) Validate() error {
	if s.FormatVersion != FormatVersion {
		return errors.Wrapf(ErrVersionMismatch, "got %d want %d", s.FormatVersion, FormatVersion)
	}
	sum, err := checksumBody(s.rawSnapshotBody)
	if err != nil {
		return err
	}
	if sum != s.ChecksumSHA256 {
		return ErrCorruptSnapshot
	}
	return nil
}

// ToJSON serializes the raw snapshot to its canonical wire bytes.
func (s RawSnapshot) ToJSON() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "analytics: marshal snapshot")
	}
	return data, nil
}

// RawSnapshotFromJSON parses and validates a raw snapshot from its
// canonical wire bytes.
func RawSnapshotFromJSON(data []byte) (RawSnapshot, error) {
	var s RawSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return RawSnapshot{}, errors.Wrap(err, "analytics: unmarshal snapshot")
	}
	if err := s.Validate(); err != nil {
		return RawSnapshot{}, err
	}
	return s, nil
}
