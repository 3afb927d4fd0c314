package grpcapi

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"lobengine/internal/orderbook"
)

// No .proto/generated message types exist anywhere in the retrieved
// pack for the teacher's own pb "loki/api/pb" import, so this transport
// carries google.golang.org/protobuf/types/known/structpb.Struct as its
// wire message instead of fabricating generated stand-ins. Every
// exported RPC field name below mirrors spec.md §6's own parameter
// names.

var errMissingField = errors.New("grpcapi: missing required field")

func getString(s *structpb.Struct, key string) (string, error) {
	v, ok := s.Fields[key]
	if !ok {
		return "", errors.Wrapf(errMissingField, "field %q", key)
	}
	return v.GetStringValue(), nil
}

func getOptionalString(s *structpb.Struct, key, def string) string {
	v, ok := s.Fields[key]
	if !ok {
		return def
	}
	return v.GetStringValue()
}

func getUint64(s *structpb.Struct, key string) (uint64, error) {
	v, ok := s.Fields[key]
	if !ok {
		return 0, errors.Wrapf(errMissingField, "field %q", key)
	}
	return uint64(v.GetNumberValue()), nil
}

func getFloat64(s *structpb.Struct, key string) (float64, error) {
	v, ok := s.Fields[key]
	if !ok {
		return 0, errors.Wrapf(errMissingField, "field %q", key)
	}
	return v.GetNumberValue(), nil
}

func structOf(fields map[string]any) *structpb.Struct {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		// Every caller below only ever places JSON-safe scalars into
		// fields, so NewStruct cannot actually fail; panicking here
		// would indicate a programming error in this file, not bad
		// caller input.
		panic(err)
	}
	return s
}

func parseSide(s string) (orderbook.Side, error) {
	switch s {
	case "buy":
		return orderbook.Buy, nil
	case "sell":
		return orderbook.Sell, nil
	default:
		return 0, errors.Newf("grpcapi: invalid side %q", s)
	}
}

func sideString(s orderbook.Side) string {
	return s.String()
}

func parseTIF(kind string, expiresAtUnixNs int64) (orderbook.TIF, error) {
	switch kind {
	case "", "GTC":
		return orderbook.TIF{Kind: orderbook.GTC}, nil
	case "IOC":
		return orderbook.TIF{Kind: orderbook.IOC}, nil
	case "FOK":
		return orderbook.TIF{Kind: orderbook.FOK}, nil
	case "GTD":
		return orderbook.TIF{Kind: orderbook.GTD, ExpiresAt: time.Unix(0, expiresAtUnixNs)}, nil
	default:
		return orderbook.TIF{}, errors.Newf("grpcapi: invalid tif kind %q", kind)
	}
}

func parseOrderID(s string) (orderbook.OrderID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return orderbook.OrderID{}, err
	}
	return id, nil
}

// jsonToStruct round-trips v through its JSON encoding into a
// structpb.Struct, the only way to carry an analytics snapshot (whose
// shape varies with which metric flags were set) over this transport
// without hand-declaring a struct field for every possible metric.
func jsonToStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}
