package orderbook

import "github.com/cockroachdb/errors"

// Sentinel error kinds at the submission/cancellation boundary, named
// exactly as spec.md §6 lists them. Callers compare with errors.Is; the
// cockroachdb/errors package (already pulled in transitively by the
// teacher's pebble dependency) gives these stack traces when wrapped
// further up the call chain without losing errors.Is identity.
var (
	ErrDuplicateID   = errors.New("orderbook: duplicate order id")
	ErrNotFound      = errors.New("orderbook: order not found")
	ErrZeroQuantity  = errors.New("orderbook: zero quantity")
	ErrInvalidIceberg = errors.New("orderbook: invalid iceberg (visible exceeds total)")
	ErrFokUnfillable = errors.New("orderbook: fill-or-kill order cannot be fully filled")
	ErrExpired       = errors.New("orderbook: order expired (GTD)")
)
