package ivsolver

import "github.com/cockroachdb/errors"

// Error kinds named exactly as spec.md §4.F/§6 lists them, following the
// sentinel style of internal/orderbook/errors.go. The remaining kinds below
// come from original_source/.../error.rs's richer IVError enum and guard
// intermediate validation steps the spec's three named kinds don't cover.
var (
	ErrPriceOutOfArbitrageBounds = errors.New("ivsolver: price outside no-arbitrage bounds")
	ErrIlliquidReject            = errors.New("ivsolver: spread too wide to solve reliably")
	ErrNonConvergent             = errors.New("ivsolver: solver did not converge")

	ErrNoPriceAvailable     = errors.New("ivsolver: no price available from order book")
	ErrInvalidParams        = errors.New("ivsolver: invalid option parameters")
	ErrTimeToExpiryTooSmall = errors.New("ivsolver: time to expiry too small for a stable solve")
)
