package ivsolver

import (
	"math"

	"github.com/cockroachdb/errors"
)

// minTimeToExpiry is about one hour in years, below which the solve is
// considered numerically unstable, grounded on
// original_source/.../solver.rs's MIN_TIME constant.
const minTimeToExpiry = 1.0 / (365.0 * 24.0)

// SolverConfig tunes the hybrid Newton/bisection inversion of spec.md
// §4.F step 2-5. Defaults match the spec's named constants exactly; the
// builder-option shape is grounded on
// original_source/.../solver.rs's SolverConfig with_* methods.
type SolverConfig struct {
	MaxNewtonIterations    int
	MaxBisectionIterations int
	PriceTolerance         float64 // ε_price
	SigmaTolerance         float64 // ε_sigma
	MinVega                float64 // ε_vega
	SigmaMin               float64 // Newton/bisection working bound
	SigmaMax               float64
	InitialGuessMin        float64 // clamp bound for σ₀ only
	InitialGuessMax        float64
}

// DefaultSolverConfig returns the exact bounds and tolerances spec.md §4.F
// names: ε_price=1e-6, ε_sigma=1e-8, ε_vega=1e-8, Newton/bisection working
// range [1e-6, 10.0], initial-guess clamp [0.01, 5.0], 100 Newton / 200
// bisection max iterations.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		MaxNewtonIterations:    100,
		MaxBisectionIterations: 200,
		PriceTolerance:         1e-6,
		SigmaTolerance:         1e-8,
		MinVega:                1e-8,
		SigmaMin:               1e-6,
		SigmaMax:               10.0,
		InitialGuessMin:        0.01,
		InitialGuessMax:        5.0,
	}
}

func (c SolverConfig) WithMaxNewtonIterations(n int) SolverConfig {
	c.MaxNewtonIterations = n
	return c
}

func (c SolverConfig) WithMaxBisectionIterations(n int) SolverConfig {
	c.MaxBisectionIterations = n
	return c
}

func (c SolverConfig) WithPriceTolerance(tol float64) SolverConfig {
	c.PriceTolerance = tol
	return c
}

func (c SolverConfig) WithSigmaTolerance(tol float64) SolverConfig {
	c.SigmaTolerance = tol
	return c
}

func (c SolverConfig) WithMinVega(v float64) SolverConfig {
	c.MinVega = v
	return c
}

func (c SolverConfig) WithBounds(min, max float64) SolverConfig {
	c.SigmaMin, c.SigmaMax = min, max
	return c
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func validateParams(p IVParams) error {
	if p.Spot <= 0 {
		return errors.Wrapf(ErrInvalidParams, "spot must be positive, got %v", p.Spot)
	}
	if p.Strike <= 0 {
		return errors.Wrapf(ErrInvalidParams, "strike must be positive, got %v", p.Strike)
	}
	if p.TimeToExpiry < 0 {
		return errors.Wrapf(ErrInvalidParams, "time to expiry must be non-negative, got %v", p.TimeToExpiry)
	}
	if p.TimeToExpiry < minTimeToExpiry {
		return errors.Wrapf(ErrTimeToExpiryTooSmall, "got %v, minimum %v", p.TimeToExpiry, minTimeToExpiry)
	}
	return nil
}

// arbitrageBounds returns the no-arbitrage [lower, upper] price bounds of
// spec.md §4.F step 1.
func arbitrageBounds(p IVParams, discount float64) (lower, upper float64) {
	if p.OptionType == Call {
		return math.Max(p.Spot-p.Strike*discount, 0), p.Spot
	}
	return math.Max(p.Strike*discount-p.Spot, 0), p.Strike * discount
}

// initialGuess implements spec.md §4.F step 2's formula exactly:
// σ₀ = √(2π/T) · |price − (S−K·e^(−rT))/2| / S, clamped to
// [InitialGuessMin, InitialGuessMax]. This differs deliberately from the
// Rust reference's Brenner-Subrahmanyam approximation, since the spec's
// own formula takes precedence.
func initialGuess(p IVParams, marketPrice, discount float64, cfg SolverConfig) float64 {
	raw := math.Sqrt(2*math.Pi/p.TimeToExpiry) * math.Abs(marketPrice-(p.Spot-p.Strike*discount)/2) / p.Spot
	return clamp(raw, cfg.InitialGuessMin, cfg.InitialGuessMax)
}

// Solve inverts Black-Scholes for σ against marketPrice using the hybrid
// Newton-Raphson/bisection algorithm of spec.md §4.F steps 2-5. It returns
// the converged implied volatility and the iteration count, or an error:
// ErrPriceOutOfArbitrageBounds, ErrInvalidParams, ErrTimeToExpiryTooSmall,
// or ErrNonConvergent.
func Solve(params IVParams, marketPrice float64, cfg SolverConfig) (iv float64, iterations int, err error) {
	if err := validateParams(params); err != nil {
		return 0, 0, err
	}
	if marketPrice <= 0 {
		return 0, 0, errors.Wrapf(ErrInvalidParams, "market price must be positive, got %v", marketPrice)
	}

	discount := math.Exp(-params.RiskFreeRate * params.TimeToExpiry)
	lower, upper := arbitrageBounds(params, discount)
	if marketPrice < lower-cfg.PriceTolerance || marketPrice > upper+cfg.PriceTolerance {
		return 0, 0, errors.Wrapf(ErrPriceOutOfArbitrageBounds, "price %v outside [%v, %v]", marketPrice, lower, upper)
	}

	sigma := initialGuess(params, marketPrice, discount, cfg)

	overshootStreak := 0
	n := 0
	fellToBisection := false

	for ; n < cfg.MaxNewtonIterations; n++ {
		price := bsPrice(params, sigma)
		diff := price - marketPrice
		if math.Abs(diff) < cfg.PriceTolerance {
			return sigma, n + 1, nil
		}

		vega := bsVega(params, sigma)
		if math.Abs(vega) < cfg.MinVega {
			fellToBisection = true
			break
		}

		next := sigma - diff/vega
		if next < cfg.SigmaMin || next > cfg.SigmaMax {
			overshootStreak++
			if overshootStreak >= 2 {
				fellToBisection = true
				break
			}
		} else {
			overshootStreak = 0
		}

		clamped := clamp(next, cfg.SigmaMin, cfg.SigmaMax)
		if math.Abs(clamped-sigma) < cfg.SigmaTolerance {
			return clamped, n + 1, nil
		}
		sigma = clamped
	}

	if !fellToBisection {
		return 0, n, errors.Wrapf(ErrNonConvergent, "newton did not converge after %d iterations", n)
	}

	bisIV, bisN, err := solveBisection(params, marketPrice, cfg)
	if err != nil {
		return 0, n, err
	}
	return bisIV, n + bisN, nil
}

// solveBisection runs bisection on [SigmaMin, SigmaMax], the fallback path
// of spec.md §4.F step 4.
func solveBisection(params IVParams, marketPrice float64, cfg SolverConfig) (iv float64, iterations int, err error) {
	lo, hi := cfg.SigmaMin, cfg.SigmaMax
	priceLo := bsPrice(params, lo)
	priceHi := bsPrice(params, hi)
	if marketPrice < priceLo || marketPrice > priceHi {
		return 0, 0, errors.Wrapf(ErrNonConvergent, "target price %v outside bisection range [%v, %v]", marketPrice, priceLo, priceHi)
	}

	for i := 0; i < cfg.MaxBisectionIterations; i++ {
		mid := (lo + hi) / 2
		price := bsPrice(params, mid)
		diff := price - marketPrice
		if math.Abs(diff) < cfg.PriceTolerance || (hi-lo) < cfg.SigmaTolerance {
			return mid, i + 1, nil
		}
		if diff > 0 {
			hi = mid
		} else {
			lo = mid
		}
	}

	return 0, cfg.MaxBisectionIterations, errors.Wrapf(ErrNonConvergent, "bisection did not converge after %d iterations", cfg.MaxBisectionIterations)
}
