package ivsolver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Scenario 6 (spec.md §8): S=3000, K=3000, T=30/365, r=0, price=150, Call.
// Expected iv ≈ 0.5306 ± 0.001, iterations ≤ 10.
func TestSolve_Scenario6(t *testing.T) {
	params := IVParams{Spot: 3000, Strike: 3000, TimeToExpiry: 30.0 / 365.0, RiskFreeRate: 0, OptionType: Call}
	iv, iterations, err := Solve(params, 150, DefaultSolverConfig())
	require.NoError(t, err)
	require.InDelta(t, 0.5306, iv, 0.001)
	require.LessOrEqual(t, iterations, 10)
}

// P5 (spec.md §8): for any successful solve, |BS(σ) - price_used| < 1e-5.
func TestSolve_RoundTripsThroughBSPrice(t *testing.T) {
	cases := []struct {
		name       string
		params     IVParams
		targetVol  float64
	}{
		{"atm call", IVParams{Spot: 100, Strike: 100, TimeToExpiry: 0.25, RiskFreeRate: 0.05, OptionType: Call}, 0.25},
		{"atm put", IVParams{Spot: 100, Strike: 100, TimeToExpiry: 0.25, RiskFreeRate: 0.05, OptionType: Put}, 0.30},
		{"itm call", IVParams{Spot: 110, Strike: 100, TimeToExpiry: 0.25, RiskFreeRate: 0.05, OptionType: Call}, 0.20},
		{"otm call", IVParams{Spot: 90, Strike: 100, TimeToExpiry: 0.25, RiskFreeRate: 0.05, OptionType: Call}, 0.35},
		{"high vol", IVParams{Spot: 100, Strike: 100, TimeToExpiry: 0.25, RiskFreeRate: 0, OptionType: Call}, 1.5},
		{"low vol", IVParams{Spot: 100, Strike: 100, TimeToExpiry: 0.25, RiskFreeRate: 0, OptionType: Call}, 0.05},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			marketPrice := bsPrice(tc.params, tc.targetVol)
			iv, _, err := Solve(tc.params, marketPrice, DefaultSolverConfig())
			require.NoError(t, err)
			require.InDelta(t, tc.targetVol, iv, 1e-4)
			require.InDelta(t, marketPrice, bsPrice(tc.params, iv), 1e-5)
		})
	}
}

func TestSolve_VariousMaturitiesConverge(t *testing.T) {
	targetVol := 0.25
	for _, days := range []float64{7, 30, 90, 180, 365} {
		params := IVParams{Spot: 100, Strike: 100, TimeToExpiry: days / 365.0, RiskFreeRate: 0.05, OptionType: Call}
		marketPrice := bsPrice(params, targetVol)
		iv, _, err := Solve(params, marketPrice, DefaultSolverConfig())
		require.NoError(t, err)
		require.InDeltaf(t, targetVol, iv, 1e-4, "failed for %v days maturity", days)
	}
}

func TestSolve_RejectsInvalidSpot(t *testing.T) {
	params := IVParams{Spot: -100, Strike: 100, TimeToExpiry: 0.25, RiskFreeRate: 0.05, OptionType: Call}
	_, _, err := Solve(params, 5, DefaultSolverConfig())
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestSolve_RejectsTinyTimeToExpiry(t *testing.T) {
	params := IVParams{Spot: 100, Strike: 100, TimeToExpiry: 0.00001, RiskFreeRate: 0.05, OptionType: Call}
	_, _, err := Solve(params, 5, DefaultSolverConfig())
	require.ErrorIs(t, err, ErrTimeToExpiryTooSmall)
}

func TestSolve_RejectsPriceBelowIntrinsic(t *testing.T) {
	// ITM call with intrinsic value 10; price of 5 is below intrinsic and
	// therefore below the no-arbitrage lower bound.
	params := IVParams{Spot: 110, Strike: 100, TimeToExpiry: 0.25, RiskFreeRate: 0, OptionType: Call}
	_, _, err := Solve(params, 5, DefaultSolverConfig())
	require.ErrorIs(t, err, ErrPriceOutOfArbitrageBounds)
}

func TestSolve_RejectsPriceAboveSpot(t *testing.T) {
	params := IVParams{Spot: 100, Strike: 100, TimeToExpiry: 0.25, RiskFreeRate: 0.05, OptionType: Call}
	_, _, err := Solve(params, 150, DefaultSolverConfig())
	require.ErrorIs(t, err, ErrPriceOutOfArbitrageBounds)
}

func TestSolverConfig_Builder(t *testing.T) {
	cfg := DefaultSolverConfig().
		WithMaxNewtonIterations(50).
		WithPriceTolerance(1e-6).
		WithBounds(0.01, 3.0)

	require.Equal(t, 50, cfg.MaxNewtonIterations)
	require.InDelta(t, 1e-6, cfg.PriceTolerance, 1e-12)
	require.InDelta(t, 0.01, cfg.SigmaMin, 1e-12)
	require.InDelta(t, 3.0, cfg.SigmaMax, 1e-12)
}
