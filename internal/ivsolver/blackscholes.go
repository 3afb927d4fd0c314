package ivsolver

import "math"

// erf approximates the error function via the Abramowitz-Stegun formula
// 7.1.26, with maximum absolute error 1.5e-7, so normCDF built on it is
// accurate to about 7.5e-8, not to 1e-8. Grounded on
// original_source/src/orderbook/implied_volatility/black_scholes.rs's erf.
func erf(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x)

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)
	return sign * y
}

// normCDF is the standard normal CDF, N(x) = P(Z <= x).
func normCDF(x float64) float64 {
	return 0.5 * (1 + erf(x/math.Sqrt2))
}

// normPDF is the standard normal PDF, φ(x).
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// d1 is [ln(S/K) + (r + σ²/2)T] / (σ√T).
func d1(spot, strike, rate, t, vol float64) float64 {
	return (math.Log(spot/strike) + (rate+0.5*vol*vol)*t) / (vol * math.Sqrt(t))
}

// d2 is d1 - σ√T.
func d2(d1, vol, t float64) float64 {
	return d1 - vol*math.Sqrt(t)
}

// bsPrice is the theoretical Black-Scholes forward price of spec.md §4.F:
// for a call, C = S·N(d1) − K·e^(−rT)·N(d2); for a put, by put-call parity.
func bsPrice(p IVParams, vol float64) float64 {
	if p.TimeToExpiry <= 0 {
		return p.IntrinsicValue()
	}
	if vol <= 0 {
		discount := math.Exp(-p.RiskFreeRate * p.TimeToExpiry)
		if p.OptionType == Call {
			return math.Max(p.Spot-p.Strike*discount, 0)
		}
		return math.Max(p.Strike*discount-p.Spot, 0)
	}

	dd1 := d1(p.Spot, p.Strike, p.RiskFreeRate, p.TimeToExpiry, vol)
	dd2 := d2(dd1, vol, p.TimeToExpiry)
	discount := math.Exp(-p.RiskFreeRate * p.TimeToExpiry)

	if p.OptionType == Call {
		return p.Spot*normCDF(dd1) - p.Strike*discount*normCDF(dd2)
	}
	return p.Strike*discount*normCDF(-dd2) - p.Spot*normCDF(-dd1)
}

// bsVega is S·√T·φ(d1), the sensitivity of price to volatility. Always
// non-negative for both calls and puts.
func bsVega(p IVParams, vol float64) float64 {
	if p.TimeToExpiry <= 0 || vol <= 0 {
		return 0
	}
	dd1 := d1(p.Spot, p.Strike, p.RiskFreeRate, p.TimeToExpiry, vol)
	return p.Spot * normPDF(dd1) * math.Sqrt(p.TimeToExpiry)
}

// bsDelta is ∂price/∂S: N(d1) for a call, N(d1)-1 for a put.
func bsDelta(p IVParams, vol float64) float64 {
	if p.TimeToExpiry <= 0 {
		if p.OptionType == Call {
			if p.Spot > p.Strike {
				return 1
			}
			return 0
		}
		if p.Spot < p.Strike {
			return -1
		}
		return 0
	}
	dd1 := d1(p.Spot, p.Strike, p.RiskFreeRate, p.TimeToExpiry, vol)
	if p.OptionType == Call {
		return normCDF(dd1)
	}
	return normCDF(dd1) - 1
}

// bsGamma is ∂²price/∂S² = φ(d1) / (S·σ·√T).
func bsGamma(p IVParams, vol float64) float64 {
	if p.TimeToExpiry <= 0 || vol <= 0 {
		return 0
	}
	dd1 := d1(p.Spot, p.Strike, p.RiskFreeRate, p.TimeToExpiry, vol)
	return normPDF(dd1) / (p.Spot * vol * math.Sqrt(p.TimeToExpiry))
}

// bsTheta is the daily time decay (annual theta divided by 365).
func bsTheta(p IVParams, vol float64) float64 {
	if p.TimeToExpiry <= 0 || vol <= 0 {
		return 0
	}
	dd1 := d1(p.Spot, p.Strike, p.RiskFreeRate, p.TimeToExpiry, vol)
	dd2 := d2(dd1, vol, p.TimeToExpiry)
	discount := math.Exp(-p.RiskFreeRate * p.TimeToExpiry)
	sqrtT := math.Sqrt(p.TimeToExpiry)

	term1 := -p.Spot * normPDF(dd1) * vol / (2 * sqrtT)

	var annual float64
	if p.OptionType == Call {
		annual = term1 - p.RiskFreeRate*p.Strike*discount*normCDF(dd2)
	} else {
		annual = term1 + p.RiskFreeRate*p.Strike*discount*normCDF(-dd2)
	}
	return annual / 365
}
