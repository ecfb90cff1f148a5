package domain

import "math"

// DefaultPeriodsPerYear es el factor de anualización por defecto (√365).
const DefaultPeriodsPerYear = 365.0

// AnnualizedVolatility devuelve la desviación estándar anualizada de los log-returns
// de una serie cronológica, usando DefaultPeriodsPerYear.
func AnnualizedVolatility(prices []float64) float64 {
	return AnnualizedVolatilityWithFactor(prices, DefaultPeriodsPerYear)
}

// AnnualizedVolatilityWithFactor es AnnualizedVolatility con un factor explícito.
//
// Los precios no positivos se descartan antes de tomar logaritmos. Con menos de
// MinVolatilitySamples precios utilizables devuelve FallbackVolatility.
// La desviación es poblacional: σ = √(Σ(r−r̄)²/n) · √periodsPerYear.
func AnnualizedVolatilityWithFactor(prices []float64, periodsPerYear float64) float64 {
	if periodsPerYear <= 0 {
		periodsPerYear = DefaultPeriodsPerYear
	}

	valid := make([]float64, 0, len(prices))
	for _, p := range prices {
		if p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p) {
			valid = append(valid, p)
		}
	}
	if len(valid) < MinVolatilitySamples {
		return FallbackVolatility
	}

	returns := make([]float64, len(valid)-1)
	var sum float64
	for i := 1; i < len(valid); i++ {
		r := math.Log(valid[i] / valid[i-1])
		returns[i-1] = r
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance) * math.Sqrt(periodsPerYear)
}
