package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnnualizedVolatility_FlatSeries(t *testing.T) {
	prices := []float64{100, 100, 100, 100, 100, 100, 100}
	assert.Equal(t, 0.0, AnnualizedVolatility(prices))
}

func TestAnnualizedVolatility_TooFewPoints(t *testing.T) {
	assert.Equal(t, FallbackVolatility, AnnualizedVolatility(nil))
	assert.Equal(t, FallbackVolatility, AnnualizedVolatility([]float64{1, 2, 3, 4}))
}

func TestAnnualizedVolatility_DropsNonPositiveBeforeCounting(t *testing.T) {
	// 6 puntos crudos pero solo 4 positivos → fallback
	prices := []float64{100, 0, 101, -5, 102, 103}
	assert.Equal(t, FallbackVolatility, AnnualizedVolatility(prices))
}

func TestAnnualizedVolatility_IgnoresInvalidPrices(t *testing.T) {
	clean := []float64{100, 102, 101, 104, 103, 105}
	dirty := []float64{100, 0, 102, 101, -1, 104, 103, 105}
	assert.InDelta(t, AnnualizedVolatility(clean), AnnualizedVolatility(dirty), 1e-12)
}

func TestAnnualizedVolatility_KnownValue(t *testing.T) {
	// Alterna ×1.01 y ÷1.01: log-returns ±ln(1.01), media 0, σ = ln(1.01)
	prices := []float64{100, 101, 100, 101, 100, 101, 100}
	want := math.Log(1.01) * math.Sqrt(365)
	assert.InDelta(t, want, AnnualizedVolatility(prices), 1e-9)
}

func TestAnnualizedVolatility_GeometricTrendHasZeroVol(t *testing.T) {
	prices := make([]float64, 10)
	p := 100.0
	for i := range prices {
		prices[i] = p
		p *= 1.05
	}
	assert.InDelta(t, 0.0, AnnualizedVolatility(prices), 1e-9)
}

func TestAnnualizedVolatilityWithFactor_Scales(t *testing.T) {
	prices := []float64{100, 101, 100, 101, 100, 101, 100}
	v365 := AnnualizedVolatilityWithFactor(prices, 365)
	v1095 := AnnualizedVolatilityWithFactor(prices, 1095)
	assert.InDelta(t, v365*math.Sqrt(3), v1095, 1e-9)
}

func TestAnnualizedVolatilityWithFactor_InvalidFactorUsesDefault(t *testing.T) {
	prices := []float64{100, 101, 100, 101, 100, 101, 100}
	assert.Equal(t, AnnualizedVolatility(prices), AnnualizedVolatilityWithFactor(prices, 0))
}
