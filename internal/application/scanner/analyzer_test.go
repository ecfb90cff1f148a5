package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/v3lab/internal/domain"
)

var t0 = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

// flatSnapshots devuelve n snapshots newest-first a precio constante.
func flatSnapshots(n int, price, aprPct float64) []domain.PriceSnapshot {
	out := make([]domain.PriceSnapshot, n)
	for i := range out {
		out[i] = domain.PriceSnapshot{
			Timestamp:    t0.Add(-time.Duration(i) * 8 * time.Hour),
			PriceNative:  domain.Float64(price),
			PriceUSD:     domain.Float64(price),
			APRAnnualPct: domain.Float64(aprPct),
		}
	}
	return out
}

// choppySnapshots alterna ±1% para tener volatilidad no nula.
func choppySnapshots(n int, aprPct float64) []domain.PriceSnapshot {
	out := flatSnapshots(n, 100, aprPct)
	for i := range out {
		if i%2 == 1 {
			out[i].PriceNative = domain.Float64(101)
		}
	}
	return out
}

func testHistory(address string, snaps []domain.PriceSnapshot) domain.PoolHistory {
	return domain.PoolHistory{
		Pool: domain.PoolInfo{
			Address:      address,
			BaseToken:    "WETH",
			QuoteToken:   "USDC",
			ChainID:      "arbitrum",
			DexID:        "uniswap-v3",
			FeeTier:      500,
			LiquidityUSD: 1_000_000,
		},
		Snapshots: snaps,
	}
}

func TestAnalyzer_Evaluate_FlatPool(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())
	res, err := a.Evaluate(testHistory("0xflat", flatSnapshots(100, 2000, 36.5)), 7, 1.0)
	require.NoError(t, err)

	assert.Equal(t, "0xflat", res.Address)
	assert.Equal(t, "WETH / USDC 0.05%", res.Pair)
	assert.Equal(t, "Arbitrum", res.Chain)
	assert.Equal(t, "Uniswap", res.Dex)
	assert.Equal(t, 1_000_000.0, res.TVLUSD)
	assert.Equal(t, 100, res.Snapshots)

	assert.InDelta(t, 0.365, res.APRAnnual, 1e-12)
	assert.Equal(t, 0.0, res.VolatilityAnnual)
	assert.Equal(t, domain.ScannerWidthBand.Min, res.EstRangeWidth)
	assert.InDelta(t, 0.6827, res.ProbabilityInRange, 1e-3)

	wantYield := 0.365 * 7.0 / 365.0 * res.ProbabilityInRange
	assert.InDelta(t, wantYield, res.EstProbableFeeYield, 1e-12)
	assert.InDelta(t, 0.0012578, res.EstWorstCaseIL, 1e-6)
	assert.InDelta(t, wantYield/res.EstWorstCaseIL, res.FeeToILRatio, 1e-9)
	assert.InDelta(t, wantYield-res.EstWorstCaseIL, res.Margin, 1e-12)
}

func TestAnalyzer_Evaluate_InsufficientHistory(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())
	// 7 días · 3 · 2 = 42 snapshots mínimos
	_, err := a.Evaluate(testHistory("0x", flatSnapshots(41, 100, 10)), 7, 1.0)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)

	_, err = a.Evaluate(testHistory("0x", flatSnapshots(42, 100, 10)), 7, 1.0)
	assert.NoError(t, err)
}

func TestAnalyzer_Evaluate_CountsOnlyPricedSnapshots(t *testing.T) {
	snaps := flatSnapshots(50, 100, 10)
	for i := 0; i < 10; i++ {
		snaps[i].PriceNative = nil
		snaps[i].PriceUSD = nil
	}
	_, err := NewAnalyzer(DefaultAnalyzerConfig()).Evaluate(testHistory("0x", snaps), 7, 1.0)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
}

func TestAnalyzer_Evaluate_InvalidParams(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())
	_, err := a.Evaluate(testHistory("0x", flatSnapshots(100, 100, 10)), 0, 1.0)
	assert.ErrorIs(t, err, domain.ErrInvalidParams)
	_, err = a.Evaluate(testHistory("0x", flatSnapshots(100, 100, 10)), 7, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidParams)
}

func TestAnalyzer_Evaluate_APRWindowUsesNewestOnly(t *testing.T) {
	snaps := flatSnapshots(100, 100, 10)
	// los 21 más recientes (7 días) a 50%, el resto a 10%
	for i := 0; i < 21; i++ {
		snaps[i].APRAnnualPct = domain.Float64(50)
	}
	// un APR ausente dentro de la ventana no cuenta
	snaps[3].APRAnnualPct = nil

	res, err := NewAnalyzer(DefaultAnalyzerConfig()).Evaluate(testHistory("0x", snaps), 7, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.50, res.APRAnnual, 1e-12)
}

func TestAnalyzer_Evaluate_TVLFallback(t *testing.T) {
	snaps := flatSnapshots(60, 100, 10)
	snaps[0].LiquidityUSD = domain.Float64(0)
	snaps[1].LiquidityUSD = domain.Float64(75_000)
	hist := testHistory("0x", snaps)
	hist.Pool.LiquidityUSD = 0

	res, err := NewAnalyzer(DefaultAnalyzerConfig()).Evaluate(hist, 7, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 75_000.0, res.TVLUSD)
}

func TestAnalyzer_Evaluate_HigherVolatilityWidensRange(t *testing.T) {
	a := NewAnalyzer(DefaultAnalyzerConfig())
	calm, err := a.Evaluate(testHistory("0xcalm", flatSnapshots(100, 100, 30)), 7, 1.0)
	require.NoError(t, err)
	choppy, err := a.Evaluate(testHistory("0xchoppy", choppySnapshots(100, 30)), 7, 1.0)
	require.NoError(t, err)

	assert.Greater(t, choppy.VolatilityAnnual, calm.VolatilityAnnual)
	assert.Greater(t, choppy.EstRangeWidth, calm.EstRangeWidth)
	assert.Greater(t, choppy.EstWorstCaseIL, calm.EstWorstCaseIL)
	assert.InDelta(t, calm.EstProbableFeeYield, choppy.EstProbableFeeYield, 1e-12)
	assert.Greater(t, calm.FeeToILRatio, choppy.FeeToILRatio)
}

func TestNewAnalyzer_Defaults(t *testing.T) {
	a := NewAnalyzer(AnalyzerConfig{})
	assert.Equal(t, 3, a.cfg.SnapshotsPerDay)
	assert.Equal(t, domain.ScannerWidthBand, a.cfg.Band)
	assert.Equal(t, 42, a.MinSnapshots(7))
}
