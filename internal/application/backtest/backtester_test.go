package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/v3lab/internal/domain"
)

var t0 = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

// newestFirst construye un historial newest-first a partir de precios cronológicos.
// priceNative == priceUsd, así que el quote vale 1 USD.
func newestFirst(prices []float64, aprPct float64) []domain.PriceSnapshot {
	out := make([]domain.PriceSnapshot, len(prices))
	for i, p := range prices {
		out[len(prices)-1-i] = domain.PriceSnapshot{
			Timestamp:    t0.Add(time.Duration(i) * 8 * time.Hour),
			PriceNative:  domain.Float64(p),
			PriceUSD:     domain.Float64(p),
			APRAnnualPct: domain.Float64(aprPct),
		}
	}
	return out
}

func flat(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func testParams() domain.BacktestParams {
	p := DefaultParams()
	p.SimDays = 10
	p.LookbackDays = 7
	return p
}

func TestRun_InsufficientHistory(t *testing.T) {
	p := testParams()
	// warm-up = 21, necesita 22
	_, err := Run(newestFirst(flat(21, 100), 10), p)
	require.ErrorIs(t, err, domain.ErrInsufficientHistory)

	res, err := Run(newestFirst(flat(22, 100), 10), p)
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
}

func TestRun_InvalidParams(t *testing.T) {
	hist := newestFirst(flat(60, 100), 10)

	p := testParams()
	p.InvestmentUSD = 0
	_, err := Run(hist, p)
	assert.ErrorIs(t, err, domain.ErrInvalidParams)

	p = testParams()
	p.SDMultiplier = -1
	_, err = Run(hist, p)
	assert.ErrorIs(t, err, domain.ErrInvalidParams)

	p = testParams()
	p.SimDays = 0
	_, err = Run(hist, p)
	assert.ErrorIs(t, err, domain.ErrInvalidParams)
}

func TestRun_FlatSeries_NoRebalanceAndFeesMatch(t *testing.T) {
	p := testParams()
	p.AutoRebalance = true
	res, err := Run(newestFirst(flat(80, 100), 36.5), p)
	require.NoError(t, err)

	// (10+7)·3 = 51 snapshots usados, 21 de warm-up → 30 registros
	require.Len(t, res.Records, 30)
	assert.Equal(t, 0, res.Metadata.RebalanceCount)
	assert.Equal(t, 1, res.Metadata.RangeRecomputations)
	assert.Equal(t, 1095.0, res.Metadata.PeriodsPerYear)
	assert.Equal(t, 0.0, res.Metadata.InitialVolatility)
	assert.Equal(t, domain.BacktestWidthBand.Min, res.Metadata.InitialRangeWidth)

	var want float64
	for _, r := range res.Records {
		assert.True(t, r.InRange)
		want += r.PositionValueUSD * (r.APRAnnualPct / 100) / 1095
	}
	last := res.Records[len(res.Records)-1]
	assert.InDelta(t, want, last.FeesAccumulated, 1e-9)
	assert.InDelta(t, 10.0, last.FeesAccumulated, 1e-6)
	assert.InDelta(t, 1000.0, last.PositionValueUSD, 1e-6)
	assert.InDelta(t, 1000.0, last.HodlValueUSD, 1e-6)
}

func TestRun_RisingSeries_RebalancesEveryStep(t *testing.T) {
	p := testParams()
	p.AutoRebalance = true

	prices := make([]float64, 51)
	price := 100.0
	for i := range prices {
		prices[i] = price
		price *= 1.05
	}
	res, err := Run(newestFirst(prices, 20), p)
	require.NoError(t, err)
	require.Len(t, res.Records, 30)

	// la apertura está en rango; cada paso posterior sale por arriba (+5% > ancho 1%)
	assert.Equal(t, len(res.Records)-1, res.Metadata.RebalanceCount)
	assert.Equal(t, res.Metadata.RebalanceCount+1, res.Metadata.RangeRecomputations)
	for i, r := range res.Records {
		assert.Less(t, r.RangeLower, r.RangeUpper, "record %d", i)
		assert.True(t, r.InRange, "record %d", i)
		assert.Equal(t, i > 0, r.Rebalanced, "record %d", i)
	}
}

func TestRun_RisingSeries_NoRebalanceLeavesRange(t *testing.T) {
	p := testParams()

	prices := make([]float64, 51)
	price := 100.0
	for i := range prices {
		prices[i] = price
		price *= 1.05
	}
	res, err := Run(newestFirst(prices, 20), p)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Metadata.RebalanceCount)
	assert.True(t, res.Records[0].InRange)
	for _, r := range res.Records[1:] {
		assert.False(t, r.InRange)
		assert.Equal(t, 0.0, r.FeesThisPeriod)
	}
	// por encima del rango la posición es 100% quote: su valor queda fijo
	last := res.Records[len(res.Records)-1]
	assert.InDelta(t, res.Records[1].PositionValueUSD, last.PositionValueUSD, 1e-9)
	assert.Greater(t, last.HodlValueUSD, last.PositionValueUSD)
}

func TestRun_RebalanceAppliesHaircut(t *testing.T) {
	p := testParams()
	p.AutoRebalance = true

	prices := append(flat(22, 100), 120)
	res, err := Run(newestFirst(prices, 0), p)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	// valor de la posición original a 120 (100% quote)
	lower, upper := res.InitialLower, res.InitialUpper
	l := domain.LiquidityForAmount(p.InvestmentUSD, 100, lower, upper)
	_, quote := domain.AmountsForLiquidity(l, 120, lower, upper)

	jump := res.Records[1]
	assert.True(t, jump.Rebalanced)
	assert.InDelta(t, quote*(1-domain.DefaultRebalanceCost), jump.PositionValueUSD, 1e-6)
	assert.InDelta(t, 120*(1-0.01), jump.RangeLower, 1e-9)
	assert.InDelta(t, 120*(1+0.01), jump.RangeUpper, 1e-9)
}

func TestRun_SkipsInvalidSnapshots(t *testing.T) {
	p := testParams()
	hist := newestFirst(flat(51, 100), 10)
	// hist es newest-first: índice 5 es un snapshot posterior al warm-up
	hist[5].PriceNative = nil
	hist[5].PriceUSD = nil
	hist[6].PriceUSD = domain.Float64(0)

	res, err := Run(hist, p)
	require.NoError(t, err)
	assert.Len(t, res.Records, 28)
	assert.Equal(t, 2, res.Metadata.SkippedSnapshots)
}

func TestRun_OpensAtFirstValidSnapshotAfterWarmup(t *testing.T) {
	p := testParams()
	prices := append(flat(21, 100), 0, 105, 105)
	hist := newestFirst(prices, 10)

	res, err := Run(hist, p)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.InDelta(t, 105*(1-0.01), res.InitialLower, 1e-9)
	assert.Equal(t, t0.Add(22*8*time.Hour), res.Records[0].Date)
}

func TestRun_UsesOnlyNewestWindow(t *testing.T) {
	p := testParams()
	// 100 snapshots antiguos a 50 y los 51 más recientes a 100
	prices := append(flat(100, 50), flat(51, 100)...)
	res, err := Run(newestFirst(prices, 10), p)
	require.NoError(t, err)

	assert.Len(t, res.Records, 30)
	assert.Equal(t, 0.0, res.Metadata.InitialVolatility)
	for _, r := range res.Records {
		assert.Equal(t, 100.0, r.Price)
	}
}

func TestRun_NativeDiffersFromUSD(t *testing.T) {
	p := testParams()
	hist := newestFirst(flat(51, 100), 36.5)
	// base = 0.5 quote; quote = 200 USD → base = 100 USD
	for i := range hist {
		hist[i].PriceNative = domain.Float64(0.5)
	}

	res, err := Run(hist, p)
	require.NoError(t, err)
	last := res.Records[len(res.Records)-1]
	assert.Equal(t, 0.5, last.Price)
	assert.InDelta(t, 1000.0, last.PositionValueUSD, 1e-6)
	assert.InDelta(t, 1000.0, last.HodlValueUSD, 1e-6)
}

func TestRun_SummaryKPIs(t *testing.T) {
	p := testParams()
	res, err := Run(newestFirst(flat(51, 100), 36.5), p)
	require.NoError(t, err)

	s := res.Summary(p.InvestmentUSD)
	assert.Equal(t, 30, s.Periods)
	assert.InDelta(t, 0.01, s.ROI, 1e-6)
	assert.InDelta(t, 0.0, s.HodlROI, 1e-6)
	assert.Equal(t, 1.0, s.TimeInRange)
}
