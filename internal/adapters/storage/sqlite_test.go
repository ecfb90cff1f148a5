package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/v3lab/internal/adapters/storage"
	"github.com/alejandrodnm/v3lab/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func makeResult(address string, ratio float64) domain.PoolScanResult {
	return domain.PoolScanResult{
		Address:             address,
		Pair:                "WETH / USDC 0.05%",
		Chain:               "Ethereum",
		Dex:                 "Uniswap",
		FeeTier:             500,
		TVLUSD:              2_500_000,
		APRAnnual:           0.35,
		VolatilityAnnual:    0.62,
		EstRangeWidth:       0.084,
		ProbabilityInRange:  0.6827,
		EstProbableFeeYield: 0.0065,
		EstWorstCaseIL:      0.0009,
		FeeToILRatio:        ratio,
		Margin:              0.0056,
		Snapshots:           84,
	}
}

func makeScanRun(id string, started time.Time, results ...domain.PoolScanResult) domain.ScanRun {
	return domain.ScanRun{
		ID:         id,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Params: domain.ScanParams{
			Chains:       []string{"ethereum", "arbitrum"},
			MinTVLUSD:    1e6,
			LookbackDays: 7,
			SDMultiplier: 1,
		},
		Results:    results,
		Candidates: len(results) + 2,
		Skipped:    2,
	}
}

func TestSQLiteStorage_SaveAndGetScanHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	err := db.SaveScan(ctx, makeScanRun("scan-1", now,
		makeResult("0xaaa", 7.2),
		makeResult("0xbbb", 12.5),
	))
	require.NoError(t, err)

	history, err := db.GetScanHistory(ctx, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Ordenados por ratio desc
	assert.Equal(t, "0xbbb", history[0].Address)
	assert.InDelta(t, 12.5, history[0].FeeToILRatio, 1e-9)
	assert.Equal(t, makeResult("0xaaa", 7.2), history[1])
}

func TestSQLiteStorage_GetScanHistory_FiltersByStart(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, db.SaveScan(ctx, makeScanRun("old", now.Add(-48*time.Hour), makeResult("0x001", 3))))
	require.NoError(t, db.SaveScan(ctx, makeScanRun("new", now, makeResult("0x002", 2))))

	history, err := db.GetScanHistory(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "0x002", history[0].Address)
}

func TestSQLiteStorage_GetScanHistory_Empty(t *testing.T) {
	db := newTestDB(t)

	history, err := db.GetScanHistory(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSQLiteStorage_SaveScanWithoutResults(t *testing.T) {
	db := newTestDB(t)

	err := db.SaveScan(context.Background(), makeScanRun("empty", time.Now()))
	assert.NoError(t, err)
}

func TestSQLiteStorage_SaveScanDuplicateID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	run := makeScanRun("dup", time.Now(), makeResult("0x001", 1))

	require.NoError(t, db.SaveScan(ctx, run))
	assert.Error(t, db.SaveScan(ctx, run))
}

func TestSQLiteStorage_SaveScanRequiresID(t *testing.T) {
	db := newTestDB(t)

	err := db.SaveScan(context.Background(), makeScanRun("", time.Now()))
	assert.Error(t, err)
}

func makeBacktestRun(id string) domain.BacktestRun {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return domain.BacktestRun{
		ID: id,
		Pool: domain.PoolInfo{
			Address:    "0xc6962004f452be9203591991d15f6b388e09e8d0",
			Name:       "WETH/USDC 0.05%",
			BaseToken:  "WETH",
			QuoteToken: "USDC",
			ChainID:    "arbitrum",
			DexID:      "uniswap-v3",
		},
		Params: domain.BacktestParams{
			InvestmentUSD:            1000,
			SDMultiplier:             1.5,
			SimDays:                  30,
			LookbackDays:             7,
			FeeTier:                  0.0005,
			AutoRebalance:            true,
			SnapshotsPerDay:          3,
			RebalanceCost:            0.003,
			Band:                     domain.BacktestWidthBand,
			VolatilityPeriodsPerYear: 365,
		},
		Result: domain.BacktestResult{
			InitialLower: 2280,
			InitialUpper: 2520,
			InitialRange: domain.RangeConfig{WidthFraction: 0.05, SDMultiplier: 1.5, LookbackPeriods: 21},
			Metadata: domain.BacktestMetadata{
				InitialVolatility:   0.58,
				RebalanceCount:      1,
				InitialRangeWidth:   0.05,
				FinalRangeWidth:     0.06,
				RangeRecomputations: 2,
				FeeTier:             0.0005,
				PeriodsPerYear:      1095,
				WarmupSnapshots:     21,
			},
			Records: []domain.SimulationRecord{
				{
					Date: start, Price: 2400, RangeLower: 2280, RangeUpper: 2520, RangeWidth: 0.05,
					InRange: true, APRAnnualPct: 36.5, FeesThisPeriod: 0.333, FeesAccumulated: 0.333,
					PositionValueUSD: 1000, HodlValueUSD: 1000,
				},
				{
					Date: start.Add(8 * time.Hour), Price: 2600, RangeLower: 2444, RangeUpper: 2756, RangeWidth: 0.06,
					InRange: true, Rebalanced: true, APRAnnualPct: 30, FeesThisPeriod: 0.27, FeesAccumulated: 0.603,
					PositionValueUSD: 1012.4, HodlValueUSD: 1041.7,
				},
			},
		},
		StartedAt:  start.Add(time.Hour),
		FinishedAt: start.Add(time.Hour + 150*time.Millisecond),
	}
}

func TestSQLiteStorage_SaveAndGetBacktest(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	run := makeBacktestRun("bt-1")

	require.NoError(t, db.SaveBacktest(ctx, run))

	got, err := db.GetBacktest(ctx, "bt-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)
	assert.Equal(t, run.Summary(), got.Summary())
}

func TestSQLiteStorage_BacktestZeroDate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	run := makeBacktestRun("bt-zero")
	run.Result.Records[0].Date = time.Time{}

	require.NoError(t, db.SaveBacktest(ctx, run))

	got, err := db.GetBacktest(ctx, "bt-zero")
	require.NoError(t, err)
	assert.True(t, got.Result.Records[0].Date.IsZero())
}

func TestSQLiteStorage_GetBacktest_Unknown(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetBacktest(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNoData)
}
