package storage

// sqlite.go: histórico de scans y backtests.
//
// Estrategia:
//   - `scan_runs`: una fila por scan con sus filtros y conteos.
//   - `pool_results`: las filas del ranking de cada scan, con su posición.
//   - `backtest_runs` + `backtest_records`: parámetros, metadata y traza completa.
//   - Los instantes se guardan como unix ms (INTEGER): comparables y sin ambigüedad de zona.
//   - Prune automático al arrancar: scans de más de 30 días. Los backtests se conservan.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/v3lab/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS scan_runs (
    id            TEXT PRIMARY KEY,
    started_at    INTEGER NOT NULL,
    finished_at   INTEGER NOT NULL,
    chains        TEXT    NOT NULL DEFAULT '',
    assets        TEXT    NOT NULL DEFAULT '',
    min_tvl_usd   REAL    NOT NULL DEFAULT 0,
    lookback_days INTEGER NOT NULL DEFAULT 0,
    sd_multiplier REAL    NOT NULL DEFAULT 0,
    min_apr_pct   REAL    NOT NULL DEFAULT 0,
    candidates    INTEGER NOT NULL DEFAULT 0,
    skipped       INTEGER NOT NULL DEFAULT 0,
    results       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS pool_results (
    scan_id           TEXT    NOT NULL,
    position          INTEGER NOT NULL,
    address           TEXT    NOT NULL,
    pair              TEXT    NOT NULL DEFAULT '',
    chain             TEXT    NOT NULL DEFAULT '',
    dex               TEXT    NOT NULL DEFAULT '',
    fee_tier          REAL    NOT NULL DEFAULT 0,
    tvl_usd           REAL    NOT NULL DEFAULT 0,
    apr_annual        REAL    NOT NULL DEFAULT 0,
    volatility_annual REAL    NOT NULL DEFAULT 0,
    range_width       REAL    NOT NULL DEFAULT 0,
    prob_in_range     REAL    NOT NULL DEFAULT 0,
    probable_yield    REAL    NOT NULL DEFAULT 0,
    worst_case_il     REAL    NOT NULL DEFAULT 0,
    fee_to_il_ratio   REAL    NOT NULL DEFAULT 0,
    margin            REAL    NOT NULL DEFAULT 0,
    snapshots         INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (scan_id, address)
);

CREATE TABLE IF NOT EXISTS backtest_runs (
    id                   TEXT PRIMARY KEY,
    pool_address         TEXT    NOT NULL,
    pool_name            TEXT    NOT NULL DEFAULT '',
    base_token           TEXT    NOT NULL DEFAULT '',
    quote_token          TEXT    NOT NULL DEFAULT '',
    chain                TEXT    NOT NULL DEFAULT '',
    dex                  TEXT    NOT NULL DEFAULT '',
    started_at           INTEGER NOT NULL,
    finished_at          INTEGER NOT NULL,
    investment_usd       REAL    NOT NULL,
    sd_multiplier        REAL    NOT NULL,
    sim_days             INTEGER NOT NULL,
    lookback_days        INTEGER NOT NULL,
    fee_tier             REAL    NOT NULL DEFAULT 0,
    auto_rebalance       INTEGER NOT NULL DEFAULT 0,
    snapshots_per_day    INTEGER NOT NULL,
    rebalance_cost       REAL    NOT NULL DEFAULT 0,
    band_min             REAL    NOT NULL DEFAULT 0,
    band_max             REAL    NOT NULL DEFAULT 0,
    vol_periods_per_year REAL    NOT NULL DEFAULT 0,
    initial_lower        REAL    NOT NULL DEFAULT 0,
    initial_upper        REAL    NOT NULL DEFAULT 0,
    initial_width        REAL    NOT NULL DEFAULT 0,
    lookback_periods     INTEGER NOT NULL DEFAULT 0,
    initial_volatility   REAL    NOT NULL DEFAULT 0,
    rebalance_count      INTEGER NOT NULL DEFAULT 0,
    final_width          REAL    NOT NULL DEFAULT 0,
    recomputations       INTEGER NOT NULL DEFAULT 0,
    fee_periods_per_year REAL    NOT NULL DEFAULT 0,
    warmup_snapshots     INTEGER NOT NULL DEFAULT 0,
    skipped_snapshots    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS backtest_records (
    backtest_id        TEXT    NOT NULL,
    seq                INTEGER NOT NULL,
    date               INTEGER,
    price              REAL    NOT NULL,
    range_lower        REAL    NOT NULL,
    range_upper        REAL    NOT NULL,
    range_width        REAL    NOT NULL,
    in_range           INTEGER NOT NULL,
    rebalanced         INTEGER NOT NULL,
    apr_annual_pct     REAL    NOT NULL DEFAULT 0,
    fees_period        REAL    NOT NULL DEFAULT 0,
    fees_accumulated   REAL    NOT NULL DEFAULT 0,
    position_value_usd REAL    NOT NULL DEFAULT 0,
    hodl_value_usd     REAL    NOT NULL DEFAULT 0,
    PRIMARY KEY (backtest_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_scan_runs_at     ON scan_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_pool_results_adr ON pool_results(address);
CREATE INDEX IF NOT EXISTS idx_backtests_pool   ON backtest_runs(pool_address);
`

const retentionScans = 30 * 24 * time.Hour

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia scans antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveScan persiste el resumen del scan y sus filas de ranking en una transacción.
func (s *SQLiteStorage) SaveScan(ctx context.Context, run domain.ScanRun) error {
	if run.ID == "" {
		return fmt.Errorf("storage.SaveScan: empty run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveScan: begin tx: %w", err)
	}
	defer tx.Rollback()

	p := run.Params
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO scan_runs
			(id, started_at, finished_at, chains, assets, min_tvl_usd, lookback_days,
			 sd_multiplier, min_apr_pct, candidates, skipped, results)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		joinList(p.Chains), joinList(p.Assets), p.MinTVLUSD, p.LookbackDays,
		p.SDMultiplier, p.MinAPRPct, run.Candidates, run.Skipped, len(run.Results),
	); err != nil {
		return fmt.Errorf("storage.SaveScan: insert run %s: %w", run.ID, err)
	}

	if len(run.Results) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO pool_results
				(scan_id, position, address, pair, chain, dex, fee_tier, tvl_usd, apr_annual,
				 volatility_annual, range_width, prob_in_range, probable_yield,
				 worst_case_il, fee_to_il_ratio, margin, snapshots)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(scan_id, address) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("storage.SaveScan: prepare: %w", err)
		}
		defer stmt.Close()

		for i, r := range run.Results {
			if _, err := stmt.ExecContext(ctx,
				run.ID, i+1, r.Address, r.Pair, r.Chain, r.Dex, r.FeeTier, r.TVLUSD,
				r.APRAnnual, r.VolatilityAnnual, r.EstRangeWidth, r.ProbabilityInRange,
				r.EstProbableFeeYield, r.EstWorstCaseIL, r.FeeToILRatio, r.Margin, r.Snapshots,
			); err != nil {
				return fmt.Errorf("storage.SaveScan: insert result %s: %w", r.Address, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveScan: commit: %w", err)
	}
	return nil
}

// GetScanHistory devuelve las filas de los scans iniciados en [from, to].
// Ordenadas por ratio fees/IL desc, desempate por address.
func (s *SQLiteStorage) GetScanHistory(ctx context.Context, from, to time.Time) ([]domain.PoolScanResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.address, r.pair, r.chain, r.dex, r.fee_tier, r.tvl_usd, r.apr_annual,
		       r.volatility_annual, r.range_width, r.prob_in_range, r.probable_yield,
		       r.worst_case_il, r.fee_to_il_ratio, r.margin, r.snapshots
		FROM pool_results r
		JOIN scan_runs s ON s.id = r.scan_id
		WHERE s.started_at BETWEEN ? AND ?
		ORDER BY r.fee_to_il_ratio DESC, r.address ASC
	`, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("storage.GetScanHistory: query: %w", err)
	}
	defer rows.Close()

	var results []domain.PoolScanResult
	for rows.Next() {
		var r domain.PoolScanResult
		if err := rows.Scan(
			&r.Address, &r.Pair, &r.Chain, &r.Dex, &r.FeeTier, &r.TVLUSD, &r.APRAnnual,
			&r.VolatilityAnnual, &r.EstRangeWidth, &r.ProbabilityInRange, &r.EstProbableFeeYield,
			&r.EstWorstCaseIL, &r.FeeToILRatio, &r.Margin, &r.Snapshots,
		); err != nil {
			return nil, fmt.Errorf("storage.GetScanHistory: scan row: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// SaveBacktest persiste los parámetros, la metadata y la traza de un backtest.
func (s *SQLiteStorage) SaveBacktest(ctx context.Context, run domain.BacktestRun) error {
	if run.ID == "" {
		return fmt.Errorf("storage.SaveBacktest: empty run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveBacktest: begin tx: %w", err)
	}
	defer tx.Rollback()

	p, res, m := run.Params, run.Result, run.Result.Metadata
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO backtest_runs
			(id, pool_address, pool_name, base_token, quote_token, chain, dex,
			 started_at, finished_at, investment_usd, sd_multiplier, sim_days, lookback_days,
			 fee_tier, auto_rebalance, snapshots_per_day, rebalance_cost, band_min, band_max,
			 vol_periods_per_year, initial_lower, initial_upper, initial_width, lookback_periods,
			 initial_volatility, rebalance_count, final_width, recomputations,
			 fee_periods_per_year, warmup_snapshots, skipped_snapshots)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Pool.Address, run.Pool.Name, run.Pool.BaseToken, run.Pool.QuoteToken,
		run.Pool.ChainID, run.Pool.DexID,
		run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		p.InvestmentUSD, p.SDMultiplier, p.SimDays, p.LookbackDays,
		p.FeeTier, boolInt(p.AutoRebalance), p.SnapshotsPerDay, p.RebalanceCost,
		p.Band.Min, p.Band.Max, p.VolatilityPeriodsPerYear,
		res.InitialLower, res.InitialUpper, res.InitialRange.WidthFraction, res.InitialRange.LookbackPeriods,
		m.InitialVolatility, m.RebalanceCount, m.FinalRangeWidth, m.RangeRecomputations,
		m.PeriodsPerYear, m.WarmupSnapshots, m.SkippedSnapshots,
	); err != nil {
		return fmt.Errorf("storage.SaveBacktest: insert run %s: %w", run.ID, err)
	}

	if len(res.Records) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO backtest_records
				(backtest_id, seq, date, price, range_lower, range_upper, range_width,
				 in_range, rebalanced, apr_annual_pct, fees_period, fees_accumulated,
				 position_value_usd, hodl_value_usd)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("storage.SaveBacktest: prepare: %w", err)
		}
		defer stmt.Close()

		for i, r := range res.Records {
			if _, err := stmt.ExecContext(ctx,
				run.ID, i, toMillis(r.Date), r.Price, r.RangeLower, r.RangeUpper, r.RangeWidth,
				boolInt(r.InRange), boolInt(r.Rebalanced), r.APRAnnualPct, r.FeesThisPeriod,
				r.FeesAccumulated, r.PositionValueUSD, r.HodlValueUSD,
			); err != nil {
				return fmt.Errorf("storage.SaveBacktest: insert record %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveBacktest: commit: %w", err)
	}
	return nil
}

// GetBacktest recupera un backtest con su traza. Un ID desconocido devuelve domain.ErrNoData.
func (s *SQLiteStorage) GetBacktest(ctx context.Context, id string) (domain.BacktestRun, error) {
	var (
		run               domain.BacktestRun
		started, finished sql.NullInt64
		autoRebalance     int
	)
	p, res, m := &run.Params, &run.Result, &run.Result.Metadata
	err := s.db.QueryRowContext(ctx, `
		SELECT id, pool_address, pool_name, base_token, quote_token, chain, dex,
		       started_at, finished_at, investment_usd, sd_multiplier, sim_days, lookback_days,
		       fee_tier, auto_rebalance, snapshots_per_day, rebalance_cost, band_min, band_max,
		       vol_periods_per_year, initial_lower, initial_upper, initial_width, lookback_periods,
		       initial_volatility, rebalance_count, final_width, recomputations,
		       fee_periods_per_year, warmup_snapshots, skipped_snapshots
		FROM backtest_runs WHERE id = ?`, id,
	).Scan(
		&run.ID, &run.Pool.Address, &run.Pool.Name, &run.Pool.BaseToken, &run.Pool.QuoteToken,
		&run.Pool.ChainID, &run.Pool.DexID,
		&started, &finished, &p.InvestmentUSD, &p.SDMultiplier, &p.SimDays, &p.LookbackDays,
		&p.FeeTier, &autoRebalance, &p.SnapshotsPerDay, &p.RebalanceCost, &p.Band.Min, &p.Band.Max,
		&p.VolatilityPeriodsPerYear, &res.InitialLower, &res.InitialUpper,
		&res.InitialRange.WidthFraction, &res.InitialRange.LookbackPeriods,
		&m.InitialVolatility, &m.RebalanceCount, &m.FinalRangeWidth, &m.RangeRecomputations,
		&m.PeriodsPerYear, &m.WarmupSnapshots, &m.SkippedSnapshots,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BacktestRun{}, fmt.Errorf("storage.GetBacktest: %s: %w", id, domain.ErrNoData)
	}
	if err != nil {
		return domain.BacktestRun{}, fmt.Errorf("storage.GetBacktest: query run: %w", err)
	}
	run.StartedAt = fromMillis(started)
	run.FinishedAt = fromMillis(finished)
	p.AutoRebalance = autoRebalance == 1
	res.InitialRange.SDMultiplier = p.SDMultiplier
	m.InitialRangeWidth = res.InitialRange.WidthFraction
	m.FeeTier = p.FeeTier

	records, err := s.backtestRecords(ctx, id)
	if err != nil {
		return domain.BacktestRun{}, err
	}
	res.Records = records
	return run, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func (s *SQLiteStorage) backtestRecords(ctx context.Context, id string) ([]domain.SimulationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, price, range_lower, range_upper, range_width, in_range, rebalanced,
		       apr_annual_pct, fees_period, fees_accumulated, position_value_usd, hodl_value_usd
		FROM backtest_records
		WHERE backtest_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("storage.GetBacktest: query records: %w", err)
	}
	defer rows.Close()

	var records []domain.SimulationRecord
	for rows.Next() {
		var (
			r                   domain.SimulationRecord
			date                sql.NullInt64
			inRange, rebalanced int
		)
		if err := rows.Scan(
			&date, &r.Price, &r.RangeLower, &r.RangeUpper, &r.RangeWidth, &inRange, &rebalanced,
			&r.APRAnnualPct, &r.FeesThisPeriod, &r.FeesAccumulated, &r.PositionValueUSD, &r.HodlValueUSD,
		); err != nil {
			return nil, fmt.Errorf("storage.GetBacktest: scan record: %w", err)
		}
		r.Date = fromMillis(date)
		r.InRange = inRange == 1
		r.Rebalanced = rebalanced == 1
		records = append(records, r)
	}
	return records, rows.Err()
}

// pruneOld elimina scans antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().Add(-retentionScans).UnixMilli()
	s.db.ExecContext(ctx, `DELETE FROM pool_results WHERE scan_id IN (SELECT id FROM scan_runs WHERE started_at < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM scan_runs WHERE started_at < ?`, cutoff)
}

// toMillis convierte un instante a unix ms. El instante cero se guarda como NULL.
func toMillis(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

func fromMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64).UTC()
}

func joinList(items []string) string {
	return strings.Join(items, ",")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
