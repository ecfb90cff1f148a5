package domain

import "time"

// SimulationRecord es una fila del backtest: un snapshot replayeado.
type SimulationRecord struct {
	Date       time.Time
	Price      float64 // precio nativo del base
	RangeLower float64
	RangeUpper float64
	RangeWidth float64 // semiancho vigente en este paso
	InRange    bool
	Rebalanced bool

	APRAnnualPct    float64 // APR del snapshot (0 si faltaba)
	FeesThisPeriod  float64
	FeesAccumulated float64

	PositionValueUSD float64
	HodlValueUSD     float64
}

// TotalValueUSD es el valor de la posición más las fees acumuladas (no reinvertidas).
func (r SimulationRecord) TotalValueUSD() float64 {
	return r.PositionValueUSD + r.FeesAccumulated
}

// BacktestSummary resume el resultado de un backtest.
type BacktestSummary struct {
	Periods        int
	InvestmentUSD  float64
	FinalValueUSD  float64 // posición + fees
	HodlValueUSD   float64
	TotalFeesUSD   float64
	ROI            float64 // (final − inversión) / inversión
	HodlROI        float64
	VsHodl         float64 // final − hodl, en USD
	TimeInRange    float64 // fracción de periodos en rango
	RebalanceCount int
}

// Summarize calcula el resumen de una traza. Sin registros devuelve el resumen vacío.
func Summarize(records []SimulationRecord, investmentUSD float64, rebalances int) BacktestSummary {
	s := BacktestSummary{
		Periods:        len(records),
		InvestmentUSD:  investmentUSD,
		RebalanceCount: rebalances,
	}
	if len(records) == 0 {
		return s
	}

	last := records[len(records)-1]
	s.FinalValueUSD = last.TotalValueUSD()
	s.HodlValueUSD = last.HodlValueUSD
	s.TotalFeesUSD = last.FeesAccumulated
	s.ROI = SafeDiv(s.FinalValueUSD-investmentUSD, investmentUSD)
	s.HodlROI = SafeDiv(s.HodlValueUSD-investmentUSD, investmentUSD)
	s.VsHodl = s.FinalValueUSD - s.HodlValueUSD

	inRange := 0
	for _, r := range records {
		if r.InRange {
			inRange++
		}
	}
	s.TimeInRange = float64(inRange) / float64(len(records))
	return s
}

// BacktestParams son los parámetros de una simulación.
type BacktestParams struct {
	InvestmentUSD   float64
	SDMultiplier    float64
	SimDays         int
	LookbackDays    int
	FeeTier         float64 // fracción (0.003); solo informativo
	AutoRebalance   bool
	SnapshotsPerDay int     // cadencia del feed: 3 = snapshots de 8h
	RebalanceCost   float64 // haircut plano por rebalanceo
	Band            WidthBand

	VolatilityPeriodsPerYear float64 // factor de anualización de la volatilidad (365 por defecto)
}

// PeriodsPerYearForFees devuelve los periodos por año implícitos en la cadencia (3·365 = 1095).
func (p BacktestParams) PeriodsPerYearForFees() float64 {
	return float64(p.SnapshotsPerDay) * 365
}

// BacktestMetadata resume las decisiones tomadas durante la simulación.
type BacktestMetadata struct {
	InitialVolatility   float64
	RebalanceCount      int
	InitialRangeWidth   float64
	FinalRangeWidth     float64
	RangeRecomputations int // derivaciones de rango: la apertura más cada rebalanceo
	FeeTier             float64
	PeriodsPerYear      float64 // periodos usados para convertir APR en yield por periodo
	WarmupSnapshots     int
	SkippedSnapshots    int
}

// BacktestResult es la salida de una simulación.
type BacktestResult struct {
	Records      []SimulationRecord
	InitialLower float64
	InitialUpper float64
	InitialRange RangeConfig
	Metadata     BacktestMetadata
}

// Summary resume la traza con la inversión dada.
func (r BacktestResult) Summary(investmentUSD float64) BacktestSummary {
	return Summarize(r.Records, investmentUSD, r.Metadata.RebalanceCount)
}

// BacktestRun es el value object de una invocación del backtester.
type BacktestRun struct {
	ID         string
	Pool       PoolInfo
	Params     BacktestParams
	Result     BacktestResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// Summary resume el run con su propia inversión.
func (r BacktestRun) Summary() BacktestSummary {
	return r.Result.Summary(r.Params.InvestmentUSD)
}

// Duration devuelve cuánto tardó el run.
func (r BacktestRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
