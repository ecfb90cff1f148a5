package scanner

import (
	"fmt"

	"github.com/alejandrodnm/v3lab/internal/domain"
)

// minVolatilityDays es la ventana mínima de volatilidad, aunque el horizonte sea más corto.
const minVolatilityDays = 30

// AnalyzerConfig contiene la cadencia del feed y los límites del modelo de rango.
type AnalyzerConfig struct {
	SnapshotsPerDay          int
	VolatilityPeriodsPerYear float64
	Band                     domain.WidthBand
}

// DefaultAnalyzerConfig devuelve snapshots de 8h, anualización √365 y la banda del scanner.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		SnapshotsPerDay:          3,
		VolatilityPeriodsPerYear: domain.DefaultPeriodsPerYear,
		Band:                     domain.ScannerWidthBand,
	}
}

// Analyzer calcula las métricas de riesgo/retorno de un pool a partir de su historial.
// No tiene estado: es seguro usarlo desde varios goroutines.
type Analyzer struct {
	cfg   AnalyzerConfig
	model domain.RangeModel
}

// NewAnalyzer crea un Analyzer. Valores no positivos usan los defaults.
func NewAnalyzer(cfg AnalyzerConfig) *Analyzer {
	def := DefaultAnalyzerConfig()
	if cfg.SnapshotsPerDay <= 0 {
		cfg.SnapshotsPerDay = def.SnapshotsPerDay
	}
	if cfg.VolatilityPeriodsPerYear <= 0 {
		cfg.VolatilityPeriodsPerYear = def.VolatilityPeriodsPerYear
	}
	if !cfg.Band.Valid() {
		cfg.Band = def.Band
	}
	return &Analyzer{cfg: cfg, model: domain.NewRangeModel(cfg.Band)}
}

// MinSnapshots devuelve cuántos snapshots con precio exige un pool: 2× la ventana de análisis.
func (a *Analyzer) MinSnapshots(lookbackDays int) int {
	return 2 * lookbackDays * a.cfg.SnapshotsPerDay
}

// Evaluate calcula la fila del ranking para un pool.
//
//	width     = clamp(vol · √(días/365) · sd)
//	probable  = apr · días/365 · erf(sd/√2)
//	ratio     = probable / max(IL, ε)
//
// Devuelve domain.ErrInsufficientHistory si el pool tiene menos de MinSnapshots precios válidos.
func (a *Analyzer) Evaluate(hist domain.PoolHistory, lookbackDays int, sdMultiplier float64) (domain.PoolScanResult, error) {
	if lookbackDays <= 0 || sdMultiplier <= 0 {
		return domain.PoolScanResult{}, fmt.Errorf("scanner.Evaluate: lookback %d sd %.2f: %w",
			lookbackDays, sdMultiplier, domain.ErrInvalidParams)
	}

	snaps := hist.Snapshots
	valid := len(domain.ResolvedPrices(snaps))
	if need := a.MinSnapshots(lookbackDays); valid < need {
		return domain.PoolScanResult{}, fmt.Errorf("scanner.Evaluate: %s has %d priced snapshots, need %d: %w",
			hist.Pool.Address, valid, need, domain.ErrInsufficientHistory)
	}

	spd := a.cfg.SnapshotsPerDay
	volWindow := newest(snaps, max(lookbackDays, minVolatilityDays)*spd)
	prices := domain.ResolvedPrices(domain.Chronological(volWindow))
	vol := domain.AnnualizedVolatilityWithFactor(prices, a.cfg.VolatilityPeriodsPerYear)

	apr := meanAPR(newest(snaps, lookbackDays*spd))

	width := a.model.Width(vol, lookbackDays, sdMultiplier)
	prob := domain.ProbabilityInRange(sdMultiplier)
	horizon := float64(lookbackDays) / 365.0
	probable := apr * horizon * prob
	il := domain.WorstCaseILAtBound(width)

	return domain.PoolScanResult{
		Address:             hist.Pool.Address,
		Pair:                domain.PairName(hist.Pool),
		Chain:               domain.ChainLabel(hist.Pool.ChainID),
		Dex:                 domain.DexLabel(hist.Pool.DexID),
		FeeTier:             hist.Pool.FeeTier,
		TVLUSD:              resolveTVL(hist),
		APRAnnual:           apr,
		VolatilityAnnual:    vol,
		EstRangeWidth:       width,
		ProbabilityInRange:  prob,
		EstProbableFeeYield: probable,
		EstWorstCaseIL:      il,
		FeeToILRatio:        probable / domain.SafeRisk(il),
		Margin:              probable - il,
		Snapshots:           len(snaps),
	}, nil
}

// newest devuelve los primeros n snapshots (el feed es newest-first).
func newest(snaps []domain.PriceSnapshot, n int) []domain.PriceSnapshot {
	if n > len(snaps) {
		n = len(snaps)
	}
	return snaps[:n]
}

// meanAPR devuelve la media del APR presente en la ventana, como fracción.
// Los snapshots sin APR no cuentan; un APR de 0 sí.
func meanAPR(snaps []domain.PriceSnapshot) float64 {
	var sum float64
	var n int
	for _, s := range snaps {
		if apr, ok := s.APRFraction(); ok {
			sum += apr
			n++
		}
	}
	return domain.SafeDiv(sum, float64(n))
}

// resolveTVL usa el TVL del pool o, si es 0, el primer TVL positivo de los snapshots.
func resolveTVL(hist domain.PoolHistory) float64 {
	if hist.Pool.LiquidityUSD > 0 {
		return hist.Pool.LiquidityUSD
	}
	for _, s := range hist.Snapshots {
		if s.LiquidityUSD != nil && *s.LiquidityUSD > 0 {
			return *s.LiquidityUSD
		}
	}
	return 0
}
