package backtest

// backtester.go: replay de una posición de liquidez concentrada sobre el historial de un pool.
//
// Fases:
//  1. Warm-up: los primeros lookbackDays·spd snapshots solo alimentan la volatilidad inicial.
//  2. Apertura: en el primer snapshot válido tras el warm-up se deriva el rango y se
//     dimensiona la posición. Las cantidades iniciales quedan fijas como benchmark HODL.
//  3. Pasos: rebalanceo opcional si sale de rango, valoración, fees, HODL, registro.
//  4. Fin: al agotar snapshots. No hay cierre forzado.

import (
	"fmt"

	"github.com/alejandrodnm/v3lab/internal/domain"
)

// DefaultParams devuelve los parámetros por defecto de una simulación.
func DefaultParams() domain.BacktestParams {
	return domain.BacktestParams{
		InvestmentUSD:            1000,
		SDMultiplier:             1.0,
		SimDays:                  30,
		LookbackDays:             7,
		FeeTier:                  0.003,
		SnapshotsPerDay:          3,
		RebalanceCost:            domain.DefaultRebalanceCost,
		Band:                     domain.BacktestWidthBand,
		VolatilityPeriodsPerYear: domain.DefaultPeriodsPerYear,
	}
}

// sample es un snapshot con los tres precios que necesita la valoración.
type sample struct {
	native   float64
	baseUSD  float64
	quoteUSD float64
}

// resolveSample exige priceUsd positivo; si falta el nativo se usa el USD (quote = 1 USD).
func resolveSample(s domain.PriceSnapshot) (sample, bool) {
	baseUSD, ok := s.BaseUSD()
	if !ok {
		return sample{}, false
	}
	native, ok := s.ResolvePrice()
	if !ok {
		return sample{}, false
	}
	return sample{native: native, baseUSD: baseUSD, quoteUSD: baseUSD / native}, true
}

// Run ejecuta la simulación sobre history (newest-first, tal como lo entrega el proveedor).
// Devuelve domain.ErrInsufficientHistory si no hay datos para el warm-up más un paso.
func Run(history []domain.PriceSnapshot, p domain.BacktestParams) (domain.BacktestResult, error) {
	p, err := normalize(p)
	if err != nil {
		return domain.BacktestResult{}, err
	}

	spd := p.SnapshotsPerDay
	total := (p.SimDays + p.LookbackDays) * spd
	if total > len(history) {
		total = len(history)
	}
	chrono := domain.Chronological(history[:total])

	warmup := p.LookbackDays * spd
	if len(chrono) < warmup+1 {
		return domain.BacktestResult{}, fmt.Errorf("backtest.Run: %d snapshots, need %d: %w",
			len(chrono), warmup+1, domain.ErrInsufficientHistory)
	}

	model := domain.NewRangeModel(p.Band)
	volAt := func(i int) float64 {
		start := max(0, i-warmup)
		prices := domain.ResolvedPrices(chrono[start:i])
		return domain.AnnualizedVolatilityWithFactor(prices, p.VolatilityPeriodsPerYear)
	}

	openIdx, open := -1, sample{}
	for i := warmup; i < len(chrono); i++ {
		if s, ok := resolveSample(chrono[i]); ok {
			openIdx, open = i, s
			break
		}
	}
	if openIdx < 0 {
		return domain.BacktestResult{}, fmt.Errorf("backtest.Run: no valid snapshot after warm-up: %w",
			domain.ErrInsufficientHistory)
	}

	initialVol := volAt(openIdx)
	rng := model.Derive(open.native, initialVol, p.LookbackDays, p.SDMultiplier)
	pos := domain.OpenPosition(p.InvestmentUSD, open.native, open.quoteUSD, rng)
	hodlBase, hodlQuote := pos.Amounts(open.native)

	feePeriods := p.PeriodsPerYearForFees()
	result := domain.BacktestResult{
		InitialLower: rng.Lower,
		InitialUpper: rng.Upper,
		InitialRange: model.Config(rng.Width, p.SDMultiplier, warmup),
		Records:      make([]domain.SimulationRecord, 0, len(chrono)-openIdx),
	}
	meta := domain.BacktestMetadata{
		InitialVolatility:   initialVol,
		InitialRangeWidth:   rng.Width,
		RangeRecomputations: 1,
		FeeTier:             p.FeeTier,
		PeriodsPerYear:      feePeriods,
		WarmupSnapshots:     warmup,
	}

	var feesAcc float64
	for i := openIdx; i < len(chrono); i++ {
		snap := chrono[i]
		s, ok := resolveSample(snap)
		if !ok {
			meta.SkippedSnapshots++
			continue
		}

		inRange := pos.InRange(s.native)
		rebalanced := false
		if p.AutoRebalance && !inRange {
			realized := pos.ValueUSD(s.native, s.baseUSD, s.quoteUSD) * (1 - p.RebalanceCost)
			rng = model.Derive(s.native, volAt(i), p.LookbackDays, p.SDMultiplier)
			pos = domain.OpenPosition(realized, s.native, s.quoteUSD, rng)

			meta.RebalanceCount++
			meta.RangeRecomputations++
			inRange = true
			rebalanced = true
		}

		value := pos.ValueUSD(s.native, s.baseUSD, s.quoteUSD)

		var aprPct, fees float64
		if snap.APRAnnualPct != nil {
			aprPct = *snap.APRAnnualPct
		}
		if apr, ok := snap.APRFraction(); inRange && ok && apr > 0 {
			fees = value * apr / feePeriods
			feesAcc += fees
		}

		result.Records = append(result.Records, domain.SimulationRecord{
			Date:             snap.Timestamp,
			Price:            s.native,
			RangeLower:       rng.Lower,
			RangeUpper:       rng.Upper,
			RangeWidth:       rng.Width,
			InRange:          inRange,
			Rebalanced:       rebalanced,
			APRAnnualPct:     aprPct,
			FeesThisPeriod:   fees,
			FeesAccumulated:  feesAcc,
			PositionValueUSD: value,
			HodlValueUSD:     domain.PositionValue(hodlBase, hodlQuote, s.baseUSD, s.quoteUSD),
		})
	}

	meta.FinalRangeWidth = rng.Width
	result.Metadata = meta
	return result, nil
}

// normalize valida los parámetros y completa los opcionales con defaults.
func normalize(p domain.BacktestParams) (domain.BacktestParams, error) {
	switch {
	case p.InvestmentUSD <= 0:
		return p, fmt.Errorf("backtest.Run: investment %.2f: %w", p.InvestmentUSD, domain.ErrInvalidParams)
	case p.SDMultiplier <= 0:
		return p, fmt.Errorf("backtest.Run: sd multiplier %.2f: %w", p.SDMultiplier, domain.ErrInvalidParams)
	case p.SimDays <= 0:
		return p, fmt.Errorf("backtest.Run: sim days %d: %w", p.SimDays, domain.ErrInvalidParams)
	case p.LookbackDays < 0:
		return p, fmt.Errorf("backtest.Run: lookback days %d: %w", p.LookbackDays, domain.ErrInvalidParams)
	}

	if p.SnapshotsPerDay <= 0 {
		p.SnapshotsPerDay = 3
	}
	if !p.Band.Valid() {
		p.Band = domain.BacktestWidthBand
	}
	if p.VolatilityPeriodsPerYear <= 0 {
		p.VolatilityPeriodsPerYear = domain.DefaultPeriodsPerYear
	}
	p.RebalanceCost = domain.ClampRebalanceCost(p.RebalanceCost)
	return p, nil
}
