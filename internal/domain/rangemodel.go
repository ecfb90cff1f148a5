package domain

import "math"

// Range es un rango de precios simétrico alrededor de un centro.
type Range struct {
	Lower float64
	Upper float64
	Width float64 // semiancho como fracción del centro (0.08 = ±8%)
}

// Contains devuelve true si lower ≤ price ≤ upper.
func (r Range) Contains(price float64) bool {
	return price >= r.Lower && price <= r.Upper
}

// RangeConfig describe cómo se construye un rango a partir de la volatilidad.
type RangeConfig struct {
	WidthFraction   float64
	SDMultiplier    float64
	LookbackPeriods int
}

// RangeModel traduce una volatilidad anual en un rango operable.
// Band decide los límites de seguridad del ancho; el scanner y el backtester usan bandas distintas.
type RangeModel struct {
	Band WidthBand
}

// NewRangeModel crea un modelo con la banda dada. Una banda inválida usa ScannerWidthBand.
func NewRangeModel(band WidthBand) RangeModel {
	if !band.Valid() {
		band = ScannerWidthBand
	}
	return RangeModel{Band: band}
}

// Width escala la volatilidad al horizonte y aplica el multiplicador:
//
//	width = clamp(vol · √(lookbackDays/365) · sd)
func (m RangeModel) Width(volAnnual float64, lookbackDays int, sdMultiplier float64) float64 {
	days := math.Max(float64(lookbackDays), 0)
	raw := volAnnual * math.Sqrt(days/365.0) * sdMultiplier
	return m.Band.Clamp(raw)
}

// Derive devuelve el rango simétrico alrededor de center.
func (m RangeModel) Derive(center, volAnnual float64, lookbackDays int, sdMultiplier float64) Range {
	w := m.Width(volAnnual, lookbackDays, sdMultiplier)
	lower, upper := RangeBounds(center, w)
	return Range{Lower: lower, Upper: upper, Width: w}
}

// Config devuelve la RangeConfig equivalente para un ancho ya derivado.
func (m RangeModel) Config(width float64, sdMultiplier float64, lookbackPeriods int) RangeConfig {
	return RangeConfig{
		WidthFraction:   m.Band.Clamp(width),
		SDMultiplier:    sdMultiplier,
		LookbackPeriods: lookbackPeriods,
	}
}

// ProbabilityInRange devuelve erf(sd/√2): la masa de una normal estándar dentro de ±sd.
// Es una aproximación de primer orden; sirve para rankear, no para P&L exacto.
func ProbabilityInRange(sdMultiplier float64) float64 {
	if sdMultiplier <= 0 {
		return 0
	}
	return ClampProbability(math.Erf(sdMultiplier / math.Sqrt2))
}
