package domain

import "math"

// LiquidityForAmount calcula L para un presupuesto en USD, con el quote valorado a 1 USD.
//
// Fórmula (coste de una unidad de liquidez):
//
//	costPerUnitL = (1/√P − 1/√Pmax)·P + (√P − √Pmin)
//	L            = amountUSD / costPerUnitL
//
// Devuelve 0 si price está fuera de [priceMin, priceMax] o el coste unitario es 0.
func LiquidityForAmount(amountUSD, price, priceMin, priceMax float64) float64 {
	return LiquidityForValue(amountUSD, price, 1.0, priceMin, priceMax)
}

// LiquidityForValue es LiquidityForAmount con el quote valorado a quoteUSD.
// priceNative es el precio del base en quote; el base vale priceNative·quoteUSD.
func LiquidityForValue(amountUSD, priceNative, quoteUSD, priceMin, priceMax float64) float64 {
	if amountUSD <= 0 || quoteUSD <= 0 || !validRange(priceMin, priceMax) {
		return 0
	}
	if priceNative < priceMin || priceNative > priceMax {
		return 0
	}

	sqrtP := math.Sqrt(priceNative)
	sqrtA := math.Sqrt(priceMin)
	sqrtB := math.Sqrt(priceMax)

	baseUnit := 1/sqrtP - 1/sqrtB
	quoteUnit := sqrtP - sqrtA

	costUnitUSD := (baseUnit*priceNative + quoteUnit) * quoteUSD
	if costUnitUSD <= 0 {
		return 0
	}
	return amountUSD / costUnitUSD
}

// AmountsForLiquidity devuelve las cantidades de base y quote de una posición.
//   - price <= priceMin: 100% base
//   - price >= priceMax: 100% quote
//   - dentro: mezcla según √P
//
// Es una función pura: se usa tanto para valorar antes de un rebalanceo como
// para dimensionar la posición nueva.
func AmountsForLiquidity(liquidity, price, priceMin, priceMax float64) (base, quote float64) {
	if liquidity <= 0 || price <= 0 || !validRange(priceMin, priceMax) {
		return 0, 0
	}

	sqrtP := math.Sqrt(price)
	sqrtA := math.Sqrt(priceMin)
	sqrtB := math.Sqrt(priceMax)

	switch {
	case sqrtP <= sqrtA:
		base = liquidity * (sqrtB - sqrtA) / (sqrtA * sqrtB)
	case sqrtP >= sqrtB:
		quote = liquidity * (sqrtB - sqrtA)
	default:
		base = liquidity * (sqrtB - sqrtP) / (sqrtP * sqrtB)
		quote = liquidity * (sqrtP - sqrtA)
	}
	return base, quote
}

// PositionValue valora cantidades de base y quote en USD.
func PositionValue(base, quote, baseUSD, quoteUSD float64) float64 {
	return base*baseUSD + quote*quoteUSD
}

// WorstCaseILAtBound devuelve el peor IL de un solo lado para un rango ±width.
//
// Simula una posición normalizada (entrada 1.0, $1000) y compara, en cada límite,
// el valor en el pool contra mantener los tokens iniciales. Devuelve la mayor
// pérdida como fracción positiva (0.05 = 5%).
func WorstCaseILAtBound(width float64) float64 {
	const (
		entry      = 1.0
		investment = 1000.0
	)

	w := math.Max(width, ILWidthFloor)
	pMin, pMax := RangeBounds(entry, w)

	l := LiquidityForAmount(investment, entry, pMin, pMax)
	if l == 0 {
		return 0
	}
	x0, y0 := AmountsForLiquidity(l, entry, pMin, pMax)

	ilAt := func(p float64) float64 {
		hold := x0*p + y0
		if hold <= 0 {
			return 0
		}
		x, y := AmountsForLiquidity(l, p, pMin, pMax)
		pool := x*p + y
		return math.Abs((pool - hold) / hold)
	}

	return math.Max(ilAt(pMin), ilAt(pMax))
}

// ConcentrationMultiplier devuelve cuánto más eficiente es el capital en un rango
// ±width frente a rango completo. Acotado a MaxConcentration.
func ConcentrationMultiplier(width float64) float64 {
	w := math.Max(width, ILWidthFloor)
	if w >= 1 {
		return 1
	}
	ratio := (1 - w) / (1 + w)
	m := 1 / (1 - math.Sqrt(ratio))
	return math.Min(m, MaxConcentration)
}

// ILRiskCost es la aproximación de primer orden del coste de IL por varianza: σ²/2.
func ILRiskCost(volAnnual float64) float64 {
	return volAnnual * volAnnual / 2
}

func validRange(priceMin, priceMax float64) bool {
	return priceMin > 0 && priceMax > priceMin
}
