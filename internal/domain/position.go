package domain

// LiquidityPosition es una posición de liquidez concentrada.
// Un rebalanceo la reemplaza entera: nunca se muta parcialmente.
type LiquidityPosition struct {
	Liquidity  float64 // L, >= 0
	Lower      float64
	Upper      float64
	EntryPrice float64
}

// OpenPosition dimensiona una posición con valueUSD al precio priceNative.
// quoteUSD es el precio USD del activo quote. Si el dimensionado degenera, L queda en 0.
func OpenPosition(valueUSD, priceNative, quoteUSD float64, r Range) LiquidityPosition {
	return LiquidityPosition{
		Liquidity:  LiquidityForValue(valueUSD, priceNative, quoteUSD, r.Lower, r.Upper),
		Lower:      r.Lower,
		Upper:      r.Upper,
		EntryPrice: priceNative,
	}
}

// InRange devuelve true si lower ≤ price ≤ upper.
func (p LiquidityPosition) InRange(price float64) bool {
	return price >= p.Lower && price <= p.Upper
}

// Amounts devuelve las cantidades de base y quote al precio dado.
func (p LiquidityPosition) Amounts(price float64) (base, quote float64) {
	return AmountsForLiquidity(p.Liquidity, price, p.Lower, p.Upper)
}

// ValueUSD valora la posición con los precios USD de ambos activos.
func (p LiquidityPosition) ValueUSD(priceNative, baseUSD, quoteUSD float64) float64 {
	base, quote := p.Amounts(priceNative)
	return PositionValue(base, quote, baseUSD, quoteUSD)
}

// Width devuelve el semiancho de la posición como fracción del precio de entrada.
func (p LiquidityPosition) Width() float64 {
	return SafeDiv(p.Upper-p.EntryPrice, p.EntryPrice)
}
