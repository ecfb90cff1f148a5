package domain

import (
	"strings"
	"time"
)

// PriceSnapshot es una observación del pool. Los campos numéricos son opcionales:
// el feed del índice omite o anula cualquiera de ellos sin aviso.
type PriceSnapshot struct {
	Timestamp    time.Time
	PriceNative  *float64 // precio del activo base en el quote
	PriceUSD     *float64 // precio del activo base en USD
	APRAnnualPct *float64 // APR instantáneo en porcentaje (42.5 = 42.5%/año)
	LiquidityUSD *float64 // TVL del pool en ese momento
}

// ResolvePrice devuelve el precio nativo, o el USD si el nativo falta.
// Solo devuelve precios positivos: un cero o un negativo es una muestra inválida.
func (s PriceSnapshot) ResolvePrice() (float64, bool) {
	if s.PriceNative != nil && *s.PriceNative > 0 {
		return *s.PriceNative, true
	}
	if s.PriceUSD != nil && *s.PriceUSD > 0 {
		return *s.PriceUSD, true
	}
	return 0, false
}

// BaseUSD devuelve el precio USD del activo base si es positivo.
func (s PriceSnapshot) BaseUSD() (float64, bool) {
	if s.PriceUSD != nil && *s.PriceUSD > 0 {
		return *s.PriceUSD, true
	}
	return 0, false
}

// APRFraction devuelve el APR como fracción (0.425) si está presente.
func (s PriceSnapshot) APRFraction() (float64, bool) {
	if s.APRAnnualPct == nil {
		return 0, false
	}
	return *s.APRAnnualPct / 100.0, true
}

// PoolInfo es la metadata de un pool tal como la publica el índice.
type PoolInfo struct {
	Address      string
	Name         string
	BaseToken    string
	QuoteToken   string
	ChainID      string
	DexID        string
	FeeTier      float64 // centésimas de bip: 3000 = 0.3%
	LiquidityUSD float64
	VolumeUSD    float64
}

// MatchesAsset devuelve true si el base o el quote contienen alguno de los tickers.
// Sin tickers, todo pool coincide.
func (p PoolInfo) MatchesAsset(tickers []string) bool {
	if len(tickers) == 0 {
		return true
	}
	base := strings.ToUpper(p.BaseToken)
	quote := strings.ToUpper(p.QuoteToken)
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if strings.Contains(base, t) || strings.Contains(quote, t) {
			return true
		}
	}
	return false
}

// PoolHistory agrupa la metadata y los snapshots de un pool.
// Snapshots llega del proveedor en orden newest-first.
type PoolHistory struct {
	Pool      PoolInfo
	Snapshots []PriceSnapshot
}

// Chronological devuelve una copia de los snapshots en orden oldest→newest.
// El slice original no se modifica.
func Chronological(newestFirst []PriceSnapshot) []PriceSnapshot {
	out := make([]PriceSnapshot, len(newestFirst))
	for i, s := range newestFirst {
		out[len(newestFirst)-1-i] = s
	}
	return out
}

// ResolvedPrices extrae los precios válidos de los snapshots, en el mismo orden.
func ResolvedPrices(snaps []PriceSnapshot) []float64 {
	prices := make([]float64, 0, len(snaps))
	for _, s := range snaps {
		if p, ok := s.ResolvePrice(); ok {
			prices = append(prices, p)
		}
	}
	return prices
}

// Float64 devuelve un puntero al valor dado. Útil para construir snapshots.
func Float64(v float64) *float64 {
	return &v
}
