package domain

import (
	"fmt"
	"strings"
	"time"
)

// PoolScanResult es una fila del ranking del scanner.
// Todas las métricas porcentuales se guardan como fracción (0.12 = 12%).
type PoolScanResult struct {
	Address string
	Pair    string
	Chain   string
	Dex     string
	FeeTier float64

	TVLUSD           float64
	APRAnnual        float64 // media del APR instantáneo en la ventana, fracción
	VolatilityAnnual float64

	EstRangeWidth       float64 // semiancho ±
	ProbabilityInRange  float64
	EstProbableFeeYield float64 // apr · días/365 · probabilidad
	EstWorstCaseIL      float64
	FeeToILRatio        float64
	Margin              float64 // yield probable − IL

	Snapshots int // snapshots disponibles al evaluar
}

// ScanParams son los filtros y el horizonte de un scan.
type ScanParams struct {
	Chains       []string
	MinTVLUSD    float64
	LookbackDays int
	SDMultiplier float64
	MinAPRPct    float64 // en porcentaje: 20 = 20%
	Assets       []string
}

// MatchesChain devuelve true si el chain está en la lista (sin distinguir mayúsculas).
// Lista vacía acepta todos.
func (p ScanParams) MatchesChain(chain string) bool {
	if len(p.Chains) == 0 {
		return true
	}
	for _, c := range p.Chains {
		if strings.EqualFold(strings.TrimSpace(c), chain) {
			return true
		}
	}
	return false
}

// ScanRun es el value object de una invocación del scanner.
type ScanRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Params     ScanParams
	Results    []PoolScanResult
	Candidates int // pools que pasaron los filtros de listado
	Skipped    int // pools sin historial suficiente o con fetch fallido
}

// Duration devuelve cuánto tardó el scan.
func (r ScanRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// PairName devuelve el nombre del pool o, si falta, "BASE / QUOTE fee%".
// feeTier viene en centésimas de bip (3000 = 0.3%).
func PairName(p PoolInfo) string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return fmt.Sprintf("%s / %s %g%%", orUnknown(p.BaseToken), orUnknown(p.QuoteToken), p.FeeTier/10000)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "?"
	}
	return s
}

// DexLabel normaliza el identificador del DEX: "uniswap-v3" → "Uniswap".
func DexLabel(dexID string) string {
	s := capitalize(strings.TrimSpace(dexID))
	s = strings.ReplaceAll(s, "-v3", "")
	return strings.ReplaceAll(s, " v3", "")
}

// ChainLabel capitaliza el chain: "arbitrum" → "Arbitrum".
func ChainLabel(chainID string) string {
	return capitalize(strings.TrimSpace(chainID))
}

func capitalize(s string) string {
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// FeeFraction devuelve el fee del pool como fracción (0.0005 = 0.05%).
// Sin feeTier publicado lo deduce del nombre del par; por defecto 0.3%.
func FeeFraction(p PoolInfo) float64 {
	if p.FeeTier > 0 {
		return p.FeeTier / 1_000_000
	}
	name := PairName(p)
	switch {
	case strings.Contains(name, "0.05%"):
		return 0.0005
	case strings.Contains(name, "0.01%"):
		return 0.0001
	case strings.Contains(name, "0.3%"):
		return 0.003
	case strings.Contains(name, "1%"):
		return 0.01
	}
	return 0.003
}
