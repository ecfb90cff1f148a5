package scanner

import (
	"sort"

	"github.com/alejandrodnm/v3lab/internal/domain"
)

// FilterConfig contiene los límites de candidatos y resultados.
type FilterConfig struct {
	// MaxCandidates limita cuántos pools (por volumen) se descargan y evalúan.
	MaxCandidates int
	// MaxResults trunca el ranking final.
	MaxResults int
}

// DefaultFilterConfig devuelve 150 candidatos y top 100.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MaxCandidates: 150,
		MaxResults:    100,
	}
}

// Filter aplica los filtros de listado (antes del fetch) y de APR (después de evaluar).
type Filter struct {
	cfg    FilterConfig
	params domain.ScanParams
}

// NewFilter crea un Filter para un scan concreto.
func NewFilter(cfg FilterConfig, params domain.ScanParams) *Filter {
	return &Filter{cfg: cfg, params: params}
}

// Candidates devuelve los pools que pasan chain/TVL/activo, ordenados por volumen y truncados.
func (f *Filter) Candidates(pools []domain.PoolInfo) []domain.PoolInfo {
	out := make([]domain.PoolInfo, 0, len(pools))
	for _, p := range pools {
		if f.passesListing(p) {
			out = append(out, p)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].VolumeUSD > out[j].VolumeUSD
	})
	if f.cfg.MaxCandidates > 0 && len(out) > f.cfg.MaxCandidates {
		out = out[:f.cfg.MaxCandidates]
	}
	return out
}

// passesListing evalúa los filtros que no necesitan historial.
func (f *Filter) passesListing(p domain.PoolInfo) bool {
	if p.Address == "" {
		return false
	}
	if !f.params.MatchesChain(p.ChainID) {
		return false
	}
	if p.LiquidityUSD < f.params.MinTVLUSD {
		return false
	}
	return p.MatchesAsset(f.params.Assets)
}

// PassesAPR aplica el APR mínimo (en porcentaje) sobre un resultado evaluado.
func (f *Filter) PassesAPR(r domain.PoolScanResult) bool {
	return r.APRAnnual*100 >= f.params.MinAPRPct
}

// Rank ordena por ratio fees/IL descendente (empates por address) y trunca a MaxResults.
func (f *Filter) Rank(results []domain.PoolScanResult) []domain.PoolScanResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FeeToILRatio != results[j].FeeToILRatio {
			return results[i].FeeToILRatio > results[j].FeeToILRatio
		}
		return results[i].Address < results[j].Address
	})
	if f.cfg.MaxResults > 0 && len(results) > f.cfg.MaxResults {
		results = results[:f.cfg.MaxResults]
	}
	return results
}
