package scanner

// concurrent.go: fetch + evaluación de pools en paralelo.
//
// Cada pool es independiente: un fetch fallido o un historial corto descarta ese pool
// y el resto sigue. Las goroutines nunca devuelven error al grupo para que un pool
// malo no cancele el contexto de los demás.

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/v3lab/internal/domain"
	"github.com/alejandrodnm/v3lab/internal/ports"
)

// evaluatePoolsConcurrent descarga y evalúa los candidatos con un máximo de workers goroutines.
// Si workers <= 0 usa runtime.NumCPU() × 2.
func evaluatePoolsConcurrent(
	ctx context.Context,
	provider ports.HistoryProvider,
	analyzer *Analyzer,
	pools []domain.PoolInfo,
	params domain.ScanParams,
	workers int,
) (results []domain.PoolScanResult, skipped int) {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}

	var mu sync.Mutex
	results = make([]domain.PoolScanResult, 0, len(pools))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, pool := range pools {
		g.Go(func() error {
			if gctx.Err() != nil {
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}

			res, err := evaluatePool(gctx, provider, analyzer, pool, params)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				skipped++
				logSkip(pool.Address, err)
				return nil
			}
			results = append(results, res)
			return nil
		})
	}
	_ = g.Wait()

	slog.Debug("concurrent evaluation complete",
		"pools_queued", len(pools),
		"results", len(results),
		"skipped", skipped,
		"workers", workers,
	)
	return results, skipped
}

// evaluatePool descarga el historial del pool y lo evalúa.
// La metadata del listado completa los campos que el historial no trae.
func evaluatePool(
	ctx context.Context,
	provider ports.HistoryProvider,
	analyzer *Analyzer,
	pool domain.PoolInfo,
	params domain.ScanParams,
) (domain.PoolScanResult, error) {
	hist, err := provider.FetchPoolHistory(ctx, pool.Address)
	if err != nil {
		return domain.PoolScanResult{}, err
	}
	hist.Pool = mergePoolInfo(pool, hist.Pool)
	return analyzer.Evaluate(hist, params.LookbackDays, params.SDMultiplier)
}

// mergePoolInfo prefiere la metadata del historial y cae a la del listado campo a campo.
func mergePoolInfo(listing, detail domain.PoolInfo) domain.PoolInfo {
	out := detail
	if out.Address == "" {
		out.Address = listing.Address
	}
	if out.Name == "" {
		out.Name = listing.Name
	}
	if out.BaseToken == "" {
		out.BaseToken = listing.BaseToken
	}
	if out.QuoteToken == "" {
		out.QuoteToken = listing.QuoteToken
	}
	if out.ChainID == "" {
		out.ChainID = listing.ChainID
	}
	if out.DexID == "" {
		out.DexID = listing.DexID
	}
	if out.FeeTier == 0 {
		out.FeeTier = listing.FeeTier
	}
	if out.LiquidityUSD == 0 {
		out.LiquidityUSD = listing.LiquidityUSD
	}
	if out.VolumeUSD == 0 {
		out.VolumeUSD = listing.VolumeUSD
	}
	return out
}

func logSkip(address string, err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientHistory), errors.Is(err, domain.ErrNoData):
		slog.Debug("pool skipped", "address", address, "reason", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		slog.Debug("pool fetch cancelled", "address", address)
	default:
		slog.Debug("pool fetch failed", "address", address, "err", err)
	}
}
