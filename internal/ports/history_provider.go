package ports

import (
	"context"

	"github.com/alejandrodnm/v3lab/internal/domain"
)

// HistoryProvider obtiene el listado de pools y el historial de snapshots de cada uno.
type HistoryProvider interface {
	// FetchPools devuelve la metadata de todos los pools publicados por el índice.
	FetchPools(ctx context.Context) ([]domain.PoolInfo, error)

	// FetchPoolHistory devuelve metadata y snapshots del pool, newest-first.
	// Devuelve domain.ErrNoData si el índice no conoce el pool.
	FetchPoolHistory(ctx context.Context, address string) (domain.PoolHistory, error)
}
