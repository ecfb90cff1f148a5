package ports

import (
	"context"

	"github.com/alejandrodnm/v3lab/internal/domain"
)

// Notifier presenta los resultados al usuario.
type Notifier interface {
	// NotifyScan muestra el ranking de pools ordenado por ratio fees/IL.
	NotifyScan(ctx context.Context, run domain.ScanRun) error

	// NotifyBacktest muestra el resumen y la traza de un backtest.
	NotifyBacktest(ctx context.Context, run domain.BacktestRun) error
}
