package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/v3lab/internal/domain"
)

// Storage persiste los scans y los backtests ejecutados.
type Storage interface {
	// SaveScan persiste un scan completo con sus filas de ranking.
	SaveScan(ctx context.Context, run domain.ScanRun) error

	// GetScanHistory devuelve las filas de los scans iniciados en el rango dado,
	// mejor ratio primero.
	GetScanHistory(ctx context.Context, from, to time.Time) ([]domain.PoolScanResult, error)

	// SaveBacktest persiste un backtest con su traza.
	SaveBacktest(ctx context.Context, run domain.BacktestRun) error

	// GetBacktest recupera un backtest por ID.
	GetBacktest(ctx context.Context, id string) (domain.BacktestRun, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
