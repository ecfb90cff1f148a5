package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/v3lab/internal/domain"
	"github.com/alejandrodnm/v3lab/internal/ports"
)

// Service orquesta fetch → simulación → persistencia → notificación para un pool.
type Service struct {
	history  ports.HistoryProvider
	storage  ports.Storage // opcional
	notifier ports.Notifier
}

// NewService crea el servicio con sus dependencias. storage puede ser nil.
func NewService(history ports.HistoryProvider, storage ports.Storage, notifier ports.Notifier) *Service {
	return &Service{history: history, storage: storage, notifier: notifier}
}

// RunPool descarga el historial del pool y ejecuta la simulación.
// Los errores de storage o del notifier se registran pero no fallan el run.
func (s *Service) RunPool(ctx context.Context, address string, p domain.BacktestParams) (domain.BacktestRun, error) {
	run := domain.BacktestRun{
		ID:        uuid.NewString(),
		Params:    p,
		StartedAt: time.Now().UTC(),
	}

	hist, err := s.history.FetchPoolHistory(ctx, address)
	if err != nil {
		return run, fmt.Errorf("backtest.RunPool: fetch %s: %w", address, err)
	}
	run.Pool = hist.Pool
	if run.Pool.Address == "" {
		run.Pool.Address = address
	}
	if p.FeeTier <= 0 {
		p.FeeTier = domain.FeeFraction(run.Pool)
		run.Params.FeeTier = p.FeeTier
	}

	res, err := Run(hist.Snapshots, p)
	if err != nil {
		return run, fmt.Errorf("backtest.RunPool: %s: %w", address, err)
	}
	run.Result = res
	run.FinishedAt = time.Now().UTC()

	if s.notifier != nil {
		if err := s.notifier.NotifyBacktest(ctx, run); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}
	if s.storage != nil {
		if err := s.storage.SaveBacktest(ctx, run); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}

	sum := run.Summary()
	slog.Info("backtest complete",
		"id", run.ID,
		"pool", address,
		"periods", sum.Periods,
		"rebalances", sum.RebalanceCount,
		"roi", fmt.Sprintf("%.2f%%", sum.ROI*100),
		"hodl_roi", fmt.Sprintf("%.2f%%", sum.HodlROI*100),
		"duration", run.Duration().Round(time.Millisecond),
	)
	return run, nil
}
