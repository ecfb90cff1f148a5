package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alejandrodnm/v3lab/internal/adapters/notify"
	"github.com/alejandrodnm/v3lab/internal/application/backtest"
	"github.com/alejandrodnm/v3lab/internal/application/scanner"
	"github.com/alejandrodnm/v3lab/internal/domain"
	"github.com/alejandrodnm/v3lab/internal/ports"
)

func runScan(ctx context.Context, s *scanner.Scanner, params domain.ScanParams) error {
	return s.Run(ctx, params)
}

// runPool evalúa un pool y compara su volatilidad realizada con la implícita del mercado.
func runPool(ctx context.Context, s *scanner.Scanner, vol ports.VolatilityIndexProvider, console *notify.Console, address string, days int, sd float64) error {
	address, err := poolAddress(address)
	if err != nil {
		return fmt.Errorf("pool mode: %w", err)
	}

	res, err := s.AnalyzeSinglePool(ctx, address, days, sd)
	if errors.Is(err, domain.ErrNoData) {
		slog.Warn("pool has no usable history", "address", address, "err", err)
		return nil
	}
	if err != nil {
		return err
	}

	implied := 0.0
	if currency, ok := dvolCurrency(res.Pair); ok {
		implied, err = vol.FetchImpliedVolatility(ctx, currency)
		if err != nil {
			slog.Warn("implied volatility unavailable", "currency", currency, "err", err)
			implied = 0
		}
	}

	console.PrintPoolAnalysis(res, days, implied)
	return nil
}

func runBacktest(ctx context.Context, provider ports.HistoryProvider, store ports.Storage, notifier ports.Notifier, address string, p domain.BacktestParams) error {
	address, err := poolAddress(address)
	if err != nil {
		return fmt.Errorf("backtest mode: %w", err)
	}

	slog.Info("=== BACKTEST MODE ===",
		"address", address,
		"invest", p.InvestmentUSD,
		"sim_days", p.SimDays,
		"lookback_days", p.LookbackDays,
		"sd", p.SDMultiplier,
		"rebalance", p.AutoRebalance,
	)

	_, err = backtest.NewService(provider, store, notifier).RunPool(ctx, address, p)
	return err
}

// runHistory reimprime las filas guardadas de los scans recientes, una por pool.
func runHistory(ctx context.Context, store ports.Storage, notifier ports.Notifier, since time.Duration, params domain.ScanParams) error {
	to := time.Now().UTC()
	rows, err := store.GetScanHistory(ctx, to.Add(-since), to)
	if err != nil {
		return err
	}

	// las filas llegan por ratio desc: la primera aparición de cada pool es su mejor marca
	seen := make(map[string]bool, len(rows))
	best := make([]domain.PoolScanResult, 0, len(rows))
	for _, r := range rows {
		if seen[r.Address] {
			continue
		}
		seen[r.Address] = true
		best = append(best, r)
	}

	return notifier.NotifyScan(ctx, domain.ScanRun{
		StartedAt:  to.Add(-since),
		FinishedAt: to,
		Params:     params,
		Results:    best,
		Candidates: len(rows),
	})
}

func runShow(ctx context.Context, store ports.Storage, notifier ports.Notifier, id string) error {
	if id == "" {
		return fmt.Errorf("show mode: -id is required")
	}
	run, err := store.GetBacktest(ctx, id)
	if err != nil {
		return err
	}
	return notifier.NotifyBacktest(ctx, run)
}

// dvolCurrency devuelve la divisa del índice DVOL para el activo base del par.
// Deribit solo publica DVOL de BTC y ETH.
func dvolCurrency(pair string) (string, bool) {
	base := strings.ToUpper(strings.TrimSpace(strings.SplitN(pair, "/", 2)[0]))
	switch {
	case strings.Contains(base, "BTC"):
		return "BTC", true
	case strings.Contains(base, "ETH"):
		return "ETH", true
	}
	return "", false
}

// poolAddress valida la address EVM del pool y la normaliza a minúsculas, el formato del índice.
func poolAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("-address is required")
	}
	if !common.IsHexAddress(raw) {
		return "", fmt.Errorf("invalid pool address %q", raw)
	}
	return strings.ToLower(common.HexToAddress(raw).Hex()), nil
}
