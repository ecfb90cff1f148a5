package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/v3lab/internal/domain"
	"github.com/alejandrodnm/v3lab/internal/ports"
)

// Config contiene la configuración del scanner.
type Config struct {
	ScanInterval time.Duration // intervalo del modo watch; 0 = un solo scan
	Filter       FilterConfig
	Analyzer     AnalyzerConfig
	Workers      int // goroutines de fetch + evaluación (0 = NumCPU*2)
	AlertTopN    int // posiciones del ranking vigiladas para alertas de nuevos líderes
}

// Scanner rankea pools por rendimiento probable frente a IL.
type Scanner struct {
	cfg      Config
	provider ports.HistoryProvider
	storage  ports.Storage  // opcional
	notifier ports.Notifier // opcional
	analyzer *Analyzer

	previousLeaders map[string]bool // top N del scan anterior, para alertas
}

// New crea un Scanner con todas las dependencias inyectadas. storage y notifier pueden ser nil.
func New(cfg Config, provider ports.HistoryProvider, storage ports.Storage, notifier ports.Notifier) *Scanner {
	return &Scanner{
		cfg:             cfg,
		provider:        provider,
		storage:         storage,
		notifier:        notifier,
		analyzer:        NewAnalyzer(cfg.Analyzer),
		previousLeaders: make(map[string]bool),
	}
}

// Analyzer devuelve el analizador del scanner.
func (s *Scanner) Analyzer() *Analyzer {
	return s.analyzer
}

// Run repite el scan cada ScanInterval hasta que el contexto se cancele.
// Sin intervalo ejecuta un solo scan.
func (s *Scanner) Run(ctx context.Context, params domain.ScanParams) error {
	slog.Info("scanner starting",
		"interval", s.cfg.ScanInterval,
		"workers", s.cfg.Workers,
		"lookback_days", params.LookbackDays,
		"sd", params.SDMultiplier,
	)

	if _, err := s.Scan(ctx, params); err != nil {
		if s.cfg.ScanInterval <= 0 {
			return err
		}
		slog.Error("scan failed", "err", err)
	}
	if s.cfg.ScanInterval <= 0 {
		return nil
	}

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scanner stopped")
			return nil
		case <-ticker.C:
			if _, err := s.Scan(ctx, params); err != nil {
				slog.Error("scan failed", "err", err)
			}
		}
	}
}

// Scan ejecuta un scan completo, notifica y persiste el resultado.
// Solo falla si no se puede obtener el listado de pools o los parámetros son inválidos.
func (s *Scanner) Scan(ctx context.Context, params domain.ScanParams) (domain.ScanRun, error) {
	run := domain.ScanRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Params:    params,
	}

	if params.LookbackDays <= 0 || params.SDMultiplier <= 0 {
		return run, fmt.Errorf("scanner.Scan: lookback %d sd %.2f: %w",
			params.LookbackDays, params.SDMultiplier, domain.ErrInvalidParams)
	}

	pools, err := s.provider.FetchPools(ctx)
	if err != nil {
		return run, fmt.Errorf("scanner.Scan: fetch pools: %w", err)
	}

	filter := NewFilter(s.cfg.Filter, params)
	candidates := filter.Candidates(pools)
	run.Candidates = len(candidates)

	evaluated, skipped := evaluatePoolsConcurrent(ctx, s.provider, s.analyzer, candidates, params, s.cfg.Workers)
	run.Skipped = skipped

	passed := make([]domain.PoolScanResult, 0, len(evaluated))
	for _, r := range evaluated {
		if filter.PassesAPR(r) {
			passed = append(passed, r)
		}
	}
	run.Results = filter.Rank(passed)
	run.FinishedAt = time.Now().UTC()

	s.emitLeaderAlerts(run.Results)

	if s.notifier != nil {
		if err := s.notifier.NotifyScan(ctx, run); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}
	if s.storage != nil {
		if err := s.storage.SaveScan(ctx, run); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}

	slog.Info("scan complete",
		"id", run.ID,
		"pools", len(pools),
		"candidates", run.Candidates,
		"skipped", run.Skipped,
		"results", len(run.Results),
		"duration", run.Duration().Round(time.Millisecond),
	)
	return run, nil
}

// AnalyzeSinglePool evalúa un pool por address sin aplicar filtros de listado.
// Devuelve un error que cumple errors.Is(err, domain.ErrNoData) si el pool no tiene historial utilizable.
func (s *Scanner) AnalyzeSinglePool(ctx context.Context, address string, lookbackDays int, sdMultiplier float64) (domain.PoolScanResult, error) {
	hist, err := s.provider.FetchPoolHistory(ctx, address)
	if err != nil {
		return domain.PoolScanResult{}, fmt.Errorf("scanner.AnalyzeSinglePool: %s: %w", address, err)
	}
	if len(hist.Snapshots) == 0 {
		return domain.PoolScanResult{}, fmt.Errorf("scanner.AnalyzeSinglePool: %s: empty history: %w", address, domain.ErrNoData)
	}
	if hist.Pool.Address == "" {
		hist.Pool.Address = address
	}

	res, err := s.analyzer.Evaluate(hist, lookbackDays, sdMultiplier)
	if errors.Is(err, domain.ErrInsufficientHistory) {
		return domain.PoolScanResult{}, fmt.Errorf("scanner.AnalyzeSinglePool: %w: %w", domain.ErrNoData, err)
	}
	if err != nil {
		return domain.PoolScanResult{}, fmt.Errorf("scanner.AnalyzeSinglePool: %w", err)
	}
	return res, nil
}

// emitLeaderAlerts registra los pools que entran al top N respecto al scan anterior.
// El primer scan solo siembra el conjunto.
func (s *Scanner) emitLeaderAlerts(results []domain.PoolScanResult) {
	n := s.cfg.AlertTopN
	if n <= 0 {
		return
	}
	if len(results) < n {
		n = len(results)
	}

	first := len(s.previousLeaders) == 0
	leaders := make(map[string]bool, n)
	for i, r := range results[:n] {
		leaders[r.Address] = true
		if first || s.previousLeaders[r.Address] {
			continue
		}
		slog.Warn("NEW TOP POOL",
			"rank", i+1,
			"pair", r.Pair,
			"chain", r.Chain,
			"ratio", fmt.Sprintf("%.2f", r.FeeToILRatio),
			"probable_yield", fmt.Sprintf("%.2f%%", r.EstProbableFeeYield*100),
			"worst_il", fmt.Sprintf("%.2f%%", r.EstWorstCaseIL*100),
			"address", r.Address,
		)
	}
	s.previousLeaders = leaders
}
