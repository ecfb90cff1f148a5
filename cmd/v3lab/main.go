package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alejandrodnm/v3lab/config"
	"github.com/alejandrodnm/v3lab/internal/adapters/cache"
	"github.com/alejandrodnm/v3lab/internal/adapters/deribit"
	"github.com/alejandrodnm/v3lab/internal/adapters/notify"
	"github.com/alejandrodnm/v3lab/internal/adapters/poolindex"
	"github.com/alejandrodnm/v3lab/internal/adapters/storage"
	"github.com/alejandrodnm/v3lab/internal/application/scanner"
	"github.com/alejandrodnm/v3lab/internal/domain"
	"github.com/alejandrodnm/v3lab/internal/ports"
)

// cliFlags agrupa los flags que sobreescriben la configuración.
type cliFlags struct {
	mode      string
	address   string
	id        string
	chains    string
	assets    string
	days      int
	sd        float64
	simDays   int
	invest    float64
	rebalance bool
	table     bool
	noStore   bool
	watch     time.Duration
	since     time.Duration
}

func main() {
	var f cliFlags
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.StringVar(&f.mode, "mode", "scan", "scan | pool | backtest | history | show")
	flag.StringVar(&f.address, "address", "", "pool address (pool and backtest modes)")
	flag.StringVar(&f.id, "id", "", "stored backtest id (show mode)")
	flag.StringVar(&f.chains, "chains", "", "comma-separated chains (overrides config)")
	flag.StringVar(&f.assets, "assets", "", "comma-separated tickers, e.g. ETH,BTC (overrides config)")
	flag.IntVar(&f.days, "days", 0, "analysis window in days (overrides config)")
	flag.Float64Var(&f.sd, "sd", 0, "range width in standard deviations (overrides config)")
	flag.IntVar(&f.simDays, "sim-days", 0, "backtest horizon in days (overrides config)")
	flag.Float64Var(&f.invest, "invest", 0, "backtest investment in USD (overrides config)")
	flag.BoolVar(&f.rebalance, "rebalance", false, "re-center the range when price leaves it")
	flag.BoolVar(&f.table, "table", false, "print full tables (default: compact)")
	flag.BoolVar(&f.noStore, "no-store", false, "do not persist runs to SQLite")
	flag.DurationVar(&f.watch, "watch", 0, "repeat the scan at this interval (overrides config)")
	flag.DurationVar(&f.since, "since", 24*time.Hour, "history mode: how far back to read stored scans")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("v3lab starting",
		"config", *configPath,
		"mode", f.mode,
		"index", cfg.API.IndexBase,
		"cache", cfg.Cache.Addr != "",
		"store", !f.noStore,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var provider ports.HistoryProvider = poolindex.NewClient(poolindex.Config{
		BaseURL:    cfg.API.IndexBase,
		RatePerSec: cfg.API.RatePerSec,
		MaxRetries: cfg.API.MaxRetries,
		RetryWait:  cfg.RetryWait(),
		Timeout:    cfg.Timeout(),
	})
	if rdb := openRedis(ctx, cfg.Cache); rdb != nil {
		defer rdb.Close()
		provider = cache.NewHistoryCache(provider, rdb, cfg.CacheTTL())
	}

	var store *storage.SQLiteStorage
	if !f.noStore || f.mode == "history" || f.mode == "show" {
		store, err = storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
	}
	// los modos de consulta leen del store pero no escriben
	var sink ports.Storage
	if store != nil && !f.noStore {
		sink = store
	}

	console := notify.NewConsole(f.table)

	scanCfg := scanner.Config{
		ScanInterval: cfg.ScanInterval(),
		Workers:      cfg.Scanner.Workers,
		AlertTopN:    cfg.Scanner.AlertTopN,
		Filter: scanner.FilterConfig{
			MaxCandidates: cfg.Scanner.MaxCandidates,
			MaxResults:    cfg.Scanner.MaxResults,
		},
		Analyzer: scanner.AnalyzerConfig{
			SnapshotsPerDay:          cfg.Analysis.SnapshotsPerDay,
			VolatilityPeriodsPerYear: cfg.Analysis.VolatilityPeriodsPerYear,
			Band:                     domain.WidthBand{Min: cfg.Scanner.MinWidth, Max: cfg.Scanner.MaxWidth},
		},
	}
	if f.watch > 0 {
		scanCfg.ScanInterval = f.watch
	}

	switch f.mode {
	case "scan":
		s := scanner.New(scanCfg, provider, sink, console)
		err = runScan(ctx, s, scanParams(cfg, f))
	case "pool":
		s := scanner.New(scanCfg, provider, nil, nil)
		vol := deribit.NewClient(deribit.Config{
			BaseURL:    cfg.API.DeribitBase,
			MaxRetries: cfg.API.MaxRetries,
			RetryWait:  cfg.RetryWait(),
			Timeout:    cfg.Timeout(),
		})
		err = runPool(ctx, s, vol, console, f.address, pick(f.days, cfg.Analysis.LookbackDays), pickF(f.sd, cfg.Analysis.SDMultiplier))
	case "backtest":
		err = runBacktest(ctx, provider, sink, console, f.address, backtestParams(cfg, f))
	case "history":
		err = runHistory(ctx, store, console, f.since, scanParams(cfg, f))
	case "show":
		err = runShow(ctx, store, console, f.id)
	default:
		slog.Error("unknown mode", "mode", f.mode)
		os.Exit(1)
	}

	if err != nil {
		slog.Error("run failed", "mode", f.mode, "err", err)
		os.Exit(1)
	}
	slog.Info("v3lab stopped cleanly")
}

// scanParams combina la configuración con los flags de la línea de comandos.
func scanParams(cfg *config.Config, f cliFlags) domain.ScanParams {
	p := domain.ScanParams{
		Chains:       cfg.Scanner.Chains,
		Assets:       cfg.Scanner.Assets,
		MinTVLUSD:    cfg.Scanner.MinTVLUSD,
		MinAPRPct:    cfg.Scanner.MinAPRPct,
		LookbackDays: pick(f.days, cfg.Analysis.LookbackDays),
		SDMultiplier: pickF(f.sd, cfg.Analysis.SDMultiplier),
	}
	if f.chains != "" {
		p.Chains = splitList(f.chains)
	}
	if f.assets != "" {
		p.Assets = splitList(f.assets)
	}
	return p
}

// backtestParams combina la configuración con los flags. El fee tier se deduce del pool.
func backtestParams(cfg *config.Config, f cliFlags) domain.BacktestParams {
	return domain.BacktestParams{
		InvestmentUSD:            pickF(f.invest, cfg.Backtest.InvestmentUSD),
		SDMultiplier:             pickF(f.sd, cfg.Analysis.SDMultiplier),
		SimDays:                  pick(f.simDays, cfg.Backtest.SimDays),
		LookbackDays:             pick(f.days, cfg.Analysis.LookbackDays),
		AutoRebalance:            f.rebalance || cfg.Backtest.AutoRebalance,
		SnapshotsPerDay:          cfg.Analysis.SnapshotsPerDay,
		RebalanceCost:            cfg.Backtest.RebalanceCost,
		Band:                     domain.WidthBand{Min: cfg.Backtest.MinWidth, Max: cfg.Backtest.MaxWidth},
		VolatilityPeriodsPerYear: cfg.Analysis.VolatilityPeriodsPerYear,
	}
}

// openRedis conecta a Redis si hay dirección configurada. Sin conexión sigue sin caché.
func openRedis(ctx context.Context, cfg config.CacheConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis unavailable, running without cache", "addr", cfg.Addr, "err", err)
		rdb.Close()
		return nil
	}
	return rdb
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func pick(flagValue, cfgValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return cfgValue
}

func pickF(flagValue, cfgValue float64) float64 {
	if flagValue > 0 {
		return flagValue
	}
	return cfgValue
}
