package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de v3lab.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Scanner  ScannerConfig  `yaml:"scanner"`
	Backtest BacktestConfig `yaml:"backtest"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
}

// APIConfig contiene los base URLs y la política de reintentos de las APIs.
type APIConfig struct {
	IndexBase      string  `yaml:"index_base"`
	DeribitBase    string  `yaml:"deribit_base"`
	RatePerSec     float64 `yaml:"rate_per_sec"`
	MaxRetries     int     `yaml:"max_retries"`
	RetryWaitMs    int     `yaml:"retry_wait_ms"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// AnalysisConfig agrupa los parámetros del modelo compartidos por scanner y backtester.
type AnalysisConfig struct {
	SnapshotsPerDay          int     `yaml:"snapshots_per_day"` // cadencia del feed: 3 = cada 8h
	VolatilityPeriodsPerYear float64 `yaml:"volatility_periods_per_year"`
	LookbackDays             int     `yaml:"lookback_days"`
	SDMultiplier             float64 `yaml:"sd_multiplier"`
}

// ScannerConfig controla los filtros y el modo watch del scanner.
type ScannerConfig struct {
	IntervalSeconds int      `yaml:"interval_seconds"` // 0 = un solo scan
	Workers         int      `yaml:"workers"`
	Chains          []string `yaml:"chains"`
	Assets          []string `yaml:"assets"`
	MinTVLUSD       float64  `yaml:"min_tvl_usd"`
	MinAPRPct       float64  `yaml:"min_apr_pct"`
	MaxCandidates   int      `yaml:"max_candidates"`
	MaxResults      int      `yaml:"max_results"`
	AlertTopN       int      `yaml:"alert_top_n"`
	MinWidth        float64  `yaml:"min_width"`
	MaxWidth        float64  `yaml:"max_width"`
}

// BacktestConfig contiene los defaults de la simulación.
type BacktestConfig struct {
	InvestmentUSD float64 `yaml:"investment_usd"`
	SimDays       int     `yaml:"sim_days"`
	AutoRebalance bool    `yaml:"auto_rebalance"`
	RebalanceCost float64 `yaml:"rebalance_cost"` // fracción del valor por rebalanceo
	MinWidth      float64 `yaml:"min_width"`
	MaxWidth      float64 `yaml:"max_width"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// CacheConfig controla la caché Redis del historial. Sin Addr no hay caché.
type CacheConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// ScanInterval devuelve el intervalo del modo watch como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// RetryWait devuelve la espera inicial entre reintentos.
func (c *Config) RetryWait() time.Duration {
	return time.Duration(c.API.RetryWaitMs) * time.Millisecond
}

// Timeout devuelve el timeout HTTP por request.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// CacheTTL devuelve el TTL de la caché.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("INDEX_API_BASE"); v != "" {
		cfg.API.IndexBase = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.API.IndexBase == "" {
		cfg.API.IndexBase = "https://apiindex.mucho.finance"
	}
	if cfg.API.DeribitBase == "" {
		cfg.API.DeribitBase = "https://www.deribit.com"
	}
	if cfg.API.RatePerSec <= 0 {
		cfg.API.RatePerSec = 10
	}
	if cfg.API.MaxRetries < 0 {
		cfg.API.MaxRetries = 0
	}
	if cfg.API.RetryWaitMs <= 0 {
		cfg.API.RetryWaitMs = 500
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 15
	}

	if cfg.Analysis.SnapshotsPerDay <= 0 {
		cfg.Analysis.SnapshotsPerDay = 3
	}
	if cfg.Analysis.VolatilityPeriodsPerYear <= 0 {
		cfg.Analysis.VolatilityPeriodsPerYear = 365
	}
	if cfg.Analysis.LookbackDays <= 0 {
		cfg.Analysis.LookbackDays = 7
	}
	if cfg.Analysis.SDMultiplier <= 0 {
		cfg.Analysis.SDMultiplier = 1.0
	}

	if cfg.Scanner.IntervalSeconds < 0 {
		cfg.Scanner.IntervalSeconds = 0
	}
	if cfg.Scanner.Workers <= 0 {
		cfg.Scanner.Workers = 8
	}
	if cfg.Scanner.MinTVLUSD <= 0 {
		cfg.Scanner.MinTVLUSD = 1_000_000
	}
	if cfg.Scanner.MaxCandidates <= 0 {
		cfg.Scanner.MaxCandidates = 150
	}
	if cfg.Scanner.MaxResults <= 0 {
		cfg.Scanner.MaxResults = 100
	}
	if cfg.Scanner.AlertTopN <= 0 {
		cfg.Scanner.AlertTopN = 3
	}
	if cfg.Scanner.MinWidth <= 0 {
		cfg.Scanner.MinWidth = 0.005
	}
	if cfg.Scanner.MaxWidth <= 0 {
		cfg.Scanner.MaxWidth = 2.0
	}

	if cfg.Backtest.InvestmentUSD <= 0 {
		cfg.Backtest.InvestmentUSD = 1000
	}
	if cfg.Backtest.SimDays <= 0 {
		cfg.Backtest.SimDays = 30
	}
	if cfg.Backtest.RebalanceCost <= 0 {
		cfg.Backtest.RebalanceCost = 0.003
	}
	if cfg.Backtest.MinWidth <= 0 {
		cfg.Backtest.MinWidth = 0.01
	}
	if cfg.Backtest.MaxWidth <= 0 {
		cfg.Backtest.MaxWidth = 1.0
	}

	if cfg.Cache.TTLMinutes <= 0 {
		cfg.Cache.TTLMinutes = 60
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "v3lab.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
