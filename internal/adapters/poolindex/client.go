// Package poolindex implementa ports.HistoryProvider sobre el índice HTTP de pools V3.
package poolindex

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alejandrodnm/v3lab/internal/adapters/httpapi"
	"github.com/alejandrodnm/v3lab/internal/domain"
)

const (
	defaultBaseURL = "https://apiindex.mucho.finance"

	defaultRatePerSec = 10
	defaultBurst      = 5
	defaultMaxRetries = 3
	defaultTimeout    = 15 * time.Second
)

// Config configura el Client. Los valores cero usan los defaults.
type Config struct {
	BaseURL    string
	RatePerSec float64
	MaxRetries int
	RetryWait  time.Duration
	Timeout    time.Duration
}

// Client es el HistoryProvider del índice de pools.
type Client struct {
	base string
	api  *httpapi.Client
}

// NewClient crea un Client. Si BaseURL está vacío usa el de producción.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		api: httpapi.New(httpapi.Config{
			Name:       "poolindex",
			RatePerSec: cfg.RatePerSec,
			Burst:      defaultBurst,
			MaxRetries: cfg.MaxRetries,
			RetryWait:  cfg.RetryWait,
			Timeout:    cfg.Timeout,
		}),
	}
}

// FetchPools devuelve todos los pools del índice.
func (c *Client) FetchPools(ctx context.Context) ([]domain.PoolInfo, error) {
	var resp poolsResponse
	if err := c.api.GetJSON(ctx, c.base+"/pools", &resp); err != nil {
		return nil, fmt.Errorf("poolindex.FetchPools: %w", err)
	}
	return mapPools(resp.Pools), nil
}

// FetchPoolHistory devuelve metadata y snapshots del pool, newest-first.
// Un 404 o una respuesta sin objeto pool devuelven domain.ErrNoData.
func (c *Client) FetchPoolHistory(ctx context.Context, address string) (domain.PoolHistory, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return domain.PoolHistory{}, fmt.Errorf("poolindex.FetchPoolHistory: empty address: %w", domain.ErrNoData)
	}

	var resp historyResponse
	endpoint := c.base + "/pools/" + url.PathEscape(address) + "/history"
	if err := c.api.GetJSON(ctx, endpoint, &resp); err != nil {
		if httpapi.IsNotFound(err) {
			return domain.PoolHistory{}, fmt.Errorf("poolindex.FetchPoolHistory: %s: %w", address, domain.ErrNoData)
		}
		return domain.PoolHistory{}, fmt.Errorf("poolindex.FetchPoolHistory: %w", err)
	}
	if resp.Pool == nil {
		return domain.PoolHistory{}, fmt.Errorf("poolindex.FetchPoolHistory: %s: %w", address, domain.ErrNoData)
	}
	return mapHistory(address, *resp.Pool), nil
}
