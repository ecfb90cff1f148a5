// Package deribit implementa ports.VolatilityIndexProvider con el índice DVOL de Deribit.
package deribit

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/v3lab/internal/adapters/httpapi"
)

const (
	defaultBaseURL = "https://www.deribit.com"
	indexPath      = "/api/v2/public/get_volatility_index_data"

	// ventana pedida: basta con la última vela diaria
	lookback = 7 * 24 * time.Hour
)

// Config configura el Client.
type Config struct {
	BaseURL    string
	MaxRetries int
	RetryWait  time.Duration
	Timeout    time.Duration
}

// Client consulta el índice de volatilidad implícita (DVOL).
type Client struct {
	base string
	api  *httpapi.Client
	now  func() time.Time
}

// NewClient crea un Client. Si BaseURL está vacío usa el de producción.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		api: httpapi.New(httpapi.Config{
			Name:       "deribit",
			RatePerSec: 5,
			Burst:      1,
			MaxRetries: cfg.MaxRetries,
			RetryWait:  cfg.RetryWait,
			Timeout:    cfg.Timeout,
		}),
		now: time.Now,
	}
}

// volatilityIndexResponse es la respuesta JSON-RPC del endpoint DVOL.
// Cada vela es [timestamp_ms, open, high, low, close].
type volatilityIndexResponse struct {
	Result struct {
		Data [][]decimal.Decimal `json:"data"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchImpliedVolatility devuelve el cierre de la última vela diaria como fracción (55 → 0.55).
func (c *Client) FetchImpliedVolatility(ctx context.Context, currency string) (float64, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return 0, fmt.Errorf("deribit.FetchImpliedVolatility: empty currency")
	}

	end := c.now()
	q := url.Values{}
	q.Set("currency", currency)
	q.Set("resolution", "1D")
	q.Set("start_timestamp", strconv.FormatInt(end.Add(-lookback).UnixMilli(), 10))
	q.Set("end_timestamp", strconv.FormatInt(end.UnixMilli(), 10))

	var resp volatilityIndexResponse
	if err := c.api.GetJSON(ctx, c.base+indexPath+"?"+q.Encode(), &resp); err != nil {
		return 0, fmt.Errorf("deribit.FetchImpliedVolatility: %w", err)
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("deribit.FetchImpliedVolatility: rpc error %d: %s", resp.Error.Code, resp.Error.Message)
	}

	candles := resp.Result.Data
	if len(candles) == 0 {
		return 0, fmt.Errorf("deribit.FetchImpliedVolatility: %s: empty index data", currency)
	}
	last := candles[len(candles)-1]
	if len(last) < 5 {
		return 0, fmt.Errorf("deribit.FetchImpliedVolatility: %s: malformed candle", currency)
	}
	return last[4].Div(decimal.NewFromInt(100)).InexactFloat64(), nil
}
