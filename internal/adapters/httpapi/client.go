// Package httpapi es el cliente JSON compartido por los adapters HTTP:
// rate limiting por cliente, retries con backoff exponencial y errores tipados por status.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"
)

// Config configura un Client.
type Config struct {
	Name       string // etiqueta para logs ("poolindex", "deribit")
	RatePerSec float64
	Burst      int
	MaxRetries int
	RetryWait  time.Duration // intervalo inicial del backoff
	Timeout    time.Duration
	UserAgent  string
}

func (c Config) withDefaults() Config {
	if c.RatePerSec <= 0 {
		c.RatePerSec = 10
	}
	if c.Burst <= 0 {
		c.Burst = 5
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryWait <= 0 {
		c.RetryWait = 500 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "v3lab/1.0"
	}
	return c
}

// StatusError es una respuesta HTTP no exitosa.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.Code)
	}
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

// IsNotFound devuelve true si err es un 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client hace GETs JSON con rate limiting y retries.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

// New crea un Client. Los valores no positivos de cfg usan defaults.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
	}
}

// GetJSON hace GET a url y decodifica el body en out.
// Reintenta errores de transporte, 429 y 5xx; cualquier otro 4xx es permanente.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.RetryWait
	policy.MaxInterval = c.cfg.RetryWait * 8

	notify := func(err error, wait time.Duration) {
		slog.Debug("http retry", "client", c.cfg.Name, "url", url, "err", err, "wait", wait)
	}

	op := func() (struct{}, error) {
		return struct{}{}, c.getOnce(ctx, url, out)
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.cfg.MaxRetries+1)),
		backoff.WithNotify(notify),
	)
	if err != nil {
		return fmt.Errorf("%s: GET %s: %w", c.cfg.Name, url, err)
	}
	return nil
}

// getOnce hace un intento. Devuelve backoff.Permanent para los errores que no se reintentan.
func (c *Client) getOnce(ctx context.Context, url string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		slog.Warn("rate limited by API", "client", c.cfg.Name)
		return &StatusError{Code: resp.StatusCode}
	case resp.StatusCode >= 500:
		return &StatusError{Code: resp.StatusCode}
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return backoff.Permanent(&StatusError{Code: resp.StatusCode, Body: string(body)})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
