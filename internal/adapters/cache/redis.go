// Package cache decora un ports.HistoryProvider con una caché en Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alejandrodnm/v3lab/internal/domain"
	"github.com/alejandrodnm/v3lab/internal/ports"
)

const (
	keyPrefix  = "v3lab:"
	poolsKey   = keyPrefix + "pools"
	historyKey = keyPrefix + "history:"

	DefaultTTL = time.Hour
)

// HistoryCache guarda en Redis el listado y los historiales ya descargados.
// Si Redis falla se loguea y se consulta directamente el provider envuelto.
type HistoryCache struct {
	next ports.HistoryProvider
	rdb  redis.UniversalClient
	ttl  time.Duration
}

// NewHistoryCache envuelve next. ttl <= 0 usa DefaultTTL.
func NewHistoryCache(next ports.HistoryProvider, rdb redis.UniversalClient, ttl time.Duration) *HistoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &HistoryCache{next: next, rdb: rdb, ttl: ttl}
}

// FetchPools implementa ports.HistoryProvider.
func (c *HistoryCache) FetchPools(ctx context.Context) ([]domain.PoolInfo, error) {
	var pools []domain.PoolInfo
	if c.load(ctx, poolsKey, &pools) {
		return pools, nil
	}

	pools, err := c.next.FetchPools(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, poolsKey, pools)
	return pools, nil
}

// FetchPoolHistory implementa ports.HistoryProvider. Los errores del provider
// (incluido ErrNoData) no se cachean.
func (c *HistoryCache) FetchPoolHistory(ctx context.Context, address string) (domain.PoolHistory, error) {
	key := historyKey + strings.ToLower(strings.TrimSpace(address))

	var hist domain.PoolHistory
	if c.load(ctx, key, &hist) {
		return hist, nil
	}

	hist, err := c.next.FetchPoolHistory(ctx, address)
	if err != nil {
		return domain.PoolHistory{}, err
	}
	c.store(ctx, key, hist)
	return hist, nil
}

// Invalidate borra el listado y los historiales de las addresses dadas.
func (c *HistoryCache) Invalidate(ctx context.Context, addresses ...string) error {
	keys := []string{poolsKey}
	for _, a := range addresses {
		keys = append(keys, historyKey+strings.ToLower(strings.TrimSpace(a)))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache.Invalidate: %w", err)
	}
	return nil
}

func (c *HistoryCache) load(ctx context.Context, key string, out any) bool {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		slog.Warn("cache read failed", "key", key, "err", err)
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.Warn("cache entry corrupt, refetching", "key", key, "err", err)
		return false
	}
	slog.Debug("cache hit", "key", key)
	return true
}

func (c *HistoryCache) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("cache encode failed", "key", key, "err", err)
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("cache write failed", "key", key, "err", err)
	}
}
