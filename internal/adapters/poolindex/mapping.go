package poolindex

import (
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/v3lab/internal/domain"
)

const dateLayout = "20060102150405"

// mapPools convierte los DTOs del listado a domain.PoolInfo. Descarta pools sin address.
func mapPools(raw []poolDTO) []domain.PoolInfo {
	pools := make([]domain.PoolInfo, 0, len(raw))
	for _, r := range raw {
		p := mapPool(r)
		if p.Address == "" {
			continue
		}
		pools = append(pools, p)
	}
	return pools
}

// mapPool convierte un poolDTO. La address es pairAddress o, si falta, _id.
func mapPool(r poolDTO) domain.PoolInfo {
	address := strings.TrimSpace(r.PairAddress)
	if address == "" {
		address = strings.TrimSpace(r.ID)
	}
	return domain.PoolInfo{
		Address:      address,
		Name:         strings.TrimSpace(r.PoolName),
		BaseToken:    r.BaseToken,
		QuoteToken:   r.QuoteToken,
		ChainID:      r.ChainID,
		DexID:        r.DexID,
		FeeTier:      r.FeeTier.float(),
		LiquidityUSD: r.Liquidity.float(),
		VolumeUSD:    r.Volume.float(),
	}
}

// mapHistory convierte el detalle a domain.PoolHistory manteniendo el orden newest-first.
func mapHistory(address string, d poolDetailDTO) domain.PoolHistory {
	info := mapPool(d.poolDTO)
	if info.Address == "" {
		info.Address = address
	}

	snaps := make([]domain.PriceSnapshot, 0, len(d.History))
	for _, h := range d.History {
		snaps = append(snaps, mapSnapshot(address, h))
	}
	return domain.PoolHistory{Pool: info, Snapshots: snaps}
}

// mapSnapshot convierte un snapshotDTO. Una fecha ilegible deja Timestamp en cero
// pero conserva los precios: el orden lo da la posición en el feed, no la fecha.
func mapSnapshot(address string, h snapshotDTO) domain.PriceSnapshot {
	s := domain.PriceSnapshot{
		PriceNative:  h.PriceNative.ptr(),
		PriceUSD:     h.PriceUSD.ptr(),
		APRAnnualPct: h.APR.ptr(),
		LiquidityUSD: h.Liquidity.ptr(),
	}
	if raw := string(h.Date); raw != "" {
		ts, err := time.Parse(dateLayout, raw)
		if err != nil {
			slog.Debug("unparseable snapshot date", "address", address, "date", raw)
		} else {
			s.Timestamp = ts
		}
	}
	return s
}
