package poolindex

import (
	"bytes"

	"github.com/shopspring/decimal"
)

// DTOs raw del índice de pools. Solo se usan dentro de este paquete.
// La conversión a domain se hace en mapping.go.

// poolsResponse es la respuesta de GET /pools.
type poolsResponse struct {
	Pools []poolDTO `json:"pools"`
}

// historyResponse es la respuesta de GET /pools/{address}/history.
// Un pool desconocido llega como {"pool": null} o sin la clave.
type historyResponse struct {
	Pool *poolDetailDTO `json:"pool"`
}

// poolDTO es la metadata de un pool. El índice mezcla PascalCase y camelCase.
type poolDTO struct {
	PairAddress string    `json:"pairAddress"`
	ID          string    `json:"_id"`
	PoolName    string    `json:"poolName"`
	BaseToken   string    `json:"BaseToken"`
	QuoteToken  string    `json:"QuoteToken"`
	ChainID     string    `json:"ChainId"`
	DexID       string    `json:"DexId"`
	Liquidity   optNumber `json:"Liquidity"`
	Volume      optNumber `json:"Volume"`
	FeeTier     optNumber `json:"feeTier"`
}

// poolDetailDTO es la metadata más el historial de snapshots (newest-first).
type poolDetailDTO struct {
	poolDTO
	History []snapshotDTO `json:"history"`
}

// snapshotDTO es una observación. Cualquier campo numérico puede faltar,
// venir como null, como número o como string.
type snapshotDTO struct {
	PriceNative optNumber `json:"priceNative"`
	PriceUSD    optNumber `json:"priceUsd"`
	APR         optNumber `json:"apr"`
	Liquidity   optNumber `json:"Liquidity"`
	Date        rawDate   `json:"date"` // YYYYMMDDHHMMSS
}

// rawDate acepta la fecha como número o como string. Nunca falla: una fecha
// ilegible se detecta al parsear en mapping.go.
type rawDate string

func (d *rawDate) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	if s == "null" {
		s = ""
	}
	*d = rawDate(s)
	return nil
}

// optNumber acepta número, string numérico, null o string vacío.
type optNumber struct {
	decimal.NullDecimal
}

func (n *optNumber) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, []byte(`""`)) {
		n.Valid = false
		return nil
	}
	return n.NullDecimal.UnmarshalJSON(trimmed)
}

// ptr devuelve el valor como *float64, nil si falta.
func (n optNumber) ptr() *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Decimal.InexactFloat64()
	return &f
}

// float devuelve el valor o 0 si falta.
func (n optNumber) float() float64 {
	if !n.Valid {
		return 0
	}
	return n.Decimal.InexactFloat64()
}
