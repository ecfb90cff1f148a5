package ports

import "context"

// VolatilityIndexProvider obtiene la volatilidad implícita de mercado de un activo.
type VolatilityIndexProvider interface {
	// FetchImpliedVolatility devuelve el último valor del índice como fracción anual (0.55 = 55%).
	FetchImpliedVolatility(ctx context.Context, currency string) (float64, error)
}
