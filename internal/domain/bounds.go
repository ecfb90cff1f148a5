package domain

// bounds.go: todos los clamps de inputs económicamente implausibles viven aquí.
// Ningún otro archivo aplica min/max sobre anchos, probabilidades o costes.

import "math"

const (
	// FallbackVolatility se usa cuando no hay datos suficientes: "desconocida, asumir alta".
	FallbackVolatility = 0.80

	// MinVolatilitySamples es el mínimo de precios positivos para estimar volatilidad.
	MinVolatilitySamples = 5

	// ILWidthFloor evita simular IL sobre un rango de ancho cero.
	ILWidthFloor = 0.001

	// RiskEpsilon es el denominador mínimo del ratio fees/IL.
	RiskEpsilon = 0.0001

	// MinLowerRatio es el suelo del límite inferior como fracción del centro.
	// Con anchos >= 1 el rango simétrico daría un precio <= 0.
	MinLowerRatio = 0.01

	// DefaultRebalanceCost es el haircut plano por rebalanceo (0.3%).
	DefaultRebalanceCost = 0.003

	// MaxRebalanceCost acota el haircut; por encima no es un swap sino un error de input.
	MaxRebalanceCost = 0.10

	// MaxConcentration acota el multiplicador de concentración de rangos estrechos.
	MaxConcentration = 100.0
)

// WidthBand es la banda de seguridad del semiancho del rango (fracción del centro).
type WidthBand struct {
	Min float64
	Max float64
}

var (
	// ScannerWidthBand es la banda usada al rankear pools.
	ScannerWidthBand = WidthBand{Min: 0.005, Max: 2.0}
	// BacktestWidthBand es la banda usada al replayear una posición.
	BacktestWidthBand = WidthBand{Min: 0.01, Max: 1.0}
)

// Clamp acota w a la banda. NaN se trata como el mínimo.
func (b WidthBand) Clamp(w float64) float64 {
	if math.IsNaN(w) || w < b.Min {
		return b.Min
	}
	if w > b.Max {
		return b.Max
	}
	return w
}

// Valid devuelve true si la banda es utilizable (0 < Min <= Max).
func (b WidthBand) Valid() bool {
	return b.Min > 0 && b.Min <= b.Max
}

// RangeBounds construye el rango simétrico center·(1 ± width).
// El límite inferior nunca baja de MinLowerRatio·center.
func RangeBounds(center, width float64) (lower, upper float64) {
	lowerRatio := 1 - width
	if lowerRatio < MinLowerRatio {
		lowerRatio = MinLowerRatio
	}
	return center * lowerRatio, center * (1 + width)
}

// ClampProbability acota p a [0, 1].
func ClampProbability(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// ClampRebalanceCost acota el haircut a [0, MaxRebalanceCost].
// Un coste negativo usa el default.
func ClampRebalanceCost(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return DefaultRebalanceCost
	}
	if c > MaxRebalanceCost {
		return MaxRebalanceCost
	}
	return c
}

// SafeRisk devuelve el IL como denominador, nunca por debajo de RiskEpsilon.
func SafeRisk(il float64) float64 {
	return math.Max(il, RiskEpsilon)
}

// SafeDiv divide y devuelve 0 si el denominador es 0.
func SafeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
