package domain

import "errors"

// ErrInsufficientHistory indica que el historial no cubre la ventana de warm-up
// o de volatilidad pedida. Nunca se devuelve una simulación parcial.
var ErrInsufficientHistory = errors.New("insufficient price history")

// ErrNoData indica que el proveedor no tiene datos utilizables para el pool.
var ErrNoData = errors.New("no data for pool")

// ErrInvalidParams indica parámetros de simulación o de scan fuera de dominio.
var ErrInvalidParams = errors.New("invalid parameters")
