package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")

	// Libro de existencias.
	ErrInvalidQuantity   = errors.New("cantidad inválida: debe ser mayor que cero")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// Recepción de mercadería.
	ErrExceedsOrdered       = errors.New("la cantidad recibida excede la cantidad ordenada")
	ErrReceiptOrderMismatch = errors.New("la línea no pertenece a la orden de compra de la recepción")

	// Comprobantes.
	ErrAlreadyAnulado  = errors.New("el comprobante ya está anulado")
	ErrAlreadyReissued = errors.New("el comprobante ya fue reemplazado")
	ErrMissingReason   = errors.New("la anulación requiere un motivo")

	// Consumo de stock por venta o reparación.
	ErrAlreadyApplied  = errors.New("el consumo de stock ya fue aplicado")
	ErrNotApplied      = errors.New("el consumo de stock no fue aplicado")
	ErrAlreadyReversed = errors.New("el consumo de stock ya fue revertido")

	// Errores transitorios por contención de bloqueos: el llamador puede reintentar.
	ErrLockTimeout         = errors.New("tiempo de espera agotado al bloquear el registro")
	ErrSequenceLockTimeout = errors.New("tiempo de espera agotado al bloquear la numeración")
)

// ErrReplacedNotAnnullable se devuelve al anular un comprobante REEMPLAZADO: ya no está vigente,
// así que cumple errors.Is tanto con ErrAlreadyReissued como con ErrAlreadyAnulado.
var ErrReplacedNotAnnullable error = replacedError{}

type replacedError struct{}

func (replacedError) Error() string {
	return "el comprobante ya fue reemplazado y no admite anulación"
}

func (replacedError) Unwrap() []error {
	return []error{ErrAlreadyReissued, ErrAlreadyAnulado}
}

// InsufficientStockError detalla qué producto y bodega no tienen saldo suficiente.
// errors.Is(err, ErrInsufficientStock) es verdadero.
type InsufficientStockError struct {
	ProductID   string
	WarehouseID string
	Requested   int64
	Available   int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para producto %s en bodega %s: solicitado %d, disponible %d",
		e.ProductID, e.WarehouseID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// IsTransient indica si el error proviene de un bloqueo que no se obtuvo a tiempo.
func IsTransient(err error) bool {
	return errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrSequenceLockTimeout)
}
