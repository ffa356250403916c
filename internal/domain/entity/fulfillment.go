package entity

import (
	"time"

	"github.com/jhoicas/taller-core/internal/domain"
)

// FulfillmentStatus estado del consumo de stock de un pedido.
type FulfillmentStatus string

const (
	FulfillmentApplied  FulfillmentStatus = "APLICADA"
	FulfillmentReversed FulfillmentStatus = "REVERTIDA"
)

// FulfillmentLine cantidad de un producto consumida desde un depósito.
type FulfillmentLine struct {
	ProductID   string
	WarehouseID string
	Quantity    int64
}

// Fulfillment registra qué consumió una venta o reparación; es el guardián que impide
// revertir un pedido no aplicado o revertirlo dos veces.
type Fulfillment struct {
	ID            string
	Order         EntityRef
	Status        FulfillmentStatus
	Lines         []FulfillmentLine
	AppliedBy     string
	AppliedAt     time.Time
	ReversedBy    string
	ReversedAt    *time.Time
	ReverseReason string
}

// MarkReversed pasa a REVERTIDA; solo desde APLICADA.
func (f *Fulfillment) MarkReversed(actorID, reason string, now time.Time) error {
	switch f.Status {
	case FulfillmentApplied:
	case FulfillmentReversed:
		return domain.ErrAlreadyReversed
	default:
		return domain.ErrNotApplied
	}
	f.Status = FulfillmentReversed
	f.ReversedBy = actorID
	f.ReversedAt = &now
	f.ReverseReason = reason
	return nil
}
