package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/taller-core/internal/domain"
)

// PurchaseOrderStatus estado de recepción de una orden de compra.
type PurchaseOrderStatus string

const (
	PurchaseOrderPending           PurchaseOrderStatus = "PENDIENTE"
	PurchaseOrderPartiallyReceived PurchaseOrderStatus = "RECIBIDA_PARCIAL"
	PurchaseOrderReceived          PurchaseOrderStatus = "RECIBIDA"
)

// PurchaseOrder orden de compra a proveedor. Lines se carga junto con la cabecera.
type PurchaseOrder struct {
	ID          string
	Number      string
	SupplierID  string
	WarehouseID string // depósito destino por defecto de las recepciones
	Status      PurchaseOrderStatus
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Lines       []PurchaseOrderLine
}

// PurchaseOrderLine línea de orden de compra, única por (orden, producto).
// Invariante: 0 <= QuantityReceived <= QuantityOrdered.
type PurchaseOrderLine struct {
	ID               string
	OrderID          string
	ProductID        string
	QuantityOrdered  int64
	QuantityReceived int64
	UnitPrice        decimal.Decimal
}

// Remaining cantidad pendiente de recibir.
func (l PurchaseOrderLine) Remaining() int64 {
	return l.QuantityOrdered - l.QuantityReceived
}

// Receive suma qty a lo recibido sin superar lo ordenado. Si falla, la línea queda intacta.
func (l *PurchaseOrderLine) Receive(qty int64) error {
	if qty <= 0 {
		return domain.ErrInvalidQuantity
	}
	if qty > l.Remaining() {
		return domain.ErrExceedsOrdered
	}
	l.QuantityReceived += qty
	return nil
}

// Line busca una línea de la orden por ID.
func (o *PurchaseOrder) Line(id string) (*PurchaseOrderLine, bool) {
	for i := range o.Lines {
		if o.Lines[i].ID == id {
			return &o.Lines[i], true
		}
	}
	return nil, false
}

// RecomputeStatus compara lo recibido contra lo ordenado en todas las líneas.
// Sin nada recibido el estado no cambia.
func (o *PurchaseOrder) RecomputeStatus() PurchaseOrderStatus {
	var received int64
	complete := len(o.Lines) > 0
	for _, l := range o.Lines {
		received += l.QuantityReceived
		if l.QuantityReceived < l.QuantityOrdered {
			complete = false
		}
	}
	switch {
	case received == 0:
	case complete:
		o.Status = PurchaseOrderReceived
	default:
		o.Status = PurchaseOrderPartiallyReceived
	}
	return o.Status
}
