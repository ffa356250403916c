package entity

import (
	"fmt"

	"github.com/jhoicas/taller-core/internal/domain"
)

// EntityKind identifica el tipo de objeto de negocio referenciado.
type EntityKind string

const (
	EntitySale          EntityKind = "venta"
	EntityRepair        EntityKind = "reparacion"
	EntityPurchaseOrder EntityKind = "orden_compra"
	EntityPayment       EntityKind = "pago"
	EntityReceipt       EntityKind = "recepcion"
	EntityCancellation  EntityKind = "anulacion"
	EntityAdjustment    EntityKind = "ajuste"
	EntityTransfer      EntityKind = "traslado"
)

// EntityRef es una referencia cerrada a un objeto de negocio (venta, reparación, orden de compra...).
// Solo se construye con los constructores de este paquete o con RefFromStorage.
type EntityRef struct {
	kind EntityKind
	id   string
}

func SaleRef(id string) EntityRef          { return EntityRef{kind: EntitySale, id: id} }
func RepairRef(id string) EntityRef        { return EntityRef{kind: EntityRepair, id: id} }
func PurchaseOrderRef(id string) EntityRef { return EntityRef{kind: EntityPurchaseOrder, id: id} }
func PaymentRef(id string) EntityRef       { return EntityRef{kind: EntityPayment, id: id} }
func ReceiptRef(id string) EntityRef       { return EntityRef{kind: EntityReceipt, id: id} }
func CancellationRef(id string) EntityRef  { return EntityRef{kind: EntityCancellation, id: id} }
func AdjustmentRef(id string) EntityRef    { return EntityRef{kind: EntityAdjustment, id: id} }
func TransferRef(id string) EntityRef      { return EntityRef{kind: EntityTransfer, id: id} }

// RefFromStorage reconstruye una referencia leída de la base de datos.
// Una fila sin referencia (kind e id vacíos) devuelve la referencia cero.
func RefFromStorage(kind, id string) (EntityRef, error) {
	if kind == "" && id == "" {
		return EntityRef{}, nil
	}
	ref := EntityRef{kind: EntityKind(kind), id: id}
	if err := ref.Validate(); err != nil {
		return EntityRef{}, err
	}
	return ref, nil
}

func (r EntityRef) Kind() EntityKind { return r.kind }
func (r EntityRef) ID() string       { return r.id }
func (r EntityRef) IsZero() bool     { return r.kind == "" && r.id == "" }

func (r EntityRef) String() string {
	if r.IsZero() {
		return ""
	}
	return string(r.kind) + ":" + r.id
}

// Validate rechaza tipos desconocidos o referencias sin ID.
func (r EntityRef) Validate() error {
	switch r.kind {
	case EntitySale, EntityRepair, EntityPurchaseOrder, EntityPayment, EntityReceipt,
		EntityCancellation, EntityAdjustment, EntityTransfer:
	default:
		return fmt.Errorf("%w: tipo de entidad %q", domain.ErrInvalidInput, r.kind)
	}
	if r.id == "" {
		return fmt.Errorf("%w: referencia %s sin id", domain.ErrInvalidInput, r.kind)
	}
	return nil
}

// IsOrder indica si la referencia es un pedido que consume stock (venta o reparación).
func (r EntityRef) IsOrder() bool {
	return r.kind == EntitySale || r.kind == EntityRepair
}
