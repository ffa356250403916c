package repository

import (
	"context"

	"github.com/jhoicas/taller-core/internal/domain/entity"
)

// PurchaseOrderRepository persiste órdenes de compra con sus líneas.
type PurchaseOrderRepository interface {
	Create(ctx context.Context, order *entity.PurchaseOrder) error
	GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	// GetForUpdate bloquea la cabecera y sus líneas hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	GetLine(ctx context.Context, lineID string) (*entity.PurchaseOrderLine, error)
	// UpdateLineReceived devuelve domain.ErrExceedsOrdered si la base rechaza la cantidad.
	UpdateLineReceived(ctx context.Context, line *entity.PurchaseOrderLine) error
	UpdateStatus(ctx context.Context, order *entity.PurchaseOrder) error
}
