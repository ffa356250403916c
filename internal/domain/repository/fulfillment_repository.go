package repository

import (
	"context"

	"github.com/jhoicas/taller-core/internal/domain/entity"
)

// FulfillmentRepository persiste el consumo de stock de cada pedido (uno por pedido).
type FulfillmentRepository interface {
	Get(ctx context.Context, order entity.EntityRef) (*entity.Fulfillment, error)
	GetForUpdate(ctx context.Context, order entity.EntityRef) (*entity.Fulfillment, error)
	// Create devuelve domain.ErrDuplicate si el pedido ya tiene consumo registrado.
	Create(ctx context.Context, f *entity.Fulfillment) error
	Update(ctx context.Context, f *entity.Fulfillment) error
}
