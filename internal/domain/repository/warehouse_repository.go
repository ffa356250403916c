package repository

import (
	"context"

	"github.com/jhoicas/taller-core/internal/domain/entity"
)

// WarehouseRepository define el puerto de persistencia para depósitos.
// Los Get devuelven (nil, nil) cuando no existe el registro.
type WarehouseRepository interface {
	Create(ctx context.Context, warehouse *entity.Warehouse) error
	GetByID(ctx context.Context, id string) (*entity.Warehouse, error)
	GetByName(ctx context.Context, name string) (*entity.Warehouse, error)
	GetPrincipal(ctx context.Context) (*entity.Warehouse, error)
	Update(ctx context.Context, warehouse *entity.Warehouse) error
	// ClearPrincipal quita la marca de principal a todos los depósitos.
	ClearPrincipal(ctx context.Context) error
	List(ctx context.Context, limit, offset int) ([]*entity.Warehouse, error)
}
