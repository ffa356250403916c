package repository

import (
	"context"
	"time"

	"github.com/jhoicas/taller-core/internal/domain/entity"
)

// MovementFilter filtros para listar el libro de movimientos.
type MovementFilter struct {
	ProductID   string
	WarehouseID string
	Reference   entity.EntityRef
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

// StockMovementRepository puerto del libro de movimientos: solo inserción y lectura.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	List(ctx context.Context, filter MovementFilter) ([]*entity.StockMovement, error)
}
