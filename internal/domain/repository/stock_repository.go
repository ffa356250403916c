package repository

import (
	"context"

	"github.com/jhoicas/taller-core/internal/domain/entity"
)

// StockRepository define el puerto para consultar y actualizar saldos por producto+depósito.
type StockRepository interface {
	// Get lee sin bloquear; si no hay fila devuelve un registro en cero sin ID.
	Get(ctx context.Context, productID, warehouseID string) (*entity.StockRecord, error)
	// GetForUpdate crea la fila si no existe y la bloquea hasta el fin de la transacción
	// (SELECT ... FOR UPDATE).
	GetForUpdate(ctx context.Context, productID, warehouseID string) (*entity.StockRecord, error)
	// Save persiste cantidad y mínimo de un registro obtenido con GetForUpdate.
	Save(ctx context.Context, stock *entity.StockRecord) error
	ListBelowMinimum(ctx context.Context, warehouseID string) ([]*entity.StockRecord, error)
}
