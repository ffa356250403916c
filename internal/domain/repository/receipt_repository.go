package repository

import (
	"context"

	"github.com/jhoicas/taller-core/internal/domain/entity"
)

// ReceiptRepository persiste recepciones (solo inserción).
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.Receipt) error
	ListByOrder(ctx context.Context, orderID string) ([]*entity.Receipt, error)
}
