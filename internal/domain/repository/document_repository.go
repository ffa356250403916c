package repository

import (
	"context"

	"github.com/jhoicas/taller-core/internal/domain/entity"
)

// DocumentRepository define el puerto de persistencia para comprobantes.
type DocumentRepository interface {
	// Create devuelve domain.ErrDuplicate si el número ya existe.
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Document, error)
	UpdateStatus(ctx context.Context, doc *entity.Document) error
	ListByEntity(ctx context.Context, ref entity.EntityRef) ([]*entity.Document, error)
}
