package memory

import (
	"context"

	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
)

var _ repository.DocumentRepository = documentRepo{}

type documentRepo struct{ t *tx }

func (r documentRepo) Create(ctx context.Context, doc *entity.Document) error {
	if err := r.t.lock(ctx, "doc:"+doc.ID); err != nil {
		return err
	}
	db := r.t.db
	return r.t.write(func() (func(), error) {
		if _, ok := db.documents[doc.ID]; ok {
			return nil, domain.ErrDuplicate
		}
		if _, ok := db.docNumbers[doc.Number]; ok {
			return nil, domain.ErrDuplicate
		}
		db.documents[doc.ID] = *doc
		db.docNumbers[doc.Number] = doc.ID
		db.docOrder = append(db.docOrder, doc.ID)
		id, number := doc.ID, doc.Number
		return func() {
			delete(db.documents, id)
			delete(db.docNumbers, number)
			for i := len(db.docOrder) - 1; i >= 0; i-- {
				if db.docOrder[i] == id {
					db.docOrder = append(db.docOrder[:i], db.docOrder[i+1:]...)
					break
				}
			}
		}, nil
	})
}

func (r documentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *entity.Document
	r.t.read(func() {
		if d, ok := r.t.db.documents[id]; ok {
			out = &d
		}
	})
	return out, nil
}

func (r documentRepo) GetForUpdate(ctx context.Context, id string) (*entity.Document, error) {
	if err := r.t.lock(ctx, "doc:"+id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r documentRepo) UpdateStatus(ctx context.Context, doc *entity.Document) error {
	if err := r.t.lock(ctx, "doc:"+doc.ID); err != nil {
		return err
	}
	db := r.t.db
	return r.t.write(func() (func(), error) {
		prev, ok := db.documents[doc.ID]
		if !ok {
			return nil, domain.ErrNotFound
		}
		next := prev
		next.Status = doc.Status
		next.StatusReason = doc.StatusReason
		next.UpdatedAt = doc.UpdatedAt
		next.UpdatedBy = doc.UpdatedBy
		db.documents[doc.ID] = next
		return func() { db.documents[prev.ID] = prev }, nil
	})
}

func (r documentRepo) ListByEntity(ctx context.Context, ref entity.EntityRef) ([]*entity.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var list []*entity.Document
	r.t.read(func() {
		for _, id := range r.t.db.docOrder {
			d := r.t.db.documents[id]
			if d.Entity == ref {
				cp := d
				list = append(list, &cp)
			}
		}
	})
	return list, nil
}
