package memory

import (
	"context"

	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
)

var _ repository.FulfillmentRepository = fulfillmentRepo{}

type fulfillmentRepo struct{ t *tx }

func copyFulfillment(f entity.Fulfillment) *entity.Fulfillment {
	f.Lines = append([]entity.FulfillmentLine(nil), f.Lines...)
	if f.ReversedAt != nil {
		at := *f.ReversedAt
		f.ReversedAt = &at
	}
	return &f
}

func (r fulfillmentRepo) Get(ctx context.Context, order entity.EntityRef) (*entity.Fulfillment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *entity.Fulfillment
	r.t.read(func() {
		if f, ok := r.t.db.fulfillments[order.String()]; ok {
			out = copyFulfillment(f)
		}
	})
	return out, nil
}

// GetForUpdate bloquea la clave del pedido aunque todavía no tenga consumo registrado.
func (r fulfillmentRepo) GetForUpdate(ctx context.Context, order entity.EntityRef) (*entity.Fulfillment, error) {
	if err := r.t.lock(ctx, "ful:"+order.String()); err != nil {
		return nil, err
	}
	return r.Get(ctx, order)
}

func (r fulfillmentRepo) Create(ctx context.Context, f *entity.Fulfillment) error {
	key := f.Order.String()
	if err := r.t.lock(ctx, "ful:"+key); err != nil {
		return err
	}
	db := r.t.db
	return r.t.write(func() (func(), error) {
		if _, ok := db.fulfillments[key]; ok {
			return nil, domain.ErrDuplicate
		}
		db.fulfillments[key] = *copyFulfillment(*f)
		return func() { delete(db.fulfillments, key) }, nil
	})
}

func (r fulfillmentRepo) Update(ctx context.Context, f *entity.Fulfillment) error {
	key := f.Order.String()
	if err := r.t.lock(ctx, "ful:"+key); err != nil {
		return err
	}
	db := r.t.db
	return r.t.write(func() (func(), error) {
		prev, ok := db.fulfillments[key]
		if !ok {
			return nil, domain.ErrNotFound
		}
		db.fulfillments[key] = *copyFulfillment(*f)
		return func() { db.fulfillments[key] = prev }, nil
	})
}
