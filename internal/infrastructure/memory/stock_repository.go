package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/inventory"
	"github.com/jhoicas/taller-core/internal/domain/repository"
)

var (
	_ repository.StockRepository         = stockRepo{}
	_ repository.StockMovementRepository = movementRepo{}
)

type stockRepo struct{ t *tx }

func stockLock(k inventory.StockKey) string {
	return "stock:" + k.ProductID + "|" + k.WarehouseID
}

func (r stockRepo) Get(ctx context.Context, productID, warehouseID string) (*entity.StockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k := inventory.StockKey{ProductID: productID, WarehouseID: warehouseID}
	out := &entity.StockRecord{ProductID: productID, WarehouseID: warehouseID}
	r.t.read(func() {
		if rec, ok := r.t.db.stock[k]; ok {
			*out = rec
		}
	})
	return out, nil
}

func (r stockRepo) GetForUpdate(ctx context.Context, productID, warehouseID string) (*entity.StockRecord, error) {
	k := inventory.StockKey{ProductID: productID, WarehouseID: warehouseID}
	if err := r.t.lock(ctx, stockLock(k)); err != nil {
		return nil, err
	}
	db := r.t.db
	var out entity.StockRecord
	err := r.t.write(func() (func(), error) {
		if rec, ok := db.stock[k]; ok {
			out = rec
			return nil, nil
		}
		out = entity.StockRecord{ID: uuid.New().String(), ProductID: productID, WarehouseID: warehouseID}
		db.stock[k] = out
		return func() { delete(db.stock, k) }, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r stockRepo) Save(ctx context.Context, stock *entity.StockRecord) error {
	k := inventory.StockKey{ProductID: stock.ProductID, WarehouseID: stock.WarehouseID}
	if err := r.t.lock(ctx, stockLock(k)); err != nil {
		return err
	}
	db := r.t.db
	return r.t.write(func() (func(), error) {
		// CHECK (quantity >= 0)
		if stock.Quantity < 0 {
			return nil, domain.ErrInsufficientStock
		}
		prev, existed := db.stock[k]
		rec := *stock
		if rec.ID == "" {
			rec.ID = prev.ID
		}
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		db.stock[k] = rec
		return func() {
			if existed {
				db.stock[k] = prev
				return
			}
			delete(db.stock, k)
		}, nil
	})
}

func (r stockRepo) ListBelowMinimum(ctx context.Context, warehouseID string) ([]*entity.StockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var list []*entity.StockRecord
	r.t.read(func() {
		for _, rec := range r.t.db.stock {
			if warehouseID != "" && rec.WarehouseID != warehouseID {
				continue
			}
			if rec.BelowMinimum() {
				cp := rec
				list = append(list, &cp)
			}
		}
	})
	sort.Slice(list, func(i, j int) bool {
		if list[i].WarehouseID != list[j].WarehouseID {
			return list[i].WarehouseID < list[j].WarehouseID
		}
		return list[i].ProductID < list[j].ProductID
	})
	return list, nil
}

type movementRepo struct{ t *tx }

func (r movementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db := r.t.db
	return r.t.write(func() (func(), error) {
		for _, o := range db.movements {
			if o.ID == m.ID {
				return nil, domain.ErrDuplicate
			}
		}
		db.movements = append(db.movements, *m)
		id := m.ID
		return func() {
			for i := len(db.movements) - 1; i >= 0; i-- {
				if db.movements[i].ID == id {
					db.movements = append(db.movements[:i], db.movements[i+1:]...)
					return
				}
			}
		}, nil
	})
}

func (r movementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var list []*entity.StockMovement
	r.t.read(func() {
		for _, m := range r.t.db.movements {
			if f.ProductID != "" && m.ProductID != f.ProductID {
				continue
			}
			if f.WarehouseID != "" && m.WarehouseID != f.WarehouseID {
				continue
			}
			if !f.Reference.IsZero() && m.Reference != f.Reference {
				continue
			}
			if f.From != nil && m.CreatedAt.Before(*f.From) {
				continue
			}
			if f.To != nil && !m.CreatedAt.Before(*f.To) {
				continue
			}
			cp := m
			list = append(list, &cp)
		}
	})
	return page(list, f.Limit, f.Offset), nil
}
