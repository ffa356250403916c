package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
)

var _ repository.WarehouseRepository = warehouseRepo{}

// principalLock serializa los cambios de la marca de principal (índice único parcial en SQL).
const principalLock = "wh:principal"

type warehouseRepo struct{ t *tx }

func (r warehouseRepo) lockFor(ctx context.Context, w *entity.Warehouse) error {
	if w.Principal {
		if err := r.t.lock(ctx, principalLock); err != nil {
			return err
		}
	}
	return r.t.lock(ctx, "wh:"+w.ID)
}

// conflicts emula UNIQUE(name) y el índice parcial sobre principal.
func (r warehouseRepo) conflicts(w *entity.Warehouse) bool {
	for id, o := range r.t.db.warehouses {
		if id == w.ID {
			continue
		}
		if o.Name == w.Name || (w.Principal && o.Principal) {
			return true
		}
	}
	return false
}

func (r warehouseRepo) Create(ctx context.Context, w *entity.Warehouse) error {
	if err := r.lockFor(ctx, w); err != nil {
		return err
	}
	db := r.t.db
	return r.t.write(func() (func(), error) {
		if _, ok := db.warehouses[w.ID]; ok || r.conflicts(w) {
			return nil, domain.ErrDuplicate
		}
		db.warehouses[w.ID] = *w
		id := w.ID
		return func() { delete(db.warehouses, id) }, nil
	})
}

func (r warehouseRepo) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	return r.find(ctx, func(w entity.Warehouse) bool { return w.ID == id })
}

func (r warehouseRepo) GetByName(ctx context.Context, name string) (*entity.Warehouse, error) {
	return r.find(ctx, func(w entity.Warehouse) bool { return w.Name == name })
}

func (r warehouseRepo) GetPrincipal(ctx context.Context) (*entity.Warehouse, error) {
	return r.find(ctx, func(w entity.Warehouse) bool { return w.Principal })
}

func (r warehouseRepo) find(ctx context.Context, match func(entity.Warehouse) bool) (*entity.Warehouse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *entity.Warehouse
	r.t.read(func() {
		for _, w := range r.t.db.warehouses {
			if match(w) {
				cp := w
				out = &cp
				return
			}
		}
	})
	return out, nil
}

func (r warehouseRepo) Update(ctx context.Context, w *entity.Warehouse) error {
	if err := r.lockFor(ctx, w); err != nil {
		return err
	}
	db := r.t.db
	return r.t.write(func() (func(), error) {
		prev, ok := db.warehouses[w.ID]
		if !ok {
			return nil, domain.ErrNotFound
		}
		if r.conflicts(w) {
			return nil, domain.ErrDuplicate
		}
		db.warehouses[w.ID] = *w
		return func() { db.warehouses[prev.ID] = prev }, nil
	})
}

func (r warehouseRepo) ClearPrincipal(ctx context.Context) error {
	if err := r.t.lock(ctx, principalLock); err != nil {
		return err
	}
	db := r.t.db
	return r.t.write(func() (func(), error) {
		var cleared []entity.Warehouse
		for id, w := range db.warehouses {
			if w.Principal {
				cleared = append(cleared, w)
				w.Principal = false
				db.warehouses[id] = w
			}
		}
		return func() {
			for _, w := range cleared {
				db.warehouses[w.ID] = w
			}
		}, nil
	})
}

func (r warehouseRepo) List(ctx context.Context, limit, offset int) ([]*entity.Warehouse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var list []*entity.Warehouse
	r.t.read(func() {
		for _, w := range r.t.db.warehouses {
			cp := w
			list = append(list, &cp)
		}
	})
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return page(list, limit, offset), nil
}

// page aplica LIMIT/OFFSET; limit <= 0 devuelve todo desde offset.
func page[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
