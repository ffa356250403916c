package memory

import (
	"context"

	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
)

var (
	_ repository.PurchaseOrderRepository = purchaseOrderRepo{}
	_ repository.ReceiptRepository       = receiptRepo{}
)

type purchaseOrderRepo struct{ t *tx }

func (r purchaseOrderRepo) Create(ctx context.Context, o *entity.PurchaseOrder) error {
	if err := r.t.lock(ctx, "po:"+o.ID); err != nil {
		return err
	}
	db := r.t.db
	return r.t.write(func() (func(), error) {
		if _, ok := db.orders[o.ID]; ok {
			return nil, domain.ErrDuplicate
		}
		if _, ok := db.orderNumbers[o.Number]; ok {
			return nil, domain.ErrDuplicate
		}
		// UNIQUE(order_id, product_id) y CHECK de cantidades.
		products := make(map[string]struct{}, len(o.Lines))
		ids := make([]string, 0, len(o.Lines))
		for _, l := range o.Lines {
			if _, ok := products[l.ProductID]; ok {
				return nil, domain.ErrDuplicate
			}
			if _, ok := db.lines[l.ID]; ok {
				return nil, domain.ErrDuplicate
			}
			if l.QuantityOrdered <= 0 || l.QuantityReceived < 0 || l.QuantityReceived > l.QuantityOrdered {
				return nil, domain.ErrExceedsOrdered
			}
			products[l.ProductID] = struct{}{}
			ids = append(ids, l.ID)
		}
		header := *o
		header.Lines = nil
		db.orders[o.ID] = header
		db.orderNumbers[o.Number] = o.ID
		for _, l := range o.Lines {
			db.lines[l.ID] = l
		}
		db.orderLines[o.ID] = ids
		id, number := o.ID, o.Number
		return func() {
			delete(db.orders, id)
			delete(db.orderNumbers, number)
			for _, lid := range ids {
				delete(db.lines, lid)
			}
			delete(db.orderLines, id)
		}, nil
	})
}

func (r purchaseOrderRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *entity.PurchaseOrder
	r.t.read(func() {
		o, ok := r.t.db.orders[id]
		if !ok {
			return
		}
		for _, lid := range r.t.db.orderLines[id] {
			o.Lines = append(o.Lines, r.t.db.lines[lid])
		}
		out = &o
	})
	return out, nil
}

func (r purchaseOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	if err := r.t.lock(ctx, "po:"+id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r purchaseOrderRepo) GetLine(ctx context.Context, lineID string) (*entity.PurchaseOrderLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *entity.PurchaseOrderLine
	r.t.read(func() {
		if l, ok := r.t.db.lines[lineID]; ok {
			out = &l
		}
	})
	return out, nil
}

func (r purchaseOrderRepo) UpdateLineReceived(ctx context.Context, line *entity.PurchaseOrderLine) error {
	if err := r.t.lock(ctx, "po:"+line.OrderID); err != nil {
		return err
	}
	db := r.t.db
	return r.t.write(func() (func(), error) {
		prev, ok := db.lines[line.ID]
		if !ok || prev.OrderID != line.OrderID {
			return nil, domain.ErrNotFound
		}
		// CHECK (quantity_received BETWEEN 0 AND quantity_ordered)
		if line.QuantityReceived < 0 || line.QuantityReceived > prev.QuantityOrdered {
			return nil, domain.ErrExceedsOrdered
		}
		next := prev
		next.QuantityReceived = line.QuantityReceived
		db.lines[line.ID] = next
		return func() { db.lines[prev.ID] = prev }, nil
	})
}

func (r purchaseOrderRepo) UpdateStatus(ctx context.Context, o *entity.PurchaseOrder) error {
	if err := r.t.lock(ctx, "po:"+o.ID); err != nil {
		return err
	}
	db := r.t.db
	return r.t.write(func() (func(), error) {
		prev, ok := db.orders[o.ID]
		if !ok {
			return nil, domain.ErrNotFound
		}
		next := prev
		next.Status = o.Status
		next.UpdatedAt = o.UpdatedAt
		db.orders[o.ID] = next
		return func() { db.orders[prev.ID] = prev }, nil
	})
}

type receiptRepo struct{ t *tx }

func (r receiptRepo) Create(ctx context.Context, rc *entity.Receipt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db := r.t.db
	return r.t.write(func() (func(), error) {
		for _, o := range db.receipts {
			if o.ID == rc.ID || o.Number == rc.Number {
				return nil, domain.ErrDuplicate
			}
		}
		cp := *rc
		cp.Lines = append([]entity.ReceiptLine(nil), rc.Lines...)
		db.receipts = append(db.receipts, cp)
		id := rc.ID
		return func() {
			for i := len(db.receipts) - 1; i >= 0; i-- {
				if db.receipts[i].ID == id {
					db.receipts = append(db.receipts[:i], db.receipts[i+1:]...)
					return
				}
			}
		}, nil
	})
}

func (r receiptRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var list []*entity.Receipt
	r.t.read(func() {
		for _, rc := range r.t.db.receipts {
			if rc.OrderID == orderID {
				cp := rc
				cp.Lines = append([]entity.ReceiptLine(nil), rc.Lines...)
				list = append(list, &cp)
			}
		}
	})
	return list, nil
}
