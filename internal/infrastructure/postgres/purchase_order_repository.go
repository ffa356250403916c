package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
)

var (
	_ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)
	_ repository.ReceiptRepository       = (*ReceiptRepo)(nil)
)

const (
	orderColumns     = `id, number, supplier_id, warehouse_id, status, created_by, created_at, updated_at`
	orderLineColumns = `id, order_id, product_id, qty_ordered, qty_received, unit_price`
)

// PurchaseOrderRepo órdenes de compra con sus líneas (usable con pool o tx).
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

// Create inserta la cabecera y las líneas en un solo batch.
func (r *PurchaseOrderRepo) Create(ctx context.Context, o *entity.PurchaseOrder) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO purchase_orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.Number, o.SupplierID, o.WarehouseID, string(o.Status), o.CreatedBy, o.CreatedAt, o.UpdatedAt,
	)
	for _, l := range o.Lines {
		batch.Queue(`
			INSERT INTO purchase_order_lines (`+orderLineColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			l.ID, o.ID, l.ProductID, l.QuantityOrdered, l.QuantityReceived, l.UnitPrice,
		)
	}
	return execBatch(ctx, r.q, batch, "insert purchase order")
}

// GetByID obtiene la orden con sus líneas sin bloquear.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.load(ctx, id, false)
}

// GetForUpdate bloquea la cabecera y las líneas de la orden.
func (r *PurchaseOrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	return r.load(ctx, id, true)
}

func (r *PurchaseOrderRepo) load(ctx context.Context, id string, forUpdate bool) (*entity.PurchaseOrder, error) {
	lock := ""
	if forUpdate {
		lock = " FOR UPDATE"
	}
	var (
		o      entity.PurchaseOrder
		status string
	)
	err := r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1`+lock, id).Scan(
		&o.ID, &o.Number, &o.SupplierID, &o.WarehouseID, &status, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get purchase order", err)
	}
	o.Status = entity.PurchaseOrderStatus(status)

	rows, err := r.q.Query(ctx, `SELECT `+orderLineColumns+` FROM purchase_order_lines WHERE order_id = $1 ORDER BY seq`+lock, id)
	if err != nil {
		return nil, mapError("get purchase order lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanOrderLine(rows)
		if err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("get purchase order lines", err)
	}
	return &o, nil
}

// GetLine obtiene una línea por ID sin bloquear.
func (r *PurchaseOrderRepo) GetLine(ctx context.Context, lineID string) (*entity.PurchaseOrderLine, error) {
	l, err := scanOrderLine(r.q.QueryRow(ctx, `SELECT `+orderLineColumns+` FROM purchase_order_lines WHERE id = $1`, lineID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return l, nil
}

// UpdateLineReceived persiste lo recibido. El CHECK purchase_order_lines_received_check rechaza
// cualquier valor fuera de [0, ordenado] con domain.ErrExceedsOrdered.
func (r *PurchaseOrderRepo) UpdateLineReceived(ctx context.Context, l *entity.PurchaseOrderLine) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE purchase_order_lines SET qty_received = $3 WHERE id = $1 AND order_id = $2`,
		l.ID, l.OrderID, l.QuantityReceived,
	)
	if err != nil {
		return mapError("update received quantity", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateStatus persiste el estado recalculado.
func (r *PurchaseOrderRepo) UpdateStatus(ctx context.Context, o *entity.PurchaseOrder) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE purchase_orders SET status = $2, updated_at = $3 WHERE id = $1`,
		o.ID, string(o.Status), o.UpdatedAt,
	)
	if err != nil {
		return mapError("update purchase order status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanOrderLine(row pgx.Row) (*entity.PurchaseOrderLine, error) {
	var l entity.PurchaseOrderLine
	if err := row.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.QuantityOrdered, &l.QuantityReceived, &l.UnitPrice); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, mapError("scan purchase order line", err)
	}
	return &l, nil
}

// ReceiptRepo recepciones con sus líneas (solo inserción).
type ReceiptRepo struct {
	q Querier
}

// NewReceiptRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReceiptRepository(q Querier) *ReceiptRepo {
	return &ReceiptRepo{q: q}
}

// Create inserta la recepción y sus líneas en un solo batch.
func (r *ReceiptRepo) Create(ctx context.Context, rc *entity.Receipt) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO receipts (id, number, order_id, warehouse_id, actor_id, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rc.ID, rc.Number, rc.OrderID, rc.WarehouseID, rc.ActorID, rc.ReceivedAt,
	)
	for _, l := range rc.Lines {
		batch.Queue(`
			INSERT INTO receipt_lines (id, receipt_id, order_line_id, product_id, qty_received)
			VALUES ($1, $2, $3, $4, $5)`,
			l.ID, rc.ID, l.OrderLineID, l.ProductID, l.Quantity,
		)
	}
	return execBatch(ctx, r.q, batch, "insert receipt")
}

// ListByOrder lista las recepciones de la orden con sus líneas, en orden de registro.
func (r *ReceiptRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.Receipt, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, number, order_id, warehouse_id, actor_id, received_at
		FROM receipts WHERE order_id = $1 ORDER BY seq`, orderID)
	if err != nil {
		return nil, mapError("list receipts", err)
	}
	var (
		list  []*entity.Receipt
		index = map[string]*entity.Receipt{}
	)
	for rows.Next() {
		var rc entity.Receipt
		if err := rows.Scan(&rc.ID, &rc.Number, &rc.OrderID, &rc.WarehouseID, &rc.ActorID, &rc.ReceivedAt); err != nil {
			rows.Close()
			return nil, mapError("scan receipt", err)
		}
		list = append(list, &rc)
		index[rc.ID] = &rc
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapError("list receipts", err)
	}
	if len(list) == 0 {
		return nil, nil
	}

	lines, err := r.q.Query(ctx, `
		SELECT rl.id, rl.receipt_id, rl.order_line_id, rl.product_id, rl.qty_received
		FROM receipt_lines rl JOIN receipts rc ON rc.id = rl.receipt_id
		WHERE rc.order_id = $1 ORDER BY rl.seq`, orderID)
	if err != nil {
		return nil, mapError("list receipt lines", err)
	}
	defer lines.Close()
	for lines.Next() {
		var l entity.ReceiptLine
		if err := lines.Scan(&l.ID, &l.ReceiptID, &l.OrderLineID, &l.ProductID, &l.Quantity); err != nil {
			return nil, mapError("scan receipt line", err)
		}
		if rc, ok := index[l.ReceiptID]; ok {
			rc.Lines = append(rc.Lines, l)
		}
	}
	return list, lines.Err()
}

// execBatch envía el batch y revisa cada sentencia en orden.
func execBatch(ctx context.Context, q Querier, batch *pgx.Batch, op string) error {
	br := q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return mapError(op, err)
		}
	}
	return mapError(op, br.Close())
}
