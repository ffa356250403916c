package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
)

var _ repository.FulfillmentRepository = (*FulfillmentRepo)(nil)

const fulfillmentColumns = `id, order_type, order_id, status, applied_by, applied_at,
		reversed_by, reversed_at, reverse_reason`

// FulfillmentRepo consumo de stock por pedido (uno por pedido, UNIQUE(order_type, order_id)).
type FulfillmentRepo struct {
	q Querier
}

// NewFulfillmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFulfillmentRepository(q Querier) *FulfillmentRepo {
	return &FulfillmentRepo{q: q}
}

// Get obtiene el consumo del pedido sin bloquear.
func (r *FulfillmentRepo) Get(ctx context.Context, order entity.EntityRef) (*entity.Fulfillment, error) {
	return r.load(ctx, order, false)
}

// GetForUpdate bloquea la fila del consumo si existe. Dos Apply concurrentes de un pedido sin
// consumo se serializan en la clave única al insertar.
func (r *FulfillmentRepo) GetForUpdate(ctx context.Context, order entity.EntityRef) (*entity.Fulfillment, error) {
	return r.load(ctx, order, true)
}

func (r *FulfillmentRepo) load(ctx context.Context, order entity.EntityRef, forUpdate bool) (*entity.Fulfillment, error) {
	query := `SELECT ` + fulfillmentColumns + ` FROM fulfillments WHERE order_type = $1 AND order_id = $2`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var (
		f                entity.Fulfillment
		orderType, ordID string
		status           string
	)
	err := r.q.QueryRow(ctx, query, string(order.Kind()), order.ID()).Scan(
		&f.ID, &orderType, &ordID, &status, &f.AppliedBy, &f.AppliedAt,
		&f.ReversedBy, &f.ReversedAt, &f.ReverseReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get fulfillment", err)
	}
	ref, err := entity.RefFromStorage(orderType, ordID)
	if err != nil {
		return nil, err
	}
	f.Order = ref
	f.Status = entity.FulfillmentStatus(status)

	rows, err := r.q.Query(ctx, `
		SELECT product_id, warehouse_id, quantity
		FROM fulfillment_lines WHERE fulfillment_id = $1 ORDER BY line_no`, f.ID)
	if err != nil {
		return nil, mapError("get fulfillment lines", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.FulfillmentLine
		if err := rows.Scan(&l.ProductID, &l.WarehouseID, &l.Quantity); err != nil {
			return nil, mapError("scan fulfillment line", err)
		}
		f.Lines = append(f.Lines, l)
	}
	return &f, rows.Err()
}

// Create inserta el consumo con sus líneas. Pedido ya registrado = domain.ErrDuplicate.
func (r *FulfillmentRepo) Create(ctx context.Context, f *entity.Fulfillment) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO fulfillments (`+fulfillmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		f.ID, string(f.Order.Kind()), f.Order.ID(), string(f.Status), f.AppliedBy, f.AppliedAt,
		f.ReversedBy, f.ReversedAt, f.ReverseReason,
	)
	for i, l := range f.Lines {
		batch.Queue(`
			INSERT INTO fulfillment_lines (fulfillment_id, line_no, product_id, warehouse_id, quantity)
			VALUES ($1, $2, $3, $4, $5)`,
			f.ID, i+1, l.ProductID, l.WarehouseID, l.Quantity,
		)
	}
	return execBatch(ctx, r.q, batch, "insert fulfillment")
}

// Update persiste el estado de reversión.
func (r *FulfillmentRepo) Update(ctx context.Context, f *entity.Fulfillment) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE fulfillments SET status = $2, reversed_by = $3, reversed_at = $4, reverse_reason = $5
		WHERE id = $1`,
		f.ID, string(f.Status), f.ReversedBy, f.ReversedAt, f.ReverseReason,
	)
	if err != nil {
		return mapError("update fulfillment", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
