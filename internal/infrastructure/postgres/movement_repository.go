package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*MovementRepo)(nil)

const movementColumns = `id, stock_record_id, product_id, warehouse_id, type, delta, qty_before, qty_after,
		reason, ref_type, ref_id, actor_id, created_at`

// MovementRepo libro de movimientos sobre PostgreSQL (usable con pool o tx). Solo inserción.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create persiste un movimiento.
func (r *MovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.StockRecordID, m.ProductID, m.WarehouseID, string(m.Type), m.Delta,
		m.QuantityBefore, m.QuantityAfter, m.Reason,
		string(m.Reference.Kind()), m.Reference.ID(), m.ActorID, m.CreatedAt,
	)
	return mapError("create stock movement", err)
}

// List lista movimientos en orden de registro aplicando los filtros presentes.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE true`
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(" AND "+cond, len(args))
	}
	if f.ProductID != "" {
		add("product_id = $%d", f.ProductID)
	}
	if f.WarehouseID != "" {
		add("warehouse_id = $%d", f.WarehouseID)
	}
	if !f.Reference.IsZero() {
		add("ref_type = $%d", string(f.Reference.Kind()))
		add("ref_id = $%d", f.Reference.ID())
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	query += " ORDER BY seq"
	if f.Limit > 0 {
		args = append(args, f.Limit, f.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list stock movements", err)
	}
	defer rows.Close()

	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var (
		m                       entity.StockMovement
		movType, refType, refID string
	)
	if err := row.Scan(&m.ID, &m.StockRecordID, &m.ProductID, &m.WarehouseID, &movType, &m.Delta,
		&m.QuantityBefore, &m.QuantityAfter, &m.Reason, &refType, &refID, &m.ActorID, &m.CreatedAt); err != nil {
		return nil, mapError("scan stock movement", err)
	}
	ref, err := entity.RefFromStorage(refType, refID)
	if err != nil {
		return nil, fmt.Errorf("movimiento %s: %w", m.ID, err)
	}
	m.Type = entity.MovementType(movType)
	m.Reference = ref
	return &m, nil
}
