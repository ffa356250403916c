package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

const stockColumns = `id, product_id, warehouse_id, quantity, minimum, updated_at`

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene el saldo actual de un producto en un depósito sin bloquear.
func (r *StockRepo) Get(ctx context.Context, productID, warehouseID string) (*entity.StockRecord, error) {
	query := `SELECT ` + stockColumns + ` FROM stock_records WHERE product_id = $1 AND warehouse_id = $2`
	s, err := scanStock(r.q.QueryRow(ctx, query, productID, warehouseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.StockRecord{ProductID: productID, WarehouseID: warehouseID}, nil
		}
		return nil, mapError("get stock", err)
	}
	return s, nil
}

// GetForUpdate crea la fila en cero si no existe y la bloquea (SELECT FOR UPDATE).
func (r *StockRepo) GetForUpdate(ctx context.Context, productID, warehouseID string) (*entity.StockRecord, error) {
	insert := `
		INSERT INTO stock_records (id, product_id, warehouse_id, quantity, minimum, updated_at)
		VALUES ($1, $2, $3, 0, 0, now())
		ON CONFLICT (product_id, warehouse_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, uuid.New().String(), productID, warehouseID); err != nil {
		return nil, mapError("ensure stock row", err)
	}
	query := `
		SELECT ` + stockColumns + `
		FROM stock_records WHERE product_id = $1 AND warehouse_id = $2
		FOR UPDATE`
	s, err := scanStock(r.q.QueryRow(ctx, query, productID, warehouseID))
	if err != nil {
		return nil, mapError("get stock for update", err)
	}
	return s, nil
}

// Save persiste cantidad y mínimo. La base rechaza cantidades negativas (stock_records_quantity_check).
func (r *StockRepo) Save(ctx context.Context, s *entity.StockRecord) error {
	query := `UPDATE stock_records SET quantity = $2, minimum = $3, updated_at = $4 WHERE id = $1`
	_, err := r.q.Exec(ctx, query, s.ID, s.Quantity, s.Minimum, s.UpdatedAt)
	return mapError("save stock", err)
}

// ListBelowMinimum saldos por debajo de su mínimo de reposición. warehouseID vacío = todos.
func (r *StockRepo) ListBelowMinimum(ctx context.Context, warehouseID string) ([]*entity.StockRecord, error) {
	query := `
		SELECT ` + stockColumns + `
		FROM stock_records
		WHERE ($1 = '' OR warehouse_id = $1) AND minimum > 0 AND quantity < minimum
		ORDER BY warehouse_id, product_id`
	rows, err := r.q.Query(ctx, query, warehouseID)
	if err != nil {
		return nil, mapError("list below minimum", err)
	}
	defer rows.Close()

	var list []*entity.StockRecord
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, mapError("scan stock", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func scanStock(row pgx.Row) (*entity.StockRecord, error) {
	var s entity.StockRecord
	if err := row.Scan(&s.ID, &s.ProductID, &s.WarehouseID, &s.Quantity, &s.Minimum, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
