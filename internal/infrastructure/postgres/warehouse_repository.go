package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
)

var _ repository.WarehouseRepository = (*WarehouseRepo)(nil)

const warehouseColumns = `id, name, address, principal, created_at, updated_at`

// WarehouseRepo implementación del puerto WarehouseRepository sobre PostgreSQL (usable con pool o tx).
type WarehouseRepo struct {
	q Querier
}

// NewWarehouseRepository construye el adaptador de persistencia para depósitos.
func NewWarehouseRepository(q Querier) *WarehouseRepo {
	return &WarehouseRepo{q: q}
}

// Create persiste un nuevo depósito. Nombre repetido o segundo principal = domain.ErrDuplicate.
func (r *WarehouseRepo) Create(ctx context.Context, w *entity.Warehouse) error {
	query := `
		INSERT INTO warehouses (id, name, address, principal, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query, w.ID, w.Name, w.Address, w.Principal, w.CreatedAt, w.UpdatedAt)
	return mapError("insert warehouse", err)
}

// GetByID obtiene un depósito por ID.
func (r *WarehouseRepo) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	return r.getOne(ctx, "get warehouse", `SELECT `+warehouseColumns+` FROM warehouses WHERE id = $1`, id)
}

// GetByName obtiene un depósito por nombre.
func (r *WarehouseRepo) GetByName(ctx context.Context, name string) (*entity.Warehouse, error) {
	return r.getOne(ctx, "get warehouse by name", `SELECT `+warehouseColumns+` FROM warehouses WHERE name = $1`, name)
}

// GetPrincipal obtiene el depósito principal.
func (r *WarehouseRepo) GetPrincipal(ctx context.Context) (*entity.Warehouse, error) {
	return r.getOne(ctx, "get principal warehouse", `SELECT `+warehouseColumns+` FROM warehouses WHERE principal`)
}

func (r *WarehouseRepo) getOne(ctx context.Context, op, query string, args ...any) (*entity.Warehouse, error) {
	var w entity.Warehouse
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&w.ID, &w.Name, &w.Address, &w.Principal, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return &w, nil
}

// Update actualiza un depósito existente.
func (r *WarehouseRepo) Update(ctx context.Context, w *entity.Warehouse) error {
	query := `
		UPDATE warehouses SET name = $2, address = $3, principal = $4, updated_at = $5
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query, w.ID, w.Name, w.Address, w.Principal, w.UpdatedAt)
	return mapError("update warehouse", err)
}

// ClearPrincipal quita la marca de principal.
func (r *WarehouseRepo) ClearPrincipal(ctx context.Context) error {
	_, err := r.q.Exec(ctx, `UPDATE warehouses SET principal = false, updated_at = now() WHERE principal`)
	return mapError("clear principal warehouse", err)
}

// List lista depósitos ordenados por nombre con paginación.
func (r *WarehouseRepo) List(ctx context.Context, limit, offset int) ([]*entity.Warehouse, error) {
	query := `SELECT ` + warehouseColumns + ` FROM warehouses ORDER BY name LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, mapError("list warehouses", err)
	}
	defer rows.Close()

	var list []*entity.Warehouse
	for rows.Next() {
		var w entity.Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.Address, &w.Principal, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, mapError("scan warehouse", err)
		}
		list = append(list, &w)
	}
	return list, rows.Err()
}
