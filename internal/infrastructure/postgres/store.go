package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/taller-core/internal/domain/repository"
)

// Querier es lo común entre *pgxpool.Pool y pgx.Tx: los repositorios funcionan con cualquiera.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

var (
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (pgx.Tx)(nil)
)

// store agrupa los repositorios sobre un mismo Querier. hooks es nil fuera de una transacción.
// seqPool atiende las reservas de numeración fuera de la transacción.
type store struct {
	q       Querier
	seqPool *pgxpool.Pool
	hooks   *[]func()
}

// NewReader devuelve un Store sobre el pool, sin transacción: lecturas sin bloqueo.
func NewReader(pool *pgxpool.Pool) repository.Store {
	return &store{q: pool, seqPool: pool}
}

func (s *store) Warehouses() repository.WarehouseRepository { return NewWarehouseRepository(s.q) }
func (s *store) Stock() repository.StockRepository          { return NewStockRepository(s.q) }
func (s *store) Movements() repository.StockMovementRepository {
	return NewMovementRepository(s.q)
}
func (s *store) Sequences() repository.SequenceRepository { return NewSequenceRepository(s.q, s.seqPool) }
func (s *store) Documents() repository.DocumentRepository { return NewDocumentRepository(s.q) }
func (s *store) PurchaseOrders() repository.PurchaseOrderRepository {
	return NewPurchaseOrderRepository(s.q)
}
func (s *store) Receipts() repository.ReceiptRepository { return NewReceiptRepository(s.q) }
func (s *store) Fulfillments() repository.FulfillmentRepository {
	return NewFulfillmentRepository(s.q)
}

func (s *store) AfterCommit(fn func()) {
	if s.hooks == nil {
		fn()
		return
	}
	*s.hooks = append(*s.hooks, fn)
}
