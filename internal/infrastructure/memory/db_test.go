package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
	"github.com/jhoicas/taller-core/internal/infrastructure/memory"
)

func TestRun_RollbackDeshaceEscrituras(t *testing.T) {
	db := memory.New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.Run(ctx, func(ctx context.Context, s repository.Store) error {
		rec, err := s.Stock().GetForUpdate(ctx, "P1", "W1")
		require.NoError(t, err)
		rec.Quantity = 10
		require.NoError(t, s.Stock().Save(ctx, rec))
		require.NoError(t, s.Movements().Create(ctx, &entity.StockMovement{ID: "m1", ProductID: "P1", WarehouseID: "W1"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	rec, err := db.Reader().Stock().Get(ctx, "P1", "W1")
	require.NoError(t, err)
	assert.Empty(t, rec.ID)
	assert.Zero(t, rec.Quantity)

	movs, err := db.Reader().Movements().List(ctx, repository.MovementFilter{})
	require.NoError(t, err)
	assert.Empty(t, movs)
}

func TestRun_AfterCommitSoloAlConfirmar(t *testing.T) {
	db := memory.New()
	ctx := context.Background()
	calls := 0

	require.NoError(t, db.Run(ctx, func(ctx context.Context, s repository.Store) error {
		s.AfterCommit(func() { calls++ })
		assert.Zero(t, calls)
		return nil
	}))
	assert.Equal(t, 1, calls)

	_ = db.Run(ctx, func(ctx context.Context, s repository.Store) error {
		s.AfterCommit(func() { calls++ })
		return errors.New("rollback")
	})
	assert.Equal(t, 1, calls)
}

func TestRun_LockTimeout(t *testing.T) {
	db := memory.New(memory.WithLockTimeout(50 * time.Millisecond))
	ctx := context.Background()

	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- db.Run(ctx, func(ctx context.Context, s repository.Store) error {
			if _, err := s.Stock().GetForUpdate(ctx, "P1", "W1"); err != nil {
				return err
			}
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	err := db.Run(ctx, func(ctx context.Context, s repository.Store) error {
		_, err := s.Stock().GetForUpdate(ctx, "P1", "W1")
		return err
	})
	require.ErrorIs(t, err, domain.ErrLockTimeout)

	close(release)
	require.NoError(t, <-done)

	// liberado: se puede volver a tomar
	require.NoError(t, db.Run(ctx, func(ctx context.Context, s repository.Store) error {
		_, err := s.Stock().GetForUpdate(ctx, "P1", "W1")
		return err
	}))
}

func TestSequences_NextSobreviveRollback(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	_ = db.Run(ctx, func(ctx context.Context, s repository.Store) error {
		n, err := s.Sequences().Next(ctx, entity.FamilySale, "V0001")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return errors.New("rollback")
	})

	last, err := db.Reader().Sequences().Last(ctx, entity.FamilySale, "V0001")
	require.NoError(t, err)
	assert.Equal(t, int64(1), last)
}

func TestPurchaseOrders_UpdateLineReceivedRespetaCheck(t *testing.T) {
	db := memory.New()
	ctx := context.Background()
	s := db.Reader()

	require.NoError(t, s.PurchaseOrders().Create(ctx, &entity.PurchaseOrder{
		ID: "O1", Number: "OC-20260115-001", Status: entity.PurchaseOrderPending,
		Lines: []entity.PurchaseOrderLine{{ID: "L1", OrderID: "O1", ProductID: "P1", QuantityOrdered: 5}},
	}))

	err := s.PurchaseOrders().UpdateLineReceived(ctx, &entity.PurchaseOrderLine{ID: "L1", OrderID: "O1", QuantityReceived: 6})
	require.ErrorIs(t, err, domain.ErrExceedsOrdered)

	line, err := s.PurchaseOrders().GetLine(ctx, "L1")
	require.NoError(t, err)
	assert.Zero(t, line.QuantityReceived)
}

func TestDocuments_NumeroUnico(t *testing.T) {
	db := memory.New()
	ctx := context.Background()
	s := db.Reader()

	require.NoError(t, s.Documents().Create(ctx, &entity.Document{ID: "D1", Number: "V0001-000001"}))
	err := s.Documents().Create(ctx, &entity.Document{ID: "D2", Number: "V0001-000001"})
	require.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestWarehouses_UnSoloPrincipal(t *testing.T) {
	db := memory.New()
	ctx := context.Background()
	s := db.Reader()

	require.NoError(t, s.Warehouses().Create(ctx, &entity.Warehouse{ID: "W1", Name: "Main", Principal: true}))
	err := s.Warehouses().Create(ctx, &entity.Warehouse{ID: "W2", Name: "Norte", Principal: true})
	require.ErrorIs(t, err, domain.ErrDuplicate)

	require.NoError(t, s.Warehouses().ClearPrincipal(ctx))
	require.NoError(t, s.Warehouses().Create(ctx, &entity.Warehouse{ID: "W2", Name: "Norte", Principal: true}))

	p, err := s.Warehouses().GetPrincipal(ctx)
	require.NoError(t, err)
	assert.Equal(t, "W2", p.ID)
}
