package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/taller-core/internal/application/inventory"
	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
	"github.com/jhoicas/taller-core/internal/infrastructure/memory"
	"github.com/jhoicas/taller-core/pkg/logger"
)

const actor = "user-1"

type fakeCache struct {
	mu          sync.Mutex
	values      map[string]int64
	invalidated []string
}

func newFakeCache() *fakeCache { return &fakeCache{values: map[string]int64{}} }

func (c *fakeCache) Get(_ context.Context, p, w string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[p+"|"+w]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, p, w string, qty int64, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[p+"|"+w] = qty
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, p, w string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, p+"|"+w)
	c.invalidated = append(c.invalidated, p+"|"+w)
	return nil
}

func setup(t *testing.T, cache inventory.BalanceCache) (*memory.DB, *inventory.Ledger) {
	t.Helper()
	db := memory.New(memory.WithLockTimeout(time.Second))
	ctx := context.Background()
	for _, w := range []entity.Warehouse{{ID: "main", Name: "Main", Principal: true}, {ID: "norte", Name: "Norte"}} {
		w := w
		require.NoError(t, db.Reader().Warehouses().Create(ctx, &w))
	}
	cfg := inventory.Config{CacheTTL: time.Minute}
	return db, inventory.NewLedger(db, db.Reader(), cfg, cache, logger.Nop(), nil)
}

func in(product, warehouse string, qty int64) inventory.MovementInput {
	return inventory.MovementInput{ProductID: product, WarehouseID: warehouse, Quantity: qty, ActorID: actor}
}

func TestIncrement_CreaSaldoYMovimiento(t *testing.T) {
	_, l := setup(t, nil)
	ctx := context.Background()

	mov, err := l.Increment(ctx, in("P", "main", 10))
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeIn, mov.Type)
	assert.Equal(t, int64(0), mov.QuantityBefore)
	assert.Equal(t, int64(10), mov.QuantityAfter)
	assert.Equal(t, actor, mov.ActorID)

	qty, err := l.Available(ctx, "P", "main")
	require.NoError(t, err)
	assert.Equal(t, int64(10), qty)
}

func TestIncrementDecrement_Validaciones(t *testing.T) {
	_, l := setup(t, nil)
	ctx := context.Background()

	_, err := l.Increment(ctx, in("P", "main", 0))
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = l.Decrement(ctx, in("P", "main", -3))
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = l.Increment(ctx, in("", "main", 1))
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	noActor := in("P", "main", 1)
	noActor.ActorID = ""
	_, err = l.Increment(ctx, noActor)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = l.Increment(ctx, in("P", "no-existe", 1))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDecrement_InsuficienteNoCambiaSaldo(t *testing.T) {
	db, l := setup(t, nil)
	ctx := context.Background()

	_, err := l.Increment(ctx, in("P", "main", 5))
	require.NoError(t, err)

	_, err = l.Decrement(ctx, in("P", "main", 6))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, "P", ise.ProductID)
	assert.Equal(t, "main", ise.WarehouseID)
	assert.Equal(t, int64(6), ise.Requested)
	assert.Equal(t, int64(5), ise.Available)

	qty, err := l.Available(ctx, "P", "main")
	require.NoError(t, err)
	assert.Equal(t, int64(5), qty)

	movs, err := db.Reader().Movements().List(ctx, repository.MovementFilter{ProductID: "P"})
	require.NoError(t, err)
	assert.Len(t, movs, 1)
}

// Main tiene 10 unidades de P; dos ventas concurrentes de 6: solo una gana.
func TestDecrement_DosVentasConcurrentes(t *testing.T) {
	db, l := setup(t, nil)
	ctx := context.Background()
	_, err := l.Increment(ctx, in("P", "main", 10))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sale := in("P", "main", 6)
			sale.Reference = entity.SaleRef([]string{"S1", "S2"}[i])
			_, results[i] = l.Decrement(ctx, sale)
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)

	qty, err := l.Available(ctx, "P", "main")
	require.NoError(t, err)
	assert.Equal(t, int64(4), qty)

	outs, err := db.Reader().Movements().List(ctx, repository.MovementFilter{ProductID: "P"})
	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.Equal(t, int64(-6), outs[1].Delta)
}

func TestLedger_ConcurrenciaConservaSuma(t *testing.T) {
	_, l := setup(t, nil)
	ctx := context.Background()
	_, err := l.Increment(ctx, in("P", "main", 100))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 60)
	for i := 0; i < 30; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := l.Increment(ctx, in("P", "main", 3))
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := l.Decrement(ctx, in("P", "main", 2))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	qty, err := l.Available(ctx, "P", "main")
	require.NoError(t, err)
	assert.Equal(t, int64(100+30*3-30*2), qty)
}

func TestAvailable_CacheInvalidadaTrasCommit(t *testing.T) {
	cache := newFakeCache()
	_, l := setup(t, cache)
	ctx := context.Background()

	_, err := l.Increment(ctx, in("P", "main", 4))
	require.NoError(t, err)
	assert.Equal(t, []string{"P|main"}, cache.invalidated)

	qty, err := l.Available(ctx, "P", "main")
	require.NoError(t, err)
	assert.Equal(t, int64(4), qty)
	v, ok, _ := cache.Get(ctx, "P", "main")
	require.True(t, ok)
	assert.Equal(t, int64(4), v)

	// un fallo no invalida: la transacción revertida no ejecuta el hook
	_, err = l.Decrement(ctx, in("P", "main", 9))
	require.Error(t, err)
	assert.Len(t, cache.invalidated, 1)

	_, err = l.Decrement(ctx, in("P", "main", 1))
	require.NoError(t, err)
	_, ok, _ = cache.Get(ctx, "P", "main")
	assert.False(t, ok)
}

func TestAdjust(t *testing.T) {
	db, l := setup(t, nil)
	ctx := context.Background()
	_, err := l.Increment(ctx, in("P", "main", 10))
	require.NoError(t, err)

	_, err = l.Adjust(ctx, inventory.AdjustInput{ProductID: "P", WarehouseID: "main", Counted: 7, ActorID: actor})
	require.ErrorIs(t, err, domain.ErrMissingReason)

	_, err = l.Adjust(ctx, inventory.AdjustInput{ProductID: "P", WarehouseID: "main", Counted: 10, Reason: "conteo", ActorID: actor})
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	mov, err := l.Adjust(ctx, inventory.AdjustInput{ProductID: "P", WarehouseID: "main", Counted: 7, Reason: "conteo", ActorID: actor})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeAdjust, mov.Type)
	assert.Equal(t, int64(-3), mov.Delta)
	assert.Equal(t, entity.EntityAdjustment, mov.Reference.Kind())

	rec, err := db.Reader().Stock().Get(ctx, "P", "main")
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.Quantity)
}

func TestTransfer(t *testing.T) {
	_, l := setup(t, nil)
	ctx := context.Background()
	_, err := l.Increment(ctx, in("P", "main", 10))
	require.NoError(t, err)

	movs, err := l.Transfer(ctx, inventory.TransferInput{ProductID: "P", FromWarehouseID: "main", ToWarehouseID: "norte", Quantity: 4, ActorID: actor})
	require.NoError(t, err)
	require.Len(t, movs, 2)
	assert.Equal(t, movs[0].Reference, movs[1].Reference)

	origin, _ := l.Available(ctx, "P", "main")
	norte, _ := l.Available(ctx, "P", "norte")
	assert.Equal(t, int64(6), origin)
	assert.Equal(t, int64(4), norte)

	_, err = l.Transfer(ctx, inventory.TransferInput{ProductID: "P", FromWarehouseID: "main", ToWarehouseID: "norte", Quantity: 7, ActorID: actor})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	norte, _ = l.Available(ctx, "P", "norte")
	assert.Equal(t, int64(4), norte)

	_, err = l.Transfer(ctx, inventory.TransferInput{ProductID: "P", FromWarehouseID: "main", ToWarehouseID: "main", Quantity: 1, ActorID: actor})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSetMinimumYBelowMinimum(t *testing.T) {
	_, l := setup(t, nil)
	ctx := context.Background()
	_, err := l.Increment(ctx, in("P", "main", 2))
	require.NoError(t, err)
	_, err = l.Increment(ctx, in("Q", "main", 20))
	require.NoError(t, err)

	_, err = l.SetMinimum(ctx, "P", "main", 5)
	require.NoError(t, err)
	_, err = l.SetMinimum(ctx, "Q", "main", 5)
	require.NoError(t, err)
	_, err = l.SetMinimum(ctx, "Q", "main", -1)
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	list, err := l.BelowMinimum(ctx, "main")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "P", list[0].ProductID)
}

func TestMovements_FiltraPorReferencia(t *testing.T) {
	_, l := setup(t, nil)
	ctx := context.Background()
	_, err := l.Increment(ctx, in("P", "main", 10))
	require.NoError(t, err)
	sale := in("P", "main", 2)
	sale.Reference = entity.SaleRef("S-9")
	_, err = l.Decrement(ctx, sale)
	require.NoError(t, err)

	list, err := l.Movements(ctx, repository.MovementFilter{Reference: entity.SaleRef("S-9")})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(-2), list[0].Delta)
}
