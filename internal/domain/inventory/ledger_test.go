package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/inventory"
)

func TestPlanes(t *testing.T) {
	m, err := inventory.PlanIncrement(10, 5)
	require.NoError(t, err)
	assert.Equal(t, inventory.Mutation{Type: entity.MovementTypeIn, Before: 10, After: 15, Delta: 5}, m)

	m, err = inventory.PlanDecrement(10, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.After)
	assert.Equal(t, int64(-10), m.Delta)

	_, err = inventory.PlanDecrement(10, 11)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	_, err = inventory.PlanIncrement(10, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = inventory.PlanDecrement(10, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	m, err = inventory.PlanAdjust(10, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), m.Delta)
	_, err = inventory.PlanAdjust(10, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = inventory.PlanAdjust(10, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestMutation_Apply(t *testing.T) {
	rec := &entity.StockRecord{ID: "s1", ProductID: "P", WarehouseID: "main", Quantity: 10}
	m, err := inventory.PlanDecrement(rec.Quantity, 6)
	require.NoError(t, err)

	mov := m.Apply(rec)
	assert.Equal(t, int64(4), rec.Quantity)
	assert.Equal(t, "s1", mov.StockRecordID)
	assert.Equal(t, entity.MovementTypeOut, mov.Type)
	assert.Equal(t, int64(10), mov.QuantityBefore)
	assert.Equal(t, int64(4), mov.QuantityAfter)
}

func TestMergeLines(t *testing.T) {
	merged := inventory.MergeLines([]entity.FulfillmentLine{
		{ProductID: "B", WarehouseID: "main", Quantity: 1},
		{ProductID: "A", WarehouseID: "main", Quantity: 2},
		{ProductID: "B", WarehouseID: "main", Quantity: 3},
		{ProductID: "B", WarehouseID: "norte", Quantity: 4},
	})
	assert.Equal(t, []entity.FulfillmentLine{
		{ProductID: "B", WarehouseID: "main", Quantity: 4},
		{ProductID: "A", WarehouseID: "main", Quantity: 2},
		{ProductID: "B", WarehouseID: "norte", Quantity: 4},
	}, merged)
}

func TestLockOrder(t *testing.T) {
	keys := inventory.LockOrder(
		inventory.StockKey{ProductID: "B", WarehouseID: "norte"},
		inventory.StockKey{ProductID: "B", WarehouseID: "main"},
		inventory.StockKey{ProductID: "A", WarehouseID: "main"},
		inventory.StockKey{ProductID: "B", WarehouseID: "main"},
	)
	assert.Equal(t, []inventory.StockKey{
		{ProductID: "A", WarehouseID: "main"},
		{ProductID: "B", WarehouseID: "main"},
		{ProductID: "B", WarehouseID: "norte"},
	}, keys)
}
