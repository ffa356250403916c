package metrics_test

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/taller-core/internal/application/inventory"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/infrastructure/memory"
	"github.com/jhoicas/taller-core/internal/infrastructure/metrics"
	"github.com/jhoicas/taller-core/pkg/logger"
)

func TestLedger_Contadores(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewLedger(reg)

	m.SequenceAllocated("sale")
	m.SequenceAllocated("sale")
	m.LockTimeout("sequence")
	m.TxRetried()

	count, err := testutil.GatherAndCount(reg, "ledger_sequence_allocations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expected := `
# HELP ledger_sequence_allocations_total Números correlativos asignados por familia
# TYPE ledger_sequence_allocations_total counter
ledger_sequence_allocations_total{family="sale"} 2
# HELP ledger_tx_retries_total Transacciones reintentadas tras un error transitorio
# TYPE ledger_tx_retries_total counter
ledger_tx_retries_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"ledger_sequence_allocations_total", "ledger_tx_retries_total"))
}

func TestLedger_ObservaElLibro(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewLedger(reg)
	db := memory.New()
	ctx := context.Background()
	require.NoError(t, db.Reader().Warehouses().Create(ctx, &entity.Warehouse{ID: "main", Name: "Main"}))
	l := inventory.NewLedger(db, db.Reader(), inventory.Config{}, nil, logger.Nop(), m)

	_, err := l.Increment(ctx, inventory.MovementInput{ProductID: "P", WarehouseID: "main", Quantity: 2, ActorID: "u"})
	require.NoError(t, err)
	_, err = l.Decrement(ctx, inventory.MovementInput{ProductID: "P", WarehouseID: "main", Quantity: 5, ActorID: "u"})
	require.Error(t, err)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range mfs {
		for _, metric := range mf.GetMetric() {
			values[mf.GetName()] += metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, values["ledger_movements_total"])
	assert.Equal(t, 1.0, values["ledger_insufficient_stock_total"])
}
