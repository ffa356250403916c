package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/taller-core/internal/application/inventory"
	"github.com/jhoicas/taller-core/internal/application/sequence"
	"github.com/jhoicas/taller-core/internal/infrastructure/postgres"
)

var (
	_ inventory.Metrics = (*Ledger)(nil)
	_ sequence.Metrics  = (*Ledger)(nil)
	_ postgres.Metrics  = (*Ledger)(nil)
)

// Ledger contadores Prometheus del libro de existencias, la numeración y las transacciones.
type Ledger struct {
	movements         *prometheus.CounterVec
	allocations       *prometheus.CounterVec
	lockTimeouts      *prometheus.CounterVec
	insufficientStock prometheus.Counter
	txRetries         prometheus.Counter
	txRollbacks       prometheus.Counter
}

// NewLedger crea y registra los contadores en reg.
func NewLedger(reg prometheus.Registerer) *Ledger {
	m := &Ledger{
		movements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_movements_total",
				Help: "Movimientos de stock registrados por tipo",
			},
			[]string{"type"},
		),
		allocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_sequence_allocations_total",
				Help: "Números correlativos asignados por familia",
			},
			[]string{"family"},
		),
		lockTimeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_lock_timeouts_total",
				Help: "Bloqueos de fila no obtenidos a tiempo por recurso",
			},
			[]string{"resource"},
		),
		insufficientStock: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_insufficient_stock_total",
			Help: "Salidas rechazadas por saldo insuficiente",
		}),
		txRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_tx_retries_total",
			Help: "Transacciones reintentadas tras un error transitorio",
		}),
		txRollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_tx_rollbacks_total",
			Help: "Transacciones revertidas",
		}),
	}
	reg.MustRegister(m.movements, m.allocations, m.lockTimeouts, m.insufficientStock, m.txRetries, m.txRollbacks)
	return m
}

func (m *Ledger) MovementRecorded(movementType string) {
	m.movements.WithLabelValues(movementType).Inc()
}

func (m *Ledger) SequenceAllocated(family string) {
	m.allocations.WithLabelValues(family).Inc()
}

func (m *Ledger) LockTimeout(resource string) {
	m.lockTimeouts.WithLabelValues(resource).Inc()
}

func (m *Ledger) InsufficientStock() { m.insufficientStock.Inc() }
func (m *Ledger) TxRetried()         { m.txRetries.Inc() }
func (m *Ledger) TxRolledBack()      { m.txRollbacks.Inc() }
