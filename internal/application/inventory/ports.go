package inventory

import (
	"context"
	"time"
)

// BalanceCache caché de saldos para lecturas sin bloqueo. Puede devolver valores viejos;
// nunca se usa en el camino de escritura.
type BalanceCache interface {
	Get(ctx context.Context, productID, warehouseID string) (qty int64, ok bool, err error)
	Set(ctx context.Context, productID, warehouseID string, qty int64, ttl time.Duration) error
	Invalidate(ctx context.Context, productID, warehouseID string) error
}

// Metrics puerto de métricas del libro de existencias.
type Metrics interface {
	MovementRecorded(movementType string)
	InsufficientStock()
	LockTimeout(resource string)
}

type noopMetrics struct{}

func (noopMetrics) MovementRecorded(string) {}
func (noopMetrics) InsufficientStock()      {}
func (noopMetrics) LockTimeout(string)      {}
