package inventory

import (
	"sort"

	"github.com/jhoicas/taller-core/internal/domain"
	"github.com/jhoicas/taller-core/internal/domain/entity"
)

// Mutation describe el cambio de saldo que produce un movimiento (servicio de dominio puro).
type Mutation struct {
	Type   entity.MovementType
	Before int64
	After  int64
	Delta  int64
}

// PlanIncrement calcula una entrada de qty unidades sobre el saldo actual.
func PlanIncrement(current, qty int64) (Mutation, error) {
	if qty <= 0 {
		return Mutation{}, domain.ErrInvalidQuantity
	}
	return Mutation{Type: entity.MovementTypeIn, Before: current, After: current + qty, Delta: qty}, nil
}

// PlanDecrement calcula una salida; falla si el saldo quedaría negativo.
func PlanDecrement(current, qty int64) (Mutation, error) {
	if qty <= 0 {
		return Mutation{}, domain.ErrInvalidQuantity
	}
	if qty > current {
		return Mutation{}, domain.ErrInsufficientStock
	}
	return Mutation{Type: entity.MovementTypeOut, Before: current, After: current - qty, Delta: -qty}, nil
}

// PlanAdjust lleva el saldo a la cantidad contada. Un conteo igual al saldo no es un movimiento.
func PlanAdjust(current, counted int64) (Mutation, error) {
	if counted < 0 || counted == current {
		return Mutation{}, domain.ErrInvalidQuantity
	}
	return Mutation{Type: entity.MovementTypeAdjust, Before: current, After: counted, Delta: counted - current}, nil
}

// Apply aplica la mutación al registro y arma el movimiento del libro.
func (m Mutation) Apply(rec *entity.StockRecord) entity.StockMovement {
	rec.Quantity = m.After
	return entity.StockMovement{
		StockRecordID:  rec.ID,
		ProductID:      rec.ProductID,
		WarehouseID:    rec.WarehouseID,
		Type:           m.Type,
		Delta:          m.Delta,
		QuantityBefore: m.Before,
		QuantityAfter:  m.After,
	}
}

// StockKey identifica un saldo (producto, depósito).
type StockKey struct {
	ProductID   string
	WarehouseID string
}

func (k StockKey) less(o StockKey) bool {
	if k.WarehouseID != o.WarehouseID {
		return k.WarehouseID < o.WarehouseID
	}
	return k.ProductID < o.ProductID
}

// MergeLines suma las líneas repetidas de un mismo (producto, depósito) conservando el orden
// de la primera aparición.
func MergeLines(lines []entity.FulfillmentLine) []entity.FulfillmentLine {
	idx := make(map[StockKey]int, len(lines))
	out := make([]entity.FulfillmentLine, 0, len(lines))
	for _, l := range lines {
		k := StockKey{ProductID: l.ProductID, WarehouseID: l.WarehouseID}
		if i, ok := idx[k]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[k] = len(out)
		out = append(out, l)
	}
	return out
}

// LockOrder devuelve las claves ordenadas de forma determinística. Bloquear siempre en este orden
// evita interbloqueos entre transacciones que tocan los mismos saldos.
func LockOrder(keys ...StockKey) []StockKey {
	out := make([]StockKey, 0, len(keys))
	seen := make(map[StockKey]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}
