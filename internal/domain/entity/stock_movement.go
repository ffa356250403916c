package entity

import "time"

// MovementType tipo de movimiento de stock.
type MovementType string

const (
	MovementTypeIn     MovementType = "IN"     // entrada
	MovementTypeOut    MovementType = "OUT"    // salida
	MovementTypeAdjust MovementType = "ADJUST" // ajuste por conteo físico
)

// StockMovement es una fila inmutable del libro: se crea una por cada mutación de saldo
// y nunca se actualiza ni se borra.
type StockMovement struct {
	ID             string
	StockRecordID  string
	ProductID      string
	WarehouseID    string
	Type           MovementType
	Delta          int64 // positivo entrada, negativo salida
	QuantityBefore int64
	QuantityAfter  int64
	Reason         string
	Reference      EntityRef
	ActorID        string
	CreatedAt      time.Time
}
