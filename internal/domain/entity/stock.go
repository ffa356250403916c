package entity

import "time"

// StockRecord es el saldo autoritativo de un producto en un depósito (único por producto+depósito).
// Quantity nunca es negativo y solo lo modifica el libro de existencias.
type StockRecord struct {
	ID          string
	ProductID   string
	WarehouseID string
	Quantity    int64
	Minimum     int64 // umbral de reposición
	UpdatedAt   time.Time
}

// BelowMinimum indica si el saldo quedó por debajo del mínimo configurado.
func (s StockRecord) BelowMinimum() bool {
	return s.Minimum > 0 && s.Quantity < s.Minimum
}
