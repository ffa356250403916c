package entity

import "time"

// Warehouse representa un depósito o sucursal donde se almacena stock.
// A lo sumo un depósito es el principal; se usa por defecto cuando el llamador no indica otro.
type Warehouse struct {
	ID        string
	Name      string
	Address   string
	Principal bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
