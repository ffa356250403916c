package dto

import "time"

// StockResponse saldo de un producto en un depósito.
type StockResponse struct {
	ProductID    string `json:"product_id"`
	WarehouseID  string `json:"warehouse_id"`
	Available    int64  `json:"available"`
	Minimum      int64  `json:"minimum,omitempty"`
	BelowMinimum bool   `json:"below_minimum,omitempty"`
}

// MovementResponse fila del libro de movimientos.
type MovementResponse struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	WarehouseID    string    `json:"warehouse_id"`
	Type           string    `json:"type"`
	Delta          int64     `json:"delta"`
	QuantityBefore int64     `json:"quantity_before"`
	QuantityAfter  int64     `json:"quantity_after"`
	Reason         string    `json:"reason,omitempty"`
	ReferenceType  string    `json:"reference_type,omitempty"`
	ReferenceID    string    `json:"reference_id,omitempty"`
	ActorID        string    `json:"actor_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// MovementListResponse lista paginada de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// FulfillmentLineResponse cantidad consumida de un producto en un depósito.
type FulfillmentLineResponse struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int64  `json:"quantity"`
}

// FulfillmentResponse consumo de stock de un pedido.
type FulfillmentResponse struct {
	OrderType     string                    `json:"order_type"`
	OrderID       string                    `json:"order_id"`
	Status        string                    `json:"status"`
	Lines         []FulfillmentLineResponse `json:"lines"`
	AppliedBy     string                    `json:"applied_by"`
	AppliedAt     time.Time                 `json:"applied_at"`
	ReversedBy    string                    `json:"reversed_by,omitempty"`
	ReversedAt    *time.Time                `json:"reversed_at,omitempty"`
	ReverseReason string                    `json:"reverse_reason,omitempty"`
}
