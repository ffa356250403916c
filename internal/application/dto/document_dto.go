package dto

import "time"

// DocumentResponse comprobante emitido.
type DocumentResponse struct {
	ID           string    `json:"id"`
	EntityType   string    `json:"entity_type"`
	EntityID     string    `json:"entity_id"`
	Type         string    `json:"type"`
	Number       string    `json:"number"`
	Status       string    `json:"status"`
	StatusReason string    `json:"status_reason,omitempty"`
	OriginalID   string    `json:"original_id,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`
	IssuedBy     string    `json:"issued_by"`
}

// PurchaseOrderLineResponse línea de orden de compra con lo pendiente.
type PurchaseOrderLineResponse struct {
	ID               string `json:"id"`
	ProductID        string `json:"product_id"`
	QuantityOrdered  int64  `json:"quantity_ordered"`
	QuantityReceived int64  `json:"quantity_received"`
	Remaining        int64  `json:"remaining"`
	UnitPrice        string `json:"unit_price"`
}

// PurchaseOrderResponse estado de recepción de una orden de compra.
type PurchaseOrderResponse struct {
	ID          string                      `json:"id"`
	Number      string                      `json:"number"`
	SupplierID  string                      `json:"supplier_id"`
	WarehouseID string                      `json:"warehouse_id"`
	Status      string                      `json:"status"`
	Lines       []PurchaseOrderLineResponse `json:"lines"`
}
