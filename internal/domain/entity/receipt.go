package entity

import "time"

// Receipt agrupa un evento físico de entrega contra una única orden de compra. Solo se agregan.
type Receipt struct {
	ID          string
	Number      string
	OrderID     string
	WarehouseID string
	ActorID     string
	ReceivedAt  time.Time
	Lines       []ReceiptLine
}

// ReceiptLine cantidad recibida de una línea de la orden en este evento.
type ReceiptLine struct {
	ID          string
	ReceiptID   string
	OrderLineID string
	ProductID   string
	Quantity    int64
}
