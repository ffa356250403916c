package repository

import "context"

// Store agrupa los repositorios atados a una misma conexión o transacción.
type Store interface {
	Warehouses() WarehouseRepository
	Stock() StockRepository
	Movements() StockMovementRepository
	Sequences() SequenceRepository
	Documents() DocumentRepository
	PurchaseOrders() PurchaseOrderRepository
	Receipts() ReceiptRepository
	Fulfillments() FulfillmentRepository
	// AfterCommit registra fn para ejecutarse solo si la transacción confirma.
	// Fuera de una transacción se ejecuta de inmediato.
	AfterCommit(fn func())
}

// TxRunner ejecuta fn dentro de una transacción con repositorios atados a ella y hace
// Commit si fn devuelve nil, Rollback en cualquier otro caso.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
