package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/taller-core/internal/application/documents"
	"github.com/jhoicas/taller-core/internal/application/fulfillment"
	"github.com/jhoicas/taller-core/internal/application/inventory"
	"github.com/jhoicas/taller-core/internal/application/purchasing"
	"github.com/jhoicas/taller-core/internal/application/warehouse"
)

// RouterDeps dependencias para el router. La superficie HTTP es de operación y consulta:
// las mutaciones del libro se invocan desde los procesos de negocio, no por HTTP.
type RouterDeps struct {
	Warehouses   *warehouse.Registry
	Ledger       *inventory.Ledger
	Documents    *documents.Issuer
	Purchasing   *purchasing.Reconciler
	Fulfillments *fulfillment.Service
	Health       map[string]Pinger
	Gatherer     prometheus.Gatherer
}

// Router registra las rutas.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", NewHealthHandler(deps.Health).Check)
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	warehouses := api.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.Warehouses)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/principal", warehouseHandler.Principal)
	warehouses.Get("/:id", warehouseHandler.GetByID)

	inventoryHandler := NewInventoryHandler(deps.Ledger)
	api.Get("/stock/below-minimum", inventoryHandler.BelowMinimum)
	api.Get("/stock/:warehouseID/:productID", inventoryHandler.Stock)
	api.Get("/movements", inventoryHandler.Movements)

	documentHandler := NewDocumentHandler(deps.Documents)
	api.Get("/documents/:id", documentHandler.GetByID)
	api.Get("/documents/:id/lineage", documentHandler.Lineage)
	api.Get("/entities/:entityType/:entityID/documents/current", documentHandler.Current)
	api.Get("/entities/:entityType/:entityID/fulfillment", NewFulfillmentHandler(deps.Fulfillments).Status)

	orders := api.Group("/purchase-orders")
	orderHandler := NewPurchaseOrderHandler(deps.Purchasing)
	orders.Get("/:id", orderHandler.GetByID)
	orders.Get("/:id/receipts", orderHandler.Receipts)
}
