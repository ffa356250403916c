package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/taller-core/internal/application/purchasing"
)

// PurchaseOrderHandler consulta del estado de recepción de órdenes de compra.
type PurchaseOrderHandler struct {
	reconciler *purchasing.Reconciler
}

// NewPurchaseOrderHandler construye el handler.
func NewPurchaseOrderHandler(reconciler *purchasing.Reconciler) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{reconciler: reconciler}
}

// GetByID godoc
// @Summary      Orden de compra con lo recibido y lo pendiente por línea
// @Tags         purchase-orders
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {object}  dto.PurchaseOrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.reconciler.Order(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Receipts godoc
// @Summary      Recepciones registradas contra la orden
// @Tags         purchase-orders
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {array}   map[string]interface{}
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/purchase-orders/{id}/receipts [get]
func (h *PurchaseOrderHandler) Receipts(c *fiber.Ctx) error {
	list, err := h.reconciler.Receipts(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]fiber.Map, 0, len(list))
	for _, rc := range list {
		lines := make([]fiber.Map, 0, len(rc.Lines))
		for _, l := range rc.Lines {
			lines = append(lines, fiber.Map{
				"order_line_id": l.OrderLineID,
				"product_id":    l.ProductID,
				"quantity":      l.Quantity,
			})
		}
		out = append(out, fiber.Map{
			"id":           rc.ID,
			"number":       rc.Number,
			"warehouse_id": rc.WarehouseID,
			"actor_id":     rc.ActorID,
			"received_at":  rc.ReceivedAt,
			"lines":        lines,
		})
	}
	return c.JSON(out)
}
