package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/taller-core/internal/application/dto"
	"github.com/jhoicas/taller-core/internal/application/fulfillment"
	"github.com/jhoicas/taller-core/internal/domain/entity"
)

// FulfillmentHandler consulta del consumo de stock de ventas y reparaciones.
type FulfillmentHandler struct {
	svc *fulfillment.Service
}

// NewFulfillmentHandler construye el handler.
func NewFulfillmentHandler(svc *fulfillment.Service) *FulfillmentHandler {
	return &FulfillmentHandler{svc: svc}
}

// Status godoc
// @Summary      Estado del consumo de stock de un pedido
// @Tags         fulfillments
// @Produce      json
// @Param        entityType  path  string  true  "venta o reparacion"
// @Param        entityID    path  string  true  "ID del pedido"
// @Success      200  {object}  dto.FulfillmentResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/entities/{entityType}/{entityID}/fulfillment [get]
func (h *FulfillmentHandler) Status(c *fiber.Ctx) error {
	ref, err := entity.RefFromStorage(c.Params("entityType"), c.Params("entityID"))
	if err != nil || !ref.IsOrder() {
		return badRequest(c, "INVALID_REFERENCE", "se espera una venta o una reparación")
	}
	f, err := h.svc.Status(c.UserContext(), ref)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.FulfillmentResponse{
		OrderType:     string(f.Order.Kind()),
		OrderID:       f.Order.ID(),
		Status:        string(f.Status),
		Lines:         make([]dto.FulfillmentLineResponse, 0, len(f.Lines)),
		AppliedBy:     f.AppliedBy,
		AppliedAt:     f.AppliedAt,
		ReversedBy:    f.ReversedBy,
		ReversedAt:    f.ReversedAt,
		ReverseReason: f.ReverseReason,
	}
	for _, l := range f.Lines {
		out.Lines = append(out.Lines, dto.FulfillmentLineResponse{
			ProductID: l.ProductID, WarehouseID: l.WarehouseID, Quantity: l.Quantity,
		})
	}
	return c.JSON(out)
}
