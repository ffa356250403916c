package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/taller-core/internal/application/dto"
	"github.com/jhoicas/taller-core/internal/application/inventory"
	"github.com/jhoicas/taller-core/internal/domain/entity"
	"github.com/jhoicas/taller-core/internal/domain/repository"
)

// InventoryHandler consulta de saldos y del libro de movimientos.
type InventoryHandler struct {
	ledger *inventory.Ledger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(ledger *inventory.Ledger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

// Stock godoc
// @Summary      Saldo disponible de un producto en un depósito
// @Tags         inventory
// @Produce      json
// @Param        warehouseID  path  string  true  "ID del depósito"
// @Param        productID    path  string  true  "ID del producto"
// @Success      200  {object}  dto.StockResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/{warehouseID}/{productID} [get]
func (h *InventoryHandler) Stock(c *fiber.Ctx) error {
	warehouseID, productID := c.Params("warehouseID"), c.Params("productID")
	qty, err := h.ledger.Available(c.UserContext(), productID, warehouseID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StockResponse{ProductID: productID, WarehouseID: warehouseID, Available: qty})
}

// BelowMinimum godoc
// @Summary      Saldos bajo su mínimo de reposición
// @Tags         inventory
// @Produce      json
// @Param        warehouse_id  query  string  false  "Filtrar por depósito"
// @Success      200  {array}  dto.StockResponse
// @Router       /api/stock/below-minimum [get]
func (h *InventoryHandler) BelowMinimum(c *fiber.Ctx) error {
	list, err := h.ledger.BelowMinimum(c.UserContext(), c.Query("warehouse_id"))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.StockResponse, 0, len(list))
	for _, s := range list {
		out = append(out, dto.StockResponse{
			ProductID:    s.ProductID,
			WarehouseID:  s.WarehouseID,
			Available:    s.Quantity,
			Minimum:      s.Minimum,
			BelowMinimum: true,
		})
	}
	return c.JSON(out)
}

// Movements godoc
// @Summary      Libro de movimientos
// @Tags         inventory
// @Produce      json
// @Param        product_id      query  string  false  "Producto"
// @Param        warehouse_id    query  string  false  "Depósito"
// @Param        reference_type  query  string  false  "Tipo de entidad origen (venta, orden_compra, ...)"
// @Param        reference_id    query  string  false  "ID de la entidad origen"
// @Param        from            query  string  false  "Desde (RFC3339)"
// @Param        to              query  string  false  "Hasta (RFC3339)"
// @Param        limit           query  int     false  "Límite"  default(20)
// @Param        offset          query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/movements [get]
func (h *InventoryHandler) Movements(c *fiber.Ctx) error {
	page := pageFromQuery(c)
	filter := repository.MovementFilter{
		ProductID:   c.Query("product_id"),
		WarehouseID: c.Query("warehouse_id"),
		Limit:       page.Limit,
		Offset:      page.Offset,
	}
	if kind, id := c.Query("reference_type"), c.Query("reference_id"); kind != "" || id != "" {
		ref, err := entity.RefFromStorage(kind, id)
		if err != nil {
			return badRequest(c, "INVALID_REFERENCE", err.Error())
		}
		filter.Reference = ref
	}
	var err error
	if filter.From, err = timeQuery(c, "from"); err != nil {
		return badRequest(c, "INVALID_DATE", "from debe ser RFC3339")
	}
	if filter.To, err = timeQuery(c, "to"); err != nil {
		return badRequest(c, "INVALID_DATE", "to debe ser RFC3339")
	}

	list, err := h.ledger.Movements(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, dto.MovementResponse{
			ID:             m.ID,
			ProductID:      m.ProductID,
			WarehouseID:    m.WarehouseID,
			Type:           string(m.Type),
			Delta:          m.Delta,
			QuantityBefore: m.QuantityBefore,
			QuantityAfter:  m.QuantityAfter,
			Reason:         m.Reason,
			ReferenceType:  string(m.Reference.Kind()),
			ReferenceID:    m.Reference.ID(),
			ActorID:        m.ActorID,
			CreatedAt:      m.CreatedAt,
		})
	}
	return c.JSON(dto.MovementListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	})
}

func timeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
