package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/taller-core/internal/application/dto"
	"github.com/jhoicas/taller-core/internal/application/warehouse"
)

// WarehouseHandler consulta de depósitos (solo lectura).
type WarehouseHandler struct {
	registry *warehouse.Registry
}

// NewWarehouseHandler construye el handler.
func NewWarehouseHandler(registry *warehouse.Registry) *WarehouseHandler {
	return &WarehouseHandler{registry: registry}
}

// GetByID godoc
// @Summary      Obtener depósito por ID
// @Tags         warehouses
// @Produce      json
// @Param        id   path  string  true  "ID del depósito"
// @Success      200  {object}  dto.WarehouseResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/warehouses/{id} [get]
func (h *WarehouseHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.registry.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Principal godoc
// @Summary      Depósito principal
// @Tags         warehouses
// @Produce      json
// @Success      200  {object}  dto.WarehouseResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/warehouses/principal [get]
func (h *WarehouseHandler) Principal(c *fiber.Ctx) error {
	out, err := h.registry.Principal(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar depósitos
// @Tags         warehouses
// @Produce      json
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200     {object}  dto.WarehouseListResponse
// @Router       /api/warehouses [get]
func (h *WarehouseHandler) List(c *fiber.Ctx) error {
	page := pageFromQuery(c)
	out, err := h.registry.List(c.UserContext(), page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

func pageFromQuery(c *fiber.Ctx) dto.PageRequest {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	page.DefaultPage()
	if page.Limit > 100 {
		page.Limit = 100
	}
	return page
}
