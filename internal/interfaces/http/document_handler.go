package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/taller-core/internal/application/documents"
	"github.com/jhoicas/taller-core/internal/application/dto"
	"github.com/jhoicas/taller-core/internal/domain/entity"
)

// DocumentHandler consulta de comprobantes y su cadena de reemplazos.
type DocumentHandler struct {
	issuer *documents.Issuer
}

// NewDocumentHandler construye el handler.
func NewDocumentHandler(issuer *documents.Issuer) *DocumentHandler {
	return &DocumentHandler{issuer: issuer}
}

// GetByID godoc
// @Summary      Obtener comprobante por ID
// @Tags         documents
// @Produce      json
// @Param        id   path  string  true  "ID del comprobante"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) GetByID(c *fiber.Ctx) error {
	d, err := h.issuer.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toDocumentResponse(d))
}

// Lineage godoc
// @Summary      Cadena de reemplazos, del original al comprobante pedido
// @Tags         documents
// @Produce      json
// @Param        id   path  string  true  "ID del comprobante"
// @Success      200  {array}   dto.DocumentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/documents/{id}/lineage [get]
func (h *DocumentHandler) Lineage(c *fiber.Ctx) error {
	chain, err := h.issuer.Lineage(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.DocumentResponse, 0, len(chain))
	for _, d := range chain {
		out = append(out, toDocumentResponse(d))
	}
	return c.JSON(out)
}

// Current godoc
// @Summary      Comprobante vigente de una entidad
// @Tags         documents
// @Produce      json
// @Param        entityType  path   string  true  "Tipo de entidad (venta, reparacion, ...)"
// @Param        entityID    path   string  true  "ID de la entidad"
// @Param        type        query  string  true  "Tipo de comprobante (TICKET_VENTA, ...)"
// @Success      200  {object}  dto.DocumentResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/entities/{entityType}/{entityID}/documents/current [get]
func (h *DocumentHandler) Current(c *fiber.Ctx) error {
	ref, err := entity.RefFromStorage(c.Params("entityType"), c.Params("entityID"))
	if err != nil {
		return badRequest(c, "INVALID_REFERENCE", err.Error())
	}
	docType := entity.DocumentType(c.Query("type"))
	if _, ok := docType.Family(); !ok {
		return badRequest(c, "INVALID_TYPE", "type de comprobante inválido")
	}
	d, err := h.issuer.Current(c.UserContext(), ref, docType)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toDocumentResponse(d))
}

func toDocumentResponse(d *entity.Document) dto.DocumentResponse {
	return dto.DocumentResponse{
		ID:           d.ID,
		EntityType:   string(d.Entity.Kind()),
		EntityID:     d.Entity.ID(),
		Type:         string(d.Type),
		Number:       d.Number,
		Status:       string(d.Status),
		StatusReason: d.StatusReason,
		OriginalID:   d.OriginalID,
		IssuedAt:     d.IssuedAt,
		IssuedBy:     d.IssuedBy,
	}
}
