package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/taller-core/internal/application/dto"
	"github.com/jhoicas/taller-core/internal/domain"
)

// errorStatus relaciona los errores de dominio con su código HTTP y código de respuesta.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrInvalidQuantity, fiber.StatusBadRequest, "INVALID_QUANTITY"},
	{domain.ErrMissingReason, fiber.StatusBadRequest, "MISSING_REASON"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrExceedsOrdered, fiber.StatusConflict, "EXCEEDS_ORDERED"},
	{domain.ErrReceiptOrderMismatch, fiber.StatusConflict, "RECEIPT_ORDER_MISMATCH"},
	{domain.ErrAlreadyReissued, fiber.StatusConflict, "ALREADY_REISSUED"},
	{domain.ErrAlreadyAnulado, fiber.StatusConflict, "ALREADY_ANNULLED"},
	{domain.ErrAlreadyApplied, fiber.StatusConflict, "ALREADY_APPLIED"},
	{domain.ErrNotApplied, fiber.StatusConflict, "NOT_APPLIED"},
	{domain.ErrAlreadyReversed, fiber.StatusConflict, "ALREADY_REVERSED"},
	{domain.ErrSequenceLockTimeout, fiber.StatusServiceUnavailable, "SEQUENCE_LOCK_TIMEOUT"},
	{domain.ErrLockTimeout, fiber.StatusServiceUnavailable, "LOCK_TIMEOUT"},
}

// writeError responde con el código que corresponde al error de dominio; el resto es 500.
func writeError(c *fiber.Ctx, err error) error {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return c.Status(e.status).JSON(dto.ErrorResponse{Code: e.code, Message: err.Error()})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
