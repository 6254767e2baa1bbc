package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Vigilancia-api/internal/application/dto"
	"github.com/jhoicas/Vigilancia-api/internal/domain"
)

// errorStatus traduce un error de dominio a código HTTP y código de error.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidState):
		return fiber.StatusConflict, "INVALID_STATE"
	case errors.Is(err, domain.ErrDuplicateBilling):
		return fiber.StatusConflict, "DUPLICATE_BILLING"
	case errors.Is(err, domain.ErrOverpayment):
		return fiber.StatusUnprocessableEntity, "OVERPAYMENT"
	case errors.Is(err, domain.ErrNumberExhausted):
		return fiber.StatusServiceUnavailable, "NUMBER_EXHAUSTED"
	case errors.Is(err, domain.ErrPersistence):
		return fiber.StatusServiceUnavailable, "PERSISTENCE"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

func writeError(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
