package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Vigilancia-api/internal/application/billing"
	"github.com/jhoicas/Vigilancia-api/internal/application/dto"
)

// PaymentHandler corrección y eliminación de pagos.
type PaymentHandler struct {
	payments *billing.PaymentUseCase
}

// NewPaymentHandler construye el handler.
func NewPaymentHandler(payments *billing.PaymentUseCase) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

func parsePayment(c *fiber.Ctx) (billing.PaymentInput, error) {
	var in dto.PaymentRequest
	if err := c.BodyParser(&in); err != nil {
		return billing.PaymentInput{}, errors.New("cuerpo inválido")
	}
	paidAt, err := parseDate(in.PaidAt)
	if err != nil {
		return billing.PaymentInput{}, errors.New("paid_at debe tener formato YYYY-MM-DD o RFC3339")
	}
	return billing.PaymentInput{
		Amount:    in.Amount,
		PaidAt:    paidAt,
		Method:    in.Method,
		Reference: in.Reference,
		Bank:      in.Bank,
		Notes:     in.Notes,
	}, nil
}

// Update corrige un pago.
// PUT /api/payments/:id
func (h *PaymentHandler) Update(c *fiber.Ctx) error {
	in, err := parsePayment(c)
	if err != nil {
		return badRequest(c, "INVALID_BODY", err.Error())
	}
	res, err := h.payments.UpdatePayment(c.Context(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.PaymentResultResponse{
		Payment: toPaymentResponse(res.Payment),
		Summary: toSummaryResponse(res.Summary),
	})
}

// Delete elimina un pago y devuelve el resumen recalculado.
// DELETE /api/payments/:id
func (h *PaymentHandler) Delete(c *fiber.Ctx) error {
	s, err := h.payments.DeletePayment(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSummaryResponse(*s))
}
