package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Vigilancia-api/internal/application/billing"
	"github.com/jhoicas/Vigilancia-api/internal/application/dto"
	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
)

// InvoiceHandler ciclo de vida de facturas y sus pagos.
type InvoiceHandler struct {
	invoices *billing.InvoiceUseCase
	payments *billing.PaymentUseCase
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(invoices *billing.InvoiceUseCase, payments *billing.PaymentUseCase) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, payments: payments}
}

// Create crea una factura manual en DRAFT.
// POST /api/invoices
func (h *InvoiceHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	view, err := h.invoices.CreateDraft(c.Context(), billing.CreateInvoiceInput{
		ClientID:    in.ClientID,
		Month:       in.Month,
		Year:        in.Year,
		Lines:       toDraftLines(in.Lines),
		ExtraFees:   in.ExtraFees,
		CarriedDebt: in.CarriedDebt,
		Notes:       in.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toInvoiceView(view))
}

// List facturas del período, paginadas.
// GET /api/invoices?month=3&year=2025&limit=20&offset=0
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	var q dto.PeriodQuery
	var page dto.PageRequest
	if err := c.QueryParser(&q); err != nil {
		return badRequest(c, "INVALID_QUERY", "month y year deben ser numéricos")
	}
	if err := c.QueryParser(&page); err != nil {
		return badRequest(c, "INVALID_QUERY", "limit y offset deben ser numéricos")
	}
	page.Normalize()

	list, err := h.invoices.ListByPeriod(c.Context(), entity.Period{Month: q.Month, Year: q.Year})
	if err != nil {
		return writeError(c, err)
	}
	pageItems, meta := dto.Paginate(list, page)
	items := make([]dto.InvoiceResponse, 0, len(pageItems))
	for _, iw := range pageItems {
		items = append(items, toInvoiceResponse(iw.Invoice, iw.Details))
	}
	return c.JSON(dto.InvoiceListResponse{Items: items, Page: meta})
}

// GetByID factura con detalle y resumen de cobro.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	view, err := h.invoices.Get(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toInvoiceView(view))
}

// Update edita un borrador.
// PUT /api/invoices/:id
func (h *InvoiceHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	upd := billing.UpdateInvoiceInput{
		Lines:       toDraftLines(in.Lines),
		ExtraFees:   in.ExtraFees,
		CarriedDebt: in.CarriedDebt,
		Notes:       in.Notes,
	}
	if in.DueDate != "" {
		due, err := parseDate(in.DueDate)
		if err != nil {
			return badRequest(c, "VALIDATION", "due_date debe tener formato YYYY-MM-DD")
		}
		upd.DueDate = &due
	}
	view, err := h.invoices.UpdateDraft(c.Context(), c.Params("id"), upd)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toInvoiceView(view))
}

// Issue DRAFT -> ISSUED.
// POST /api/invoices/:id/issue
func (h *InvoiceHandler) Issue(c *fiber.Ctx) error {
	view, err := h.invoices.Issue(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toInvoiceView(view))
}

// Cancel anula la factura.
// POST /api/invoices/:id/cancel
func (h *InvoiceHandler) Cancel(c *fiber.Ctx) error {
	view, err := h.invoices.Cancel(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toInvoiceView(view))
}

// Delete elimina un borrador o una factura anulada.
// DELETE /api/invoices/:id
func (h *InvoiceHandler) Delete(c *fiber.Ctx) error {
	if err := h.invoices.Delete(c.Context(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Summary resumen de cobro recalculado.
// GET /api/invoices/:id/summary
func (h *InvoiceHandler) Summary(c *fiber.Ctx) error {
	s, err := h.payments.ComputeSummary(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSummaryResponse(*s))
}

// ListPayments pagos de la factura.
// GET /api/invoices/:id/payments
func (h *InvoiceHandler) ListPayments(c *fiber.Ctx) error {
	list, err := h.payments.ListPayments(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.PaymentResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPaymentResponse(p))
	}
	return c.JSON(out)
}

// RecordPayment registra un pago.
// POST /api/invoices/:id/payments
func (h *InvoiceHandler) RecordPayment(c *fiber.Ctx) error {
	in, err := parsePayment(c)
	if err != nil {
		return badRequest(c, "INVALID_BODY", err.Error())
	}
	res, err := h.payments.RecordPayment(c.Context(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.PaymentResultResponse{
		Payment: toPaymentResponse(res.Payment),
		Summary: toSummaryResponse(res.Summary),
	})
}
