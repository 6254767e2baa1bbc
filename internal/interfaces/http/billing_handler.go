package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Vigilancia-api/internal/application/billing"
	"github.com/jhoicas/Vigilancia-api/internal/application/dto"
	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
)

// BillingHandler previsualización y emisión masiva mensual.
type BillingHandler struct {
	preview *billing.PreviewUseCase
	issuer  *billing.BulkIssueUseCase
}

// NewBillingHandler construye el handler.
func NewBillingHandler(preview *billing.PreviewUseCase, issuer *billing.BulkIssueUseCase) *BillingHandler {
	return &BillingHandler{preview: preview, issuer: issuer}
}

func periodFromQuery(c *fiber.Ctx) (dto.PeriodQuery, error) {
	var q dto.PeriodQuery
	if err := c.QueryParser(&q); err != nil {
		return q, err
	}
	return q, nil
}

// Preview previsualiza todos los clientes del período.
// GET /api/billing/preview?month=3&year=2025&include_empty=false
func (h *BillingHandler) Preview(c *fiber.Ctx) error {
	q, err := periodFromQuery(c)
	if err != nil {
		return badRequest(c, "INVALID_QUERY", "month y year deben ser numéricos")
	}
	pp, err := h.preview.PreviewPeriod(c.Context(), entity.Period{Month: q.Month, Year: q.Year}, q.IncludeEmpty)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toPeriodPreviewResponse(pp))
}

// PreviewClient previsualiza un cliente.
// GET /api/billing/preview/:clientId?month=3&year=2025
func (h *BillingHandler) PreviewClient(c *fiber.Ctx) error {
	q, err := periodFromQuery(c)
	if err != nil {
		return badRequest(c, "INVALID_QUERY", "month y year deben ser numéricos")
	}
	p, err := h.preview.PreviewClient(c.Context(), c.Params("clientId"), entity.Period{Month: q.Month, Year: q.Year})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toPreviewResponse(*p))
}

// Issue emite las facturas seleccionadas. Responde 200 aunque haya fallos parciales;
// 207 si hubo éxitos y fallos mezclados.
// POST /api/billing/issue
func (h *BillingHandler) Issue(c *fiber.Ctx) error {
	var in dto.IssueBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "INVALID_BODY", "cuerpo inválido")
	}
	period := entity.Period{Month: in.Month, Year: in.Year}
	if err := period.Validate(); err != nil {
		return badRequest(c, "VALIDATION", err.Error())
	}
	if len(in.Selections) == 0 {
		return badRequest(c, "VALIDATION", "selections no puede estar vacío")
	}

	selections := make([]billing.Selection, 0, len(in.Selections))
	for _, s := range in.Selections {
		selections = append(selections, billing.Selection{
			ClientID:          s.ClientID,
			SiteIDs:           s.SiteIDs,
			ExtraFees:         s.ExtraFees,
			CarriedDebt:       s.CarriedDebt,
			ConfirmZeroAmount: s.ConfirmZeroAmount,
			Notes:             s.Notes,
		})
	}
	approved := h.issuer.PrepareSelection(c.Context(), period, selections)
	res := h.issuer.IssueBatch(c.Context(), approved)

	status := fiber.StatusOK
	if len(res.Issued) > 0 && len(res.Failures) > 0 {
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(toIssueBatchResponse(res))
}
