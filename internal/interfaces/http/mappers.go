package http

import (
	"time"

	appbilling "github.com/jhoicas/Vigilancia-api/internal/application/billing"
	"github.com/jhoicas/Vigilancia-api/internal/application/dto"
	"github.com/jhoicas/Vigilancia-api/internal/domain/billing"
	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
)

const dateLayout = "2006-01-02"

// parseDate acepta YYYY-MM-DD o RFC3339. Vacío devuelve la fecha cero.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func toPreviewResponse(p billing.Preview) dto.PreviewResponse {
	out := dto.PreviewResponse{
		ClientID:           p.ClientID,
		ClientName:         p.ClientName,
		Currency:           p.Currency,
		Period:             p.Period.String(),
		Details:            make([]dto.PreviewDetailResponse, 0, len(p.Details)),
		PrestationSubtotal: p.PrestationSubtotal,
		SiteCount:          p.SiteCount,
		TotalGuardCount:    p.TotalGuardCount,
		ExcludedSiteIDs:    p.ExcludedSiteIDs,
		ZeroAmount:         billing.HasZeroAmount(p) || len(billing.ZeroAmountDetails(p)) > 0,
	}
	for _, d := range p.Details {
		out.Details = append(out.Details, dto.PreviewDetailResponse{
			SiteID: d.SiteID, SiteName: d.SiteName, Description: d.Description,
			GuardCount: d.GuardCount, Amount: d.Amount,
		})
	}
	return out
}

func toPeriodPreviewResponse(pp *appbilling.PeriodPreview) dto.PeriodPreviewResponse {
	out := dto.PeriodPreviewResponse{
		Period:   pp.Period.String(),
		Previews: make([]dto.PreviewResponse, 0, len(pp.Previews)),
		Totals: dto.BatchTotalsResponse{
			PreviewCount:    pp.Totals.PreviewCount,
			TotalGuards:     pp.Totals.TotalGuards,
			TotalPrestation: pp.Totals.TotalPrestation,
			TotalDue:        pp.Totals.TotalDue,
		},
		ZeroAmountClientIDs: pp.ZeroAmountClientIDs,
	}
	for _, p := range pp.Previews {
		out.Previews = append(out.Previews, toPreviewResponse(p))
	}
	return out
}

func toIssueBatchResponse(res appbilling.BatchResult) dto.IssueBatchResponse {
	out := dto.IssueBatchResponse{
		IssuedCount: res.IssuedCount(),
		Issued:      make([]dto.IssuedInvoiceResponse, 0, len(res.Issued)),
		Errors:      make([]dto.BatchErrorResponse, 0, len(res.Failures)),
	}
	for _, in := range res.Issued {
		out.Issued = append(out.Issued, dto.IssuedInvoiceResponse{
			Index: in.Index, InvoiceID: in.InvoiceID, Number: in.Number,
			ClientID: in.ClientID, ClientName: in.ClientName, DueTotal: in.DueTotal,
		})
	}
	for _, f := range res.Failures {
		_, code := errorStatus(f.Err)
		out.Errors = append(out.Errors, dto.BatchErrorResponse{
			Index: f.Index, ClientID: f.ClientID, SiteIDs: f.SiteIDs, Code: code, Message: f.Message(),
		})
	}
	return out
}

func toSummaryResponse(s billing.Summary) dto.SummaryResponse {
	return dto.SummaryResponse{
		InvoiceID:        s.InvoiceID,
		DueTotal:         s.DueTotal,
		TotalPaid:        s.TotalPaid,
		RemainingBalance: s.RemainingBalance,
		Status:           string(s.Status),
		PaymentCount:     s.PaymentCount,
	}
}

func toInvoiceResponse(inv *entity.Invoice, details []*entity.InvoiceDetail) dto.InvoiceResponse {
	out := dto.InvoiceResponse{
		ID:                 inv.ID,
		ClientID:           inv.ClientID,
		Number:             inv.Number,
		Period:             inv.Period().String(),
		Currency:           inv.Currency,
		IssueDate:          inv.IssueDate.Format(dateLayout),
		DueDate:            inv.DueDate.Format(dateLayout),
		PrestationSubtotal: inv.PrestationSubtotal,
		ExtraFees:          inv.ExtraFees,
		CarriedDebt:        inv.CarriedDebt,
		DueTotal:           inv.DueTotal,
		Status:             string(inv.Status),
		Notes:              inv.Notes,
		Details:            make([]dto.InvoiceDetailResponse, 0, len(details)),
	}
	for _, d := range details {
		out.Details = append(out.Details, dto.InvoiceDetailResponse{
			ID: d.ID, SiteID: d.SiteID, Description: d.Description, GuardCount: d.GuardCount, Amount: d.Amount,
		})
	}
	return out
}

func toInvoiceView(v *appbilling.InvoiceView) dto.InvoiceResponse {
	out := toInvoiceResponse(v.Invoice, v.Details)
	s := toSummaryResponse(v.Summary)
	out.Summary = &s
	// el estado expuesto es siempre el derivado
	out.Status = s.Status
	return out
}

func toPaymentResponse(p *entity.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID: p.ID, InvoiceID: p.InvoiceID, Amount: p.Amount, PaidAt: p.PaidAt.Format(dateLayout),
		Method: p.Method, Reference: p.Reference, Bank: p.Bank, Notes: p.Notes,
	}
}

func toDraftLines(in []dto.DraftLineRequest) []appbilling.DraftLine {
	if in == nil {
		return nil
	}
	out := make([]appbilling.DraftLine, 0, len(in))
	for _, l := range in {
		out = append(out, appbilling.DraftLine{SiteID: l.SiteID, Description: l.Description, Amount: l.Amount})
	}
	return out
}
