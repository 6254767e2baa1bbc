package dto

import "github.com/shopspring/decimal"

// PeriodQuery query string de período (?month=3&year=2025).
type PeriodQuery struct {
	Month        int  `query:"month"`
	Year         int  `query:"year"`
	IncludeEmpty bool `query:"include_empty"`
}

// PreviewDetailResponse línea candidata (un sitio).
type PreviewDetailResponse struct {
	SiteID      string          `json:"site_id"`
	SiteName    string          `json:"site_name"`
	Description string          `json:"description"`
	GuardCount  int             `json:"guard_count"`
	Amount      decimal.Decimal `json:"amount"`
}

// PreviewResponse previsualización de un cliente.
type PreviewResponse struct {
	ClientID           string                  `json:"client_id"`
	ClientName         string                  `json:"client_name"`
	Currency           string                  `json:"currency"`
	Period             string                  `json:"period"`
	Details            []PreviewDetailResponse `json:"details"`
	PrestationSubtotal decimal.Decimal         `json:"prestation_subtotal"`
	SiteCount          int                     `json:"site_count"`
	TotalGuardCount    int                     `json:"total_guard_count"`
	ExcludedSiteIDs    []string                `json:"excluded_site_ids,omitempty"`
	ZeroAmount         bool                    `json:"zero_amount"` // requiere confirm_zero_amount para emitir
}

// BatchTotalsResponse totales de la previsualización del período.
type BatchTotalsResponse struct {
	PreviewCount    int             `json:"preview_count"`
	TotalGuards     int             `json:"total_guards"`
	TotalPrestation decimal.Decimal `json:"total_prestation"`
	TotalDue        decimal.Decimal `json:"total_due"`
}

// PeriodPreviewResponse GET /api/billing/preview.
type PeriodPreviewResponse struct {
	Period              string              `json:"period"`
	Previews            []PreviewResponse   `json:"previews"`
	Totals              BatchTotalsResponse `json:"totals"`
	ZeroAmountClientIDs []string            `json:"zero_amount_client_ids,omitempty"`
}

// IssueSelectionRequest cliente elegido para la emisión. site_ids vacío = todos los elegibles.
type IssueSelectionRequest struct {
	ClientID          string          `json:"client_id"`
	SiteIDs           []string        `json:"site_ids,omitempty"`
	ExtraFees         decimal.Decimal `json:"extra_fees"`
	CarriedDebt       decimal.Decimal `json:"carried_debt"`
	ConfirmZeroAmount bool            `json:"confirm_zero_amount"`
	Notes             string          `json:"notes,omitempty"`
}

// IssueBatchRequest body para POST /api/billing/issue.
type IssueBatchRequest struct {
	Month      int                     `json:"month"`
	Year       int                     `json:"year"`
	Selections []IssueSelectionRequest `json:"selections"`
}

// IssuedInvoiceResponse factura emitida dentro del lote.
type IssuedInvoiceResponse struct {
	Index      int             `json:"index"`
	InvoiceID  string          `json:"invoice_id"`
	Number     string          `json:"number"`
	ClientID   string          `json:"client_id"`
	ClientName string          `json:"client_name"`
	DueTotal   decimal.Decimal `json:"due_total"`
}

// BatchErrorResponse fallo de un cliente dentro del lote.
type BatchErrorResponse struct {
	Index    int      `json:"index"`
	ClientID string   `json:"client_id"`
	SiteIDs  []string `json:"site_ids,omitempty"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// IssueBatchResponse resultado de la emisión masiva.
type IssueBatchResponse struct {
	IssuedCount int                     `json:"issued_count"`
	Issued      []IssuedInvoiceResponse `json:"issued"`
	Errors      []BatchErrorResponse    `json:"errors"`
}

// DraftLineRequest línea de factura manual. amount omitido = tarifa mensual del sitio.
type DraftLineRequest struct {
	SiteID      string           `json:"site_id"`
	Description string           `json:"description,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
}

// CreateInvoiceRequest body para POST /api/invoices (queda en DRAFT).
type CreateInvoiceRequest struct {
	ClientID    string             `json:"client_id"`
	Month       int                `json:"month"`
	Year        int                `json:"year"`
	Lines       []DraftLineRequest `json:"lines"`
	ExtraFees   decimal.Decimal    `json:"extra_fees"`
	CarriedDebt decimal.Decimal    `json:"carried_debt"`
	Notes       string             `json:"notes,omitempty"`
}

// UpdateInvoiceRequest body para PUT /api/invoices/:id. Campos omitidos no se modifican.
type UpdateInvoiceRequest struct {
	Lines       []DraftLineRequest `json:"lines,omitempty"`
	ExtraFees   *decimal.Decimal   `json:"extra_fees,omitempty"`
	CarriedDebt *decimal.Decimal   `json:"carried_debt,omitempty"`
	Notes       *string            `json:"notes,omitempty"`
	DueDate     string             `json:"due_date,omitempty"` // YYYY-MM-DD
}

// InvoiceDetailResponse línea de detalle en la respuesta.
type InvoiceDetailResponse struct {
	ID          string          `json:"id"`
	SiteID      string          `json:"site_id"`
	Description string          `json:"description"`
	GuardCount  int             `json:"guard_count"`
	Amount      decimal.Decimal `json:"amount"`
}

// SummaryResponse estado de cobro recalculado.
type SummaryResponse struct {
	InvoiceID        string          `json:"invoice_id"`
	DueTotal         decimal.Decimal `json:"due_total"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Status           string          `json:"status"`
	PaymentCount     int             `json:"payment_count"`
}

// InvoiceResponse factura con detalle.
type InvoiceResponse struct {
	ID                 string                  `json:"id"`
	ClientID           string                  `json:"client_id"`
	Number             string                  `json:"number"`
	Period             string                  `json:"period"`
	Currency           string                  `json:"currency"`
	IssueDate          string                  `json:"issue_date"`
	DueDate            string                  `json:"due_date"`
	PrestationSubtotal decimal.Decimal         `json:"prestation_subtotal"`
	ExtraFees          decimal.Decimal         `json:"extra_fees"`
	CarriedDebt        decimal.Decimal         `json:"carried_debt"`
	DueTotal           decimal.Decimal         `json:"due_total"`
	Status             string                  `json:"status"`
	Notes              string                  `json:"notes,omitempty"`
	Details            []InvoiceDetailResponse `json:"details"`
	Summary            *SummaryResponse        `json:"summary,omitempty"`
}

// InvoiceListResponse GET /api/invoices.
type InvoiceListResponse struct {
	Items []InvoiceResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}

// PaymentRequest body para registrar o corregir un pago.
type PaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    string          `json:"paid_at"` // YYYY-MM-DD o RFC3339
	Method    string          `json:"method"`
	Reference string          `json:"reference,omitempty"`
	Bank      string          `json:"bank,omitempty"`
	Notes     string          `json:"notes,omitempty"`
}

// PaymentResponse pago en respuestas.
type PaymentResponse struct {
	ID        string          `json:"id"`
	InvoiceID string          `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    string          `json:"paid_at"`
	Method    string          `json:"method"`
	Reference string          `json:"reference,omitempty"`
	Bank      string          `json:"bank,omitempty"`
	Notes     string          `json:"notes,omitempty"`
}

// PaymentResultResponse pago y resumen resultante.
type PaymentResultResponse struct {
	Payment PaymentResponse `json:"payment"`
	Summary SummaryResponse `json:"summary"`
}
