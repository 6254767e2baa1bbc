package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Vigilancia-api/internal/application/billing"
	"github.com/jhoicas/Vigilancia-api/internal/application/dto"
	dombilling "github.com/jhoicas/Vigilancia-api/internal/domain/billing"
	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
	apphttp "github.com/jhoicas/Vigilancia-api/internal/interfaces/http"
	"github.com/jhoicas/Vigilancia-api/internal/observability"
	"github.com/jhoicas/Vigilancia-api/internal/testing/memstore"
	"github.com/jhoicas/Vigilancia-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// buildTestApp arma la API completa sobre un almacén en memoria con Acme (450/mes).
func buildTestApp(t *testing.T) *fiber.App {
	t.Helper()
	var ids, suffix atomic.Int64
	cfg := billing.Config{
		Clock:    func() time.Time { return time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC) },
		NewID:    func() string { return fmt.Sprintf("id-%04d", ids.Add(1)) },
		RandIntn: func(n int) int { return int(suffix.Add(1)) % n },
	}
	store := memstore.New()
	store.AddClient(&entity.Client{ID: "cli-acme", Name: "Acme", Currency: "USD", PaymentTermDays: 30, Active: true})
	for _, s := range []struct {
		id, name   string
		day, night int
		unit       int64
	}{{"site-a", "Site A", 2, 1, 100}, {"site-b", "Site B", 1, 0, 150}} {
		cost := decimal.NewFromInt(s.unit)
		store.AddSite(&entity.Site{
			ID: s.id, ClientID: "cli-acme", Name: s.name, DayGuards: s.day, NightGuards: s.night,
			UnitCost: cost, MonthlyTariff: dombilling.ComputeTariff(s.day, s.night, cost), Active: true,
		})
	}

	log := logger.Nop()
	metrics := observability.NewMetrics()
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Preview:  billing.NewPreviewUseCase(store.Clients(), store.Sites(), store.Invoices(), cfg, log),
		Issuer:   billing.NewBulkIssueUseCase(store, store.Clients(), store.Sites(), store.Invoices(), cfg, metrics, log),
		Invoices: billing.NewInvoiceUseCase(store, store.Clients(), store.Sites(), store.Invoices(), store.Payments(), cfg, log),
		Payments: billing.NewPaymentUseCase(store, store.Invoices(), store.Payments(), cfg, nil, metrics, log),
		Metrics:  metrics,
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func issueAcme(t *testing.T, app *fiber.App) dto.IssueBatchResponse {
	t.Helper()
	status, raw := doJSON(t, app, http.MethodPost, "/api/billing/issue", dto.IssueBatchRequest{
		Month: 3, Year: 2025,
		Selections: []dto.IssueSelectionRequest{{ClientID: "cli-acme"}},
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	res := decode[dto.IssueBatchResponse](t, raw)
	require.Equal(t, 1, res.IssuedCount)
	return res
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestPreview_Periodo(t *testing.T) {
	app := buildTestApp(t)

	status, raw := doJSON(t, app, http.MethodGet, "/api/billing/preview?month=3&year=2025", nil)

	require.Equal(t, http.StatusOK, status, string(raw))
	pp := decode[dto.PeriodPreviewResponse](t, raw)
	require.Len(t, pp.Previews, 1)
	assert.Equal(t, "03/2025", pp.Period)
	assert.True(t, decimal.NewFromInt(450).Equal(pp.Totals.TotalPrestation))
	assert.False(t, pp.Previews[0].ZeroAmount)
}

func TestPreview_PeriodoInvalido(t *testing.T) {
	app := buildTestApp(t)

	status, raw := doJSON(t, app, http.MethodGet, "/api/billing/preview?month=13&year=2025", nil)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", decode[dto.ErrorResponse](t, raw).Code)
}

func TestPreviewClient_NoEncontrado(t *testing.T) {
	app := buildTestApp(t)

	status, raw := doJSON(t, app, http.MethodGet, "/api/billing/preview/cli-x?month=3&year=2025", nil)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", decode[dto.ErrorResponse](t, raw).Code)
}

func TestIssue_DobleEmisionDevuelveError(t *testing.T) {
	app := buildTestApp(t)
	first := issueAcme(t, app)
	assert.Equal(t, "FAC-202503-001", first.Issued[0].Number)

	// con site_ids explícitos la segunda emisión choca con la primera
	status, raw := doJSON(t, app, http.MethodPost, "/api/billing/issue", dto.IssueBatchRequest{
		Month: 3, Year: 2025,
		Selections: []dto.IssueSelectionRequest{{ClientID: "cli-acme", SiteIDs: []string{"site-a"}}},
	})
	require.Equal(t, http.StatusOK, status)
	res := decode[dto.IssueBatchResponse](t, raw)
	assert.Zero(t, res.IssuedCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "DUPLICATE_BILLING", res.Errors[0].Code)
}

func TestIssue_CuerpoInvalido(t *testing.T) {
	app := buildTestApp(t)

	status, _ := doJSON(t, app, http.MethodPost, "/api/billing/issue", dto.IssueBatchRequest{Month: 3, Year: 2025})

	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPagos_FlujoCompletoYSobrepago(t *testing.T) {
	app := buildTestApp(t)
	invoiceID := issueAcme(t, app).Issued[0].InvoiceID
	base := "/api/invoices/" + invoiceID

	status, raw := doJSON(t, app, http.MethodPost, base+"/payments", dto.PaymentRequest{
		Amount: decimal.NewFromInt(200), PaidAt: "2025-04-02", Method: "TRANSFER", Reference: "TRX-1",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	first := decode[dto.PaymentResultResponse](t, raw)
	assert.Equal(t, "PARTIALLY_PAID", first.Summary.Status)
	assert.Equal(t, "2025-04-02", first.Payment.PaidAt)

	status, raw = doJSON(t, app, http.MethodPost, base+"/payments", dto.PaymentRequest{
		Amount: decimal.NewFromInt(300), PaidAt: "2025-04-03", Method: "CASH",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "OVERPAYMENT", decode[dto.ErrorResponse](t, raw).Code)

	status, raw = doJSON(t, app, http.MethodPut, "/api/payments/"+first.Payment.ID, dto.PaymentRequest{
		Amount: decimal.NewFromInt(450), PaidAt: "2025-04-02", Method: "TRANSFER",
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "PAID_IN_FULL", decode[dto.PaymentResultResponse](t, raw).Summary.Status)

	status, raw = doJSON(t, app, http.MethodGet, base+"/summary", nil)
	require.Equal(t, http.StatusOK, status)
	summary := decode[dto.SummaryResponse](t, raw)
	assert.True(t, summary.RemainingBalance.IsZero())

	status, raw = doJSON(t, app, http.MethodDelete, "/api/payments/"+first.Payment.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ISSUED", decode[dto.SummaryResponse](t, raw).Status)

	status, raw = doJSON(t, app, http.MethodGet, base+"/payments", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]dto.PaymentResponse](t, raw))
}

func TestPagos_FechaInvalida(t *testing.T) {
	app := buildTestApp(t)
	invoiceID := issueAcme(t, app).Issued[0].InvoiceID

	status, _ := doJSON(t, app, http.MethodPost, "/api/invoices/"+invoiceID+"/payments", dto.PaymentRequest{
		Amount: decimal.NewFromInt(10), PaidAt: "02/04/2025", Method: "CASH",
	})

	assert.Equal(t, http.StatusBadRequest, status)
}

func TestFacturas_BorradorEmisionAnulacionYEliminacion(t *testing.T) {
	app := buildTestApp(t)

	status, raw := doJSON(t, app, http.MethodPost, "/api/invoices", dto.CreateInvoiceRequest{
		ClientID: "cli-acme", Month: 3, Year: 2025,
		Lines: []dto.DraftLineRequest{{SiteID: "site-a"}},
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	draft := decode[dto.InvoiceResponse](t, raw)
	assert.Equal(t, "DRAFT", draft.Status)

	fees := decimal.NewFromInt(15)
	status, raw = doJSON(t, app, http.MethodPut, "/api/invoices/"+draft.ID, dto.UpdateInvoiceRequest{ExtraFees: &fees})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.True(t, decimal.NewFromInt(315).Equal(decode[dto.InvoiceResponse](t, raw).DueTotal))

	status, raw = doJSON(t, app, http.MethodPost, "/api/invoices/"+draft.ID+"/issue", nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "ISSUED", decode[dto.InvoiceResponse](t, raw).Status)

	status, raw = doJSON(t, app, http.MethodDelete, "/api/invoices/"+draft.ID, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE", decode[dto.ErrorResponse](t, raw).Code)

	status, _ = doJSON(t, app, http.MethodPost, "/api/invoices/"+draft.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodDelete, "/api/invoices/"+draft.ID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/invoices/"+draft.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFacturas_ListadoPaginado(t *testing.T) {
	app := buildTestApp(t)
	issueAcme(t, app)

	status, raw := doJSON(t, app, http.MethodGet, "/api/invoices?month=3&year=2025&limit=10", nil)

	require.Equal(t, http.StatusOK, status, string(raw))
	list := decode[dto.InvoiceListResponse](t, raw)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 1, list.Page.Total)
	assert.Len(t, list.Items[0].Details, 2)
}

func TestMetrics_ExponeContadores(t *testing.T) {
	app := buildTestApp(t)
	issueAcme(t, app)

	status, raw := doJSON(t, app, http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), "billing_invoices_issued_total 1")
}
