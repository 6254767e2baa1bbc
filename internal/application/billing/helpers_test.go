package billing_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Vigilancia-api/internal/application/billing"
	dombilling "github.com/jhoicas/Vigilancia-api/internal/domain/billing"
	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
	"github.com/jhoicas/Vigilancia-api/internal/testing/memstore"
	"github.com/jhoicas/Vigilancia-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────────────────────

var (
	march2025 = entity.Period{Month: 3, Year: 2025}
	fixedNow  = time.Date(2025, 3, 28, 10, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type env struct {
	store    *memstore.Store
	preview  *billing.PreviewUseCase
	issuer   *billing.BulkIssueUseCase
	payments *billing.PaymentUseCase
	invoices *billing.InvoiceUseCase
}

// newEnv arma los casos de uso sobre un almacén en memoria con reloj fijo, ids
// secuenciales y sufijos de número secuenciales (salvo que se pase intn).
func newEnv(t *testing.T, intn func(int) int) *env {
	t.Helper()
	var ids, suffix atomic.Int64
	if intn == nil {
		intn = func(n int) int { return int(suffix.Add(1)) % n }
	}
	cfg := billing.Config{
		InvoicePrefix:     "FAC",
		MaxNumberAttempts: 5,
		Clock:             func() time.Time { return fixedNow },
		NewID:             func() string { return fmt.Sprintf("id-%04d", ids.Add(1)) },
		RandIntn:          intn,
	}
	store := memstore.New()
	log := logger.Nop()
	return &env{
		store:    store,
		preview:  billing.NewPreviewUseCase(store.Clients(), store.Sites(), store.Invoices(), cfg, log),
		issuer:   billing.NewBulkIssueUseCase(store, store.Clients(), store.Sites(), store.Invoices(), cfg, nil, log),
		payments: billing.NewPaymentUseCase(store, store.Invoices(), store.Payments(), cfg, nil, nil, log),
		invoices: billing.NewInvoiceUseCase(store, store.Clients(), store.Sites(), store.Invoices(), store.Payments(), cfg, log),
	}
}

func (e *env) addClient(id, name string) {
	e.store.AddClient(&entity.Client{ID: id, Name: name, Currency: "USD", PaymentTermDays: 30, Active: true})
}

func (e *env) addSite(id, clientID, name string, day, night int, unit string) {
	cost := dec(unit)
	e.store.AddSite(&entity.Site{
		ID: id, ClientID: clientID, Name: name,
		DayGuards: day, NightGuards: night,
		UnitCost:      cost,
		MonthlyTariff: dombilling.ComputeTariff(day, night, cost),
		Active:        true,
	})
}

// seedAcme cliente Acme con Site A (2+1 × 100) y Site B (1+0 × 150): 450 al mes.
func (e *env) seedAcme() {
	e.addClient("cli-acme", "Acme")
	e.addSite("site-a", "cli-acme", "Site A", 2, 1, "100")
	e.addSite("site-b", "cli-acme", "Site B", 1, 0, "150")
}

func (e *env) approve(t *testing.T, clientID string) billing.ApprovedPreview {
	t.Helper()
	p, err := e.preview.PreviewClient(context.Background(), clientID, march2025)
	require.NoError(t, err)
	return billing.ApprovedPreview{Preview: *p}
}

// issueAcme emite la factura de Acme por 450 y devuelve su id.
func (e *env) issueAcme(t *testing.T) string {
	t.Helper()
	e.seedAcme()
	res := e.issuer.IssueBatch(context.Background(), []billing.ApprovedPreview{e.approve(t, "cli-acme")})
	require.Empty(t, res.Errors())
	require.Len(t, res.Issued, 1)
	return res.Issued[0].InvoiceID
}

func cash(amount string) billing.PaymentInput {
	return billing.PaymentInput{Amount: dec(amount), PaidAt: fixedNow, Method: entity.PaymentMethodCash}
}
