package billing_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Vigilancia-api/internal/application/billing"
	"github.com/jhoicas/Vigilancia-api/internal/domain"
	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
)

func TestPayments_EscenarioAcme(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	invoiceID := e.issueAcme(t)

	first, err := e.payments.RecordPayment(ctx, invoiceID, cash("200"))
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPartiallyPaid, first.Summary.Status)
	assert.True(t, dec("250").Equal(first.Summary.RemainingBalance))

	second, err := e.payments.RecordPayment(ctx, invoiceID, cash("250"))
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaidInFull, second.Summary.Status)
	assert.True(t, second.Summary.RemainingBalance.IsZero())
	assert.Equal(t, 2, second.Summary.PaymentCount)

	// eliminar el primer pago revierte el estado
	summary, err := e.payments.DeletePayment(ctx, first.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPartiallyPaid, summary.Status)
	assert.True(t, dec("250").Equal(summary.TotalPaid))
	assert.True(t, dec("200").Equal(summary.RemainingBalance))

	// el estado cacheado quedó reescrito
	view, err := e.invoices.Get(ctx, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPartiallyPaid, view.Invoice.Status)
}

func TestPayments_EliminarSegundoPagoRevierteSaldo(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	invoiceID := e.issueAcme(t)

	_, err := e.payments.RecordPayment(ctx, invoiceID, cash("200"))
	require.NoError(t, err)
	second, err := e.payments.RecordPayment(ctx, invoiceID, cash("250"))
	require.NoError(t, err)
	require.Equal(t, entity.InvoiceStatusPaidInFull, second.Summary.Status)

	summary, err := e.payments.DeletePayment(ctx, second.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPartiallyPaid, summary.Status)
	assert.True(t, dec("200").Equal(summary.TotalPaid))
	assert.True(t, dec("250").Equal(summary.RemainingBalance))
	assert.Equal(t, 1, summary.PaymentCount)
}

func TestRecordPayment_FacturaSaldadaRechazaCualquierMonto(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.addClient("cli-cien", "Cien")
	e.addSite("site-cien", "cli-cien", "Portería", 1, 0, "100")
	res := e.issuer.IssueBatch(ctx, []billing.ApprovedPreview{e.approve(t, "cli-cien")})
	require.Len(t, res.Issued, 1)
	invoiceID := res.Issued[0].InvoiceID
	require.True(t, dec("100").Equal(res.Issued[0].DueTotal))

	paid, err := e.payments.RecordPayment(ctx, invoiceID, cash("100"))
	require.NoError(t, err)
	require.Equal(t, entity.InvoiceStatusPaidInFull, paid.Summary.Status)

	_, err = e.payments.RecordPayment(ctx, invoiceID, cash("1"))
	assert.ErrorIs(t, err, domain.ErrOverpayment)

	summary, err := e.payments.ComputeSummary(ctx, invoiceID)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(summary.TotalPaid))
	assert.Equal(t, 1, summary.PaymentCount)
	assert.Equal(t, entity.InvoiceStatusPaidInFull, summary.Status)
}

func TestRecordPayment_Sobrepago(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	invoiceID := e.issueAcme(t)
	_, err := e.payments.RecordPayment(ctx, invoiceID, cash("400"))
	require.NoError(t, err)

	_, err = e.payments.RecordPayment(ctx, invoiceID, cash("50.01"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOverpayment)
	var over *domain.OverpaymentError
	require.True(t, errors.As(err, &over))
	assert.True(t, dec("50").Equal(over.Remaining))
	assert.True(t, dec("50.01").Equal(over.Amount))
	assert.Contains(t, err.Error(), "50,01 USD")

	summary, err := e.payments.ComputeSummary(ctx, invoiceID)
	require.NoError(t, err)
	assert.True(t, dec("400").Equal(summary.TotalPaid), "el total pagado no cambia tras el rechazo")
	assert.Equal(t, 1, summary.PaymentCount)
}

func TestRecordPayment_Validaciones(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	invoiceID := e.issueAcme(t)

	cases := []struct {
		name string
		in   billing.PaymentInput
	}{
		{"monto cero", cash("0")},
		{"monto negativo", cash("-10")},
		{"sin medio de pago", billing.PaymentInput{Amount: dec("10"), PaidAt: fixedNow}},
		{"medio desconocido", billing.PaymentInput{Amount: dec("10"), PaidAt: fixedNow, Method: "BITCOIN"}},
		{"sin fecha", billing.PaymentInput{Amount: dec("10"), Method: entity.PaymentMethodTransfer}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.payments.RecordPayment(ctx, invoiceID, tc.in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestRecordPayment_FacturaInexistenteOBorrador(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.seedAcme()

	_, err := e.payments.RecordPayment(ctx, "no-existe", cash("10"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	draft, err := e.invoices.CreateDraft(ctx, billing.CreateInvoiceInput{
		ClientID: "cli-acme", Month: 3, Year: 2025,
		Lines: []billing.DraftLine{{SiteID: "site-a"}},
	})
	require.NoError(t, err)
	_, err = e.payments.RecordPayment(ctx, draft.Invoice.ID, cash("10"))
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestUpdatePayment_ExcluyeElMontoPropio(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	invoiceID := e.issueAcme(t)
	p1, err := e.payments.RecordPayment(ctx, invoiceID, cash("200"))
	require.NoError(t, err)
	_, err = e.payments.RecordPayment(ctx, invoiceID, cash("100"))
	require.NoError(t, err)

	// 350 + 100 = 450: cabe justo si se descuenta el monto anterior (200)
	in := cash("350")
	in.Method = entity.PaymentMethodTransfer
	in.Reference = "  TRX-991 "
	res, err := e.payments.UpdatePayment(ctx, p1.Payment.ID, in)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaidInFull, res.Summary.Status)
	assert.Equal(t, "TRX-991", res.Payment.Reference)
	assert.Equal(t, entity.PaymentMethodTransfer, res.Payment.Method)

	_, err = e.payments.UpdatePayment(ctx, p1.Payment.ID, cash("350.01"))
	assert.ErrorIs(t, err, domain.ErrOverpayment)

	_, err = e.payments.UpdatePayment(ctx, "no-existe", cash("1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPayments_FacturaAnuladaNoAceptaCambios(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	invoiceID := e.issueAcme(t)
	p, err := e.payments.RecordPayment(ctx, invoiceID, cash("100"))
	require.NoError(t, err)
	_, err = e.invoices.Cancel(ctx, invoiceID)
	require.NoError(t, err)

	_, err = e.payments.RecordPayment(ctx, invoiceID, cash("10"))
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = e.payments.DeletePayment(ctx, p.Payment.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestRecordPayment_Concurrentes(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	invoiceID := e.issueAcme(t)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.payments.RecordPayment(ctx, invoiceID, cash("100")); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, domain.ErrOverpayment)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, accepted)
	summary, err := e.payments.ComputeSummary(ctx, invoiceID)
	require.NoError(t, err)
	assert.True(t, dec("400").Equal(summary.TotalPaid))
	assert.Equal(t, entity.InvoiceStatusPartiallyPaid, summary.Status)
}

// Identidad de saldo: total - pagado == saldo, saldo >= 0 y el estado acorde, tras
// cualquier secuencia de altas y bajas de pagos.
func TestPayments_PropiedadDeSaldo(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	invoiceID := e.issueAcme(t)
	rng := rand.New(rand.NewPCG(7, 11))

	var live []string
	for step := 0; step < 200; step++ {
		if len(live) > 0 && rng.IntN(3) == 0 {
			i := rng.IntN(len(live))
			_, err := e.payments.DeletePayment(ctx, live[i])
			require.NoError(t, err)
			live = append(live[:i], live[i+1:]...)
		} else {
			amount := decimal.New(int64(rng.IntN(20000)+1), -2) // 0.01 .. 200.00
			res, err := e.payments.RecordPayment(ctx, invoiceID, cash(amount.String()))
			if err != nil {
				require.ErrorIs(t, err, domain.ErrOverpayment)
			} else {
				live = append(live, res.Payment.ID)
			}
		}

		s, err := e.payments.ComputeSummary(ctx, invoiceID)
		require.NoError(t, err)
		require.True(t, s.DueTotal.Sub(s.TotalPaid).Equal(s.RemainingBalance))
		require.False(t, s.RemainingBalance.IsNegative(), "paso %d: saldo negativo %s", step, s.RemainingBalance)
		require.Equal(t, len(live), s.PaymentCount)
		switch {
		case s.TotalPaid.IsZero():
			require.Equal(t, entity.InvoiceStatusIssued, s.Status)
		case s.RemainingBalance.IsZero():
			require.Equal(t, entity.InvoiceStatusPaidInFull, s.Status)
		default:
			require.Equal(t, entity.InvoiceStatusPartiallyPaid, s.Status)
		}

		again, err := e.payments.ComputeSummary(ctx, invoiceID)
		require.NoError(t, err)
		require.Equal(t, s, again, "el resumen es idempotente")
	}
}

func TestListPayments(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	invoiceID := e.issueAcme(t)
	_, err := e.payments.RecordPayment(ctx, invoiceID, cash("10"))
	require.NoError(t, err)

	list, err := e.payments.ListPayments(ctx, invoiceID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, dec("10").Equal(list[0].Amount))

	_, err = e.payments.ListPayments(ctx, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
