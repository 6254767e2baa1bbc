package billing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Vigilancia-api/internal/domain/billing"
	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name    string
		current entity.InvoiceStatus
		due     int64
		paid    int64
		want    entity.InvoiceStatus
	}{
		{"emitida sin pagos", entity.InvoiceStatusIssued, 450, 0, entity.InvoiceStatusIssued},
		{"pago parcial", entity.InvoiceStatusIssued, 450, 200, entity.InvoiceStatusPartiallyPaid},
		{"pago total", entity.InvoiceStatusPartiallyPaid, 450, 450, entity.InvoiceStatusPaidInFull},
		{"reversión a parcial", entity.InvoiceStatusPaidInFull, 450, 200, entity.InvoiceStatusPartiallyPaid},
		{"reversión a emitida", entity.InvoiceStatusPartiallyPaid, 450, 0, entity.InvoiceStatusIssued},
		{"borrador no cambia", entity.InvoiceStatusDraft, 450, 450, entity.InvoiceStatusDraft},
		{"anulada no cambia", entity.InvoiceStatusCancelled, 450, 450, entity.InvoiceStatusCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, billing.DeriveStatus(tc.current, d(tc.due), d(tc.paid)))
		})
	}
}

func TestComputeSummary_Idempotente(t *testing.T) {
	inv := &entity.Invoice{ID: "inv-1", DueTotal: d(450), Status: entity.InvoiceStatusIssued}
	payments := []*entity.Payment{{Amount: d(200)}, {Amount: d(100)}}

	first := billing.ComputeSummary(inv, payments)
	second := billing.ComputeSummary(inv, payments)

	assert.Equal(t, first, second)
	assert.Equal(t, "150.00", first.RemainingBalance.StringFixed(2))
	assert.Equal(t, entity.InvoiceStatusPartiallyPaid, first.Status)
	assert.Equal(t, 2, first.PaymentCount)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, billing.CanTransition(entity.InvoiceStatusDraft, entity.InvoiceStatusIssued))
	assert.False(t, billing.CanTransition(entity.InvoiceStatusIssued, entity.InvoiceStatusIssued))
	assert.True(t, billing.CanTransition(entity.InvoiceStatusPartiallyPaid, entity.InvoiceStatusCancelled))
	assert.False(t, billing.CanTransition(entity.InvoiceStatusPaidInFull, entity.InvoiceStatusCancelled))
	assert.False(t, billing.CanTransition(entity.InvoiceStatusCancelled, entity.InvoiceStatusCancelled))
	assert.False(t, billing.CanTransition(entity.InvoiceStatusIssued, entity.InvoiceStatusPaidInFull),
		"los estados de cobro solo se derivan de los pagos")
}
