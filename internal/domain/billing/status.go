package billing

import (
	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Summary estado de cobro de una factura, recalculado desde el historial de pagos.
type Summary struct {
	InvoiceID        string
	DueTotal         decimal.Decimal
	TotalPaid        decimal.Decimal
	RemainingBalance decimal.Decimal
	Status           entity.InvoiceStatus
	PaymentCount     int
}

// SumPayments total pagado.
func SumPayments(payments []*entity.Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return Round2(sum)
}

// DeriveStatus estado derivado de total a pagar y total pagado.
//
//	DRAFT, CANCELLED        -> sin cambio
//	pagado >= total         -> PAID_IN_FULL
//	0 < pagado < total      -> PARTIALLY_PAID
//	pagado == 0             -> ISSUED
func DeriveStatus(current entity.InvoiceStatus, dueTotal, totalPaid decimal.Decimal) entity.InvoiceStatus {
	if current == entity.InvoiceStatusDraft || current == entity.InvoiceStatusCancelled {
		return current
	}
	remaining := dueTotal.Sub(totalPaid)
	switch {
	case remaining.LessThanOrEqual(decimal.Zero):
		return entity.InvoiceStatusPaidInFull
	case totalPaid.GreaterThan(decimal.Zero):
		return entity.InvoiceStatusPartiallyPaid
	default:
		return entity.InvoiceStatusIssued
	}
}

// ComputeSummary resumen de cobro a partir de la factura y todos sus pagos.
func ComputeSummary(inv *entity.Invoice, payments []*entity.Payment) Summary {
	paid := SumPayments(payments)
	return Summary{
		InvoiceID:        inv.ID,
		DueTotal:         inv.DueTotal,
		TotalPaid:        paid,
		RemainingBalance: Round2(inv.DueTotal.Sub(paid)),
		Status:           DeriveStatus(inv.Status, inv.DueTotal, paid),
		PaymentCount:     len(payments),
	}
}

// CanTransition transiciones manuales permitidas (emisión y anulación).
// Los cambios entre ISSUED, PARTIALLY_PAID y PAID_IN_FULL solo los produce DeriveStatus.
func CanTransition(from, to entity.InvoiceStatus) bool {
	switch to {
	case entity.InvoiceStatusIssued:
		return from == entity.InvoiceStatusDraft
	case entity.InvoiceStatusCancelled:
		return from == entity.InvoiceStatusDraft ||
			from == entity.InvoiceStatusIssued ||
			from == entity.InvoiceStatusPartiallyPaid
	}
	return false
}
