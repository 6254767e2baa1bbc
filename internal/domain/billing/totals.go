package billing

import (
	"errors"
	"fmt"

	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// BatchLine una previsualización seleccionada con sus cargos adicionales.
type BatchLine struct {
	Preview     Preview
	ExtraFees   decimal.Decimal
	CarriedDebt decimal.Decimal
}

// DueTotal monto a pagar de la línea.
func (l BatchLine) DueTotal() decimal.Decimal {
	return DueTotal(l.Preview.PrestationSubtotal, l.ExtraFees, l.CarriedDebt)
}

// BatchTotals totales de un lote seleccionado.
type BatchTotals struct {
	PreviewCount    int
	TotalGuards     int
	TotalPrestation decimal.Decimal
	TotalDue        decimal.Decimal
}

// DueTotal = prestación + gastos adicionales + créditos anteriores.
func DueTotal(prestation, extraFees, carriedDebt decimal.Decimal) decimal.Decimal {
	return Round2(prestation.Add(extraFees).Add(carriedDebt))
}

// SumDetails suma los montos de las líneas de una factura.
func SumDetails(details []*entity.InvoiceDetail) decimal.Decimal {
	sum := decimal.Zero
	for _, d := range details {
		sum = sum.Add(d.Amount)
	}
	return Round2(sum)
}

// AggregateBatch pliega las líneas del lote en sus totales.
func AggregateBatch(lines []BatchLine) BatchTotals {
	t := BatchTotals{TotalPrestation: decimal.Zero, TotalDue: decimal.Zero}
	for _, l := range lines {
		t.PreviewCount++
		t.TotalGuards += l.Preview.TotalGuardCount
		t.TotalPrestation = t.TotalPrestation.Add(l.Preview.PrestationSubtotal)
		t.TotalDue = t.TotalDue.Add(l.DueTotal())
	}
	t.TotalPrestation = Round2(t.TotalPrestation)
	t.TotalDue = Round2(t.TotalDue)
	return t
}

// ApplyTotals fija PrestationSubtotal y DueTotal de la factura a partir de sus detalles.
func ApplyTotals(inv *entity.Invoice, details []*entity.InvoiceDetail) {
	inv.PrestationSubtotal = SumDetails(details)
	inv.ExtraFees = Round2(inv.ExtraFees)
	inv.CarriedDebt = Round2(inv.CarriedDebt)
	inv.DueTotal = DueTotal(inv.PrestationSubtotal, inv.ExtraFees, inv.CarriedDebt)
}

// ErrInconsistentTotals agrupa descuadres entre cabecera y detalles.
var ErrInconsistentTotals = errors.New("totales de factura inconsistentes")

// ValidateTotals comprueba que la cabecera cuadre con sus detalles.
func ValidateTotals(inv *entity.Invoice, details []*entity.InvoiceDetail) error {
	var errs []error
	if sum := SumDetails(details); !inv.PrestationSubtotal.Equal(sum) {
		errs = append(errs, fmt.Errorf("%w: prestación %s no coincide con la suma de detalles %s",
			ErrInconsistentTotals, inv.PrestationSubtotal.StringFixed(2), sum.StringFixed(2)))
	}
	if due := DueTotal(inv.PrestationSubtotal, inv.ExtraFees, inv.CarriedDebt); !inv.DueTotal.Equal(due) {
		errs = append(errs, fmt.Errorf("%w: total a pagar %s no coincide con prestación + gastos + créditos %s",
			ErrInconsistentTotals, inv.DueTotal.StringFixed(2), due.StringFixed(2)))
	}
	return errors.Join(errs...)
}
