package billing

import "github.com/shopspring/decimal"

// HasZeroAmount indica que la previsualización no tiene monto estrictamente positivo.
// Suele revelar un sitio mal configurado (costo unitario en cero) y exige confirmación explícita.
func HasZeroAmount(p Preview) bool {
	return p.PrestationSubtotal.LessThanOrEqual(decimal.Zero)
}

// HasSelectedZeroAmountInvoices indica si alguna previsualización seleccionada tiene monto <= 0.
func HasSelectedZeroAmountInvoices(selected []Preview) bool {
	for _, p := range selected {
		if HasZeroAmount(p) {
			return true
		}
	}
	return false
}

// ZeroAmountDetails devuelve las líneas con monto <= 0.
func ZeroAmountDetails(p Preview) []PreviewDetail {
	var out []PreviewDetail
	for _, d := range p.Details {
		if d.Amount.LessThanOrEqual(decimal.Zero) {
			out = append(out, d)
		}
	}
	return out
}
