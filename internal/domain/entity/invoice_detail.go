package entity

import "github.com/shopspring/decimal"

// InvoiceDetail representa una línea de detalle: el forfait mensual de un sitio.
type InvoiceDetail struct {
	ID          string
	InvoiceID   string
	SiteID      string
	Description string
	GuardCount  int
	Amount      decimal.Decimal
}
