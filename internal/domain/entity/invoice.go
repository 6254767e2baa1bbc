package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus estado del ciclo de vida de una factura.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"          // borrador editable, no acepta pagos
	InvoiceStatusIssued        InvoiceStatus = "ISSUED"         // emitida, sin pagos
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID" // con pagos, saldo pendiente
	InvoiceStatusPaidInFull    InvoiceStatus = "PAID_IN_FULL"
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"
)

// Valid indica si el estado es uno de los conocidos.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusIssued, InvoiceStatusPartiallyPaid,
		InvoiceStatusPaidInFull, InvoiceStatusCancelled:
		return true
	}
	return false
}

// AcceptsPayments indica si se pueden registrar o modificar pagos en este estado.
func (s InvoiceStatus) AcceptsPayments() bool {
	return s != InvoiceStatusDraft && s != InvoiceStatusCancelled
}

// Invoice representa la cabecera de una factura mensual de un cliente.
//
// DueTotal = PrestationSubtotal + ExtraFees + CarriedDebt. Status se persiste solo como
// caché: el valor autoritativo se deriva de los pagos (ver billing.DeriveStatus).
type Invoice struct {
	ID                 string
	ClientID           string
	Number             string
	PeriodMonth        int
	PeriodYear         int
	Currency           string
	IssueDate          time.Time
	DueDate            time.Time
	PrestationSubtotal decimal.Decimal // suma de los montos de los detalles
	ExtraFees          decimal.Decimal
	CarriedDebt        decimal.Decimal // créditos anteriores, ingresados manualmente
	DueTotal           decimal.Decimal
	Status             InvoiceStatus
	Notes              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Period devuelve el período facturado.
func (i *Invoice) Period() Period {
	return Period{Month: i.PeriodMonth, Year: i.PeriodYear}
}

// InvoiceWithDetails factura junto con sus líneas de detalle.
type InvoiceWithDetails struct {
	Invoice *Invoice
	Details []*InvoiceDetail
}
