package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Medios de pago aceptados.
const (
	PaymentMethodCash        = "CASH"
	PaymentMethodTransfer    = "TRANSFER"
	PaymentMethodCheck       = "CHECK"
	PaymentMethodCard        = "CARD"
	PaymentMethodMobileMoney = "MOBILE_MONEY"
	PaymentMethodOther       = "OTHER"
)

// PaymentMethods lista los medios válidos (usado por la validación de entrada).
var PaymentMethods = []string{
	PaymentMethodCash, PaymentMethodTransfer, PaymentMethodCheck,
	PaymentMethodCard, PaymentMethodMobileMoney, PaymentMethodOther,
}

// Payment representa un pago aplicado a una factura.
type Payment struct {
	ID        string
	InvoiceID string
	Amount    decimal.Decimal
	PaidAt    time.Time
	Method    string
	Reference string // número de transferencia, cheque, etc.
	Bank      string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
