// Package money formatea montos para mensajes legibles por el operador.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter formatea montos según el idioma configurado.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter construye el formateador; un locale inválido cae a español.
func NewFormatter(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Spanish
	}
	return &Formatter{printer: message.NewPrinter(tag)}
}

// Format monto con separadores de miles y 2 decimales, seguido de la moneda si se indica.
func (f *Formatter) Format(amount decimal.Decimal, currency string) string {
	v, _ := amount.Round(2).Float64()
	s := f.printer.Sprint(number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	if currency != "" {
		s += " " + currency
	}
	return s
}
