package entity

import "time"

// Client representa un cliente de la empresa de vigilancia (facturación mensual por sitio).
type Client struct {
	ID              string
	Name            string
	TaxID           string
	Currency        string // moneda preferida (ej. XAF, USD); no hay conversión
	PaymentTermDays int    // días de plazo de pago desde la emisión
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
