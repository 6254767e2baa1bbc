package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Site representa un sitio vigilado de un cliente, con su dotación diurna y nocturna.
// MonthlyTariff = (DayGuards + NightGuards) × UnitCost, redondeado a 2 decimales.
type Site struct {
	ID            string
	ClientID      string
	Name          string
	Address       string
	DayGuards     int
	NightGuards   int
	UnitCost      decimal.Decimal // costo mensual por vigilante
	MonthlyTariff decimal.Decimal
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GuardCount total de vigilantes requeridos en el sitio.
func (s *Site) GuardCount() int {
	return s.DayGuards + s.NightGuards
}
