package billing

import "github.com/shopspring/decimal"

// MoneyPlaces decimales usados para todos los montos.
const MoneyPlaces = 2

// Round2 redondea un monto a 2 decimales.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// ComputeTariff tarifa mensual del sitio = (dayGuards + nightGuards) × unitCost, a 2 decimales.
func ComputeTariff(dayGuards, nightGuards int, unitCost decimal.Decimal) decimal.Decimal {
	guards := decimal.NewFromInt(int64(dayGuards + nightGuards))
	return Round2(guards.Mul(unitCost))
}
