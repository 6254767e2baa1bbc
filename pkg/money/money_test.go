package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Vigilancia-api/pkg/money"
)

func TestFormat_Ingles(t *testing.T) {
	f := money.NewFormatter("en")
	assert.Equal(t, "1,234.50 USD", f.Format(decimal.RequireFromString("1234.5"), "USD"))
}

func TestFormat_Espanol(t *testing.T) {
	f := money.NewFormatter("es")
	assert.Equal(t, "1.234.567,50", f.Format(decimal.RequireFromString("1234567.5"), ""))
}

func TestFormat_LocaleInvalido(t *testing.T) {
	f := money.NewFormatter("%%%")
	assert.Equal(t, "250,00", f.Format(decimal.NewFromInt(250), ""))
}
