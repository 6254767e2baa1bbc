package billing

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// DefaultInvoicePrefix prefijo usado si la configuración no define uno.
const DefaultInvoicePrefix = "FAC"

// NumberGenerator genera números de factura legibles del tipo FAC-202503-042.
// No consulta estado externo: el caller debe verificar unicidad antes de persistir.
type NumberGenerator struct {
	prefix string
	clock  func() time.Time
	intn   func(n int) int
}

// NewNumberGenerator construye el generador. clock e intn son inyectables para tests;
// si son nil se usan time.Now y math/rand/v2.
func NewNumberGenerator(prefix string, clock func() time.Time, intn func(n int) int) *NumberGenerator {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultInvoicePrefix
	}
	if clock == nil {
		clock = time.Now
	}
	if intn == nil {
		intn = rand.IntN
	}
	return &NumberGenerator{prefix: prefix, clock: clock, intn: intn}
}

// Next devuelve <PREFIJO>-<AAAA><MM>-<NNN>.
func (g *NumberGenerator) Next() string {
	now := g.clock()
	return fmt.Sprintf("%s-%04d%02d-%03d", g.prefix, now.Year(), int(now.Month()), g.intn(1000))
}
