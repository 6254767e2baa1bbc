package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/Vigilancia-api/internal/domain"
	dombilling "github.com/jhoicas/Vigilancia-api/internal/domain/billing"
	"github.com/jhoicas/Vigilancia-api/internal/domain/repository"
)

// numberAllocator obtiene números de factura no usados, verificando el conjunto del lote
// en curso y (best-effort) los números ya persistidos.
type numberAllocator struct {
	gen         *dombilling.NumberGenerator
	maxAttempts int
}

func newNumberAllocator(cfg Config) *numberAllocator {
	return &numberAllocator{
		gen:         dombilling.NewNumberGenerator(cfg.InvoicePrefix, cfg.Clock, cfg.RandIntn),
		maxAttempts: cfg.MaxNumberAttempts,
	}
}

// next devuelve un número libre y lo marca en used (si used no es nil).
func (a *numberAllocator) next(ctx context.Context, repo repository.InvoiceRepository, used map[string]struct{}) (string, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		number := a.gen.Next()
		if _, taken := used[number]; taken {
			continue
		}
		exists, err := repo.ExistsNumber(ctx, number)
		if err != nil {
			return "", domain.NewPersistenceError("verificar número de factura", err)
		}
		if exists {
			continue
		}
		if used != nil {
			used[number] = struct{}{}
		}
		return number, nil
	}
	return "", fmt.Errorf("%w tras %d intentos", domain.ErrNumberExhausted, a.maxAttempts)
}
