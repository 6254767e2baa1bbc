package repository

import (
	"context"

	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// PaymentRepository define el puerto de persistencia para pagos.
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	Update(ctx context.Context, payment *entity.Payment) error
	Delete(ctx context.Context, id string) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Payment, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.Payment, error)
}

// PaymentSummaryReader puerto opcional: total pagado calculado por el almacenamiento.
// El motor lo usa solo para contraste; el valor recalculado desde los pagos prevalece.
type PaymentSummaryReader interface {
	SumByInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error)
}
