package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Vigilancia-api/internal/domain/repository"
)

// BillingTxRunner ejecuta una función dentro de una transacción de facturación:
// la cabecera y sus detalles se escriben juntos o no se escriben.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(invoiceRepo repository.InvoiceRepository) error) error
}

// PaymentTxRunner ejecuta una función dentro de una transacción que incluye facturas y pagos.
// La verificación de saldo y la escritura del pago ocurren en la misma transacción.
type PaymentTxRunner interface {
	RunPayments(ctx context.Context, fn func(
		invoiceRepo repository.InvoiceRepository,
		paymentRepo repository.PaymentRepository,
	) error) error
}

// Clock fuente de la hora actual (inyectable en tests).
type Clock func() time.Time

// IDGenerator genera identificadores de registros (inyectable en tests).
type IDGenerator func() string

// Config parámetros del motor de facturación.
type Config struct {
	InvoicePrefix     string
	ServiceLabel      string
	MaxNumberAttempts int
	Clock             Clock       // nil = time.Now
	NewID             IDGenerator // nil = uuid.NewString
	// RandIntn fuente aleatoria del sufijo del número de factura; nil = math/rand/v2.
	RandIntn func(n int) int
}

func (c Config) withDefaults() Config {
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	if c.MaxNumberAttempts <= 0 {
		c.MaxNumberAttempts = 5
	}
	return c
}

// TxRunner reúne ambos tipos de transacción (lo implementan postgres.TxRunner y los fakes de test).
type TxRunner interface {
	BillingTxRunner
	PaymentTxRunner
}
