package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Vigilancia-api/internal/application/billing"
	"github.com/jhoicas/Vigilancia-api/internal/domain/repository"
)

var _ billing.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// run inicia la transacción, ejecuta fn y hace Commit o Rollback.
func (r *TxRunner) run(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunBilling cabecera y detalles de factura en una sola transacción.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(invoiceRepo repository.InvoiceRepository) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewInvoiceRepository(tx))
	})
}

// RunPayments factura (bloqueada con GetForUpdate) y pagos en una sola transacción.
func (r *TxRunner) RunPayments(ctx context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
) error) error {
	return r.run(ctx, func(tx pgx.Tx) error {
		return fn(NewInvoiceRepository(tx), NewPaymentRepository(tx))
	})
}
