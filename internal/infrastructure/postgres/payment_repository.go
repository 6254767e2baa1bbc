package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
	"github.com/jhoicas/Vigilancia-api/internal/domain/repository"
)

var (
	_ repository.PaymentRepository    = (*PaymentRepo)(nil)
	_ repository.PaymentSummaryReader = (*PaymentRepo)(nil)
)

// PaymentRepo implementación de PaymentRepository (usable con pool o tx).
type PaymentRepo struct {
	q Querier
}

// NewPaymentRepository construye el adaptador.
func NewPaymentRepository(q Querier) *PaymentRepo {
	return &PaymentRepo{q: q}
}

const paymentColumns = `id, invoice_id, amount, paid_at, method, COALESCE(reference, ''), COALESCE(bank, ''),
	COALESCE(notes, ''), created_at, updated_at`

func scanPayment(row pgxScanner) (*entity.Payment, error) {
	var p entity.Payment
	err := row.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.PaidAt, &p.Method, &p.Reference, &p.Bank,
		&p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create persiste un pago.
func (r *PaymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	const query = `
		INSERT INTO payments (id, invoice_id, amount, paid_at, method, reference, bank, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.InvoiceID, p.Amount, p.PaidAt, p.Method,
		nullIfEmpty(p.Reference), nullIfEmpty(p.Bank), nullIfEmpty(p.Notes),
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// Update reemplaza los datos del pago.
func (r *PaymentRepo) Update(ctx context.Context, p *entity.Payment) error {
	const query = `
		UPDATE payments
		SET amount = $2, paid_at = $3, method = $4, reference = $5, bank = $6, notes = $7, updated_at = $8
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		p.ID, p.Amount, p.PaidAt, p.Method,
		nullIfEmpty(p.Reference), nullIfEmpty(p.Bank), nullIfEmpty(p.Notes), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update payment: %s no existe", p.ID)
	}
	return nil
}

// Delete elimina un pago.
func (r *PaymentRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return nil
}

// GetByID obtiene un pago por ID.
func (r *PaymentRepo) GetByID(ctx context.Context, id string) (*entity.Payment, error) {
	p, err := scanPayment(r.q.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// ListByInvoice pagos de una factura ordenados por fecha de pago.
func (r *PaymentRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]*entity.Payment, error) {
	rows, err := r.q.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE invoice_id = $1 ORDER BY paid_at, id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	var list []*entity.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// SumByInvoice total pagado según la base de datos.
func (r *PaymentRepo) SumByInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE invoice_id = $1`, invoiceID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	return sum, nil
}
