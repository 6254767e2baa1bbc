package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
	"github.com/jhoicas/Vigilancia-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// ErrInvoiceNumberTaken el número ya existe (constraint único en invoices.number).
var ErrInvoiceNumberTaken = errors.New("número de factura ya existe")

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id, client_id, number, period_month, period_year, currency, issue_date, due_date,
	prestation_subtotal, extra_fees, carried_debt, due_total, status, COALESCE(notes, ''),
	created_at, updated_at`

func scanInvoice(row pgxScanner) (*entity.Invoice, error) {
	var inv entity.Invoice
	err := row.Scan(
		&inv.ID, &inv.ClientID, &inv.Number, &inv.PeriodMonth, &inv.PeriodYear, &inv.Currency,
		&inv.IssueDate, &inv.DueDate,
		&inv.PrestationSubtotal, &inv.ExtraFees, &inv.CarriedDebt, &inv.DueTotal,
		&inv.Status, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create persiste la cabecera de la factura.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	const query = `
		INSERT INTO invoices (id, client_id, number, period_month, period_year, currency, issue_date, due_date,
			prestation_subtotal, extra_fees, carried_debt, due_total, status, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, inv.ClientID, inv.Number, inv.PeriodMonth, inv.PeriodYear, inv.Currency,
		inv.IssueDate, inv.DueDate,
		inv.PrestationSubtotal, inv.ExtraFees, inv.CarriedDebt, inv.DueTotal,
		string(inv.Status), nullIfEmpty(inv.Notes), inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrInvoiceNumberTaken, inv.Number)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// CreateDetail persiste una línea de detalle.
func (r *InvoiceRepo) CreateDetail(ctx context.Context, d *entity.InvoiceDetail) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	const query = `
		INSERT INTO invoice_details (id, invoice_id, site_id, description, guard_count, amount)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.q.Exec(ctx, query, d.ID, d.InvoiceID, d.SiteID, d.Description, d.GuardCount, d.Amount); err != nil {
		return fmt.Errorf("insert invoice detail: %w", err)
	}
	return nil
}

// Update actualiza totales, fechas, notas y el estado cacheado.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	const query = `
		UPDATE invoices
		SET issue_date          = $2,
		    due_date            = $3,
		    prestation_subtotal = $4,
		    extra_fees          = $5,
		    carried_debt        = $6,
		    due_total           = $7,
		    status              = $8,
		    notes               = $9,
		    updated_at          = $10
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		inv.ID, inv.IssueDate, inv.DueDate,
		inv.PrestationSubtotal, inv.ExtraFees, inv.CarriedDebt, inv.DueTotal,
		string(inv.Status), nullIfEmpty(inv.Notes), inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update invoice: %s no existe", inv.ID)
	}
	return nil
}

// DeleteDetails elimina las líneas de la factura.
func (r *InvoiceRepo) DeleteDetails(ctx context.Context, invoiceID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM invoice_details WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("delete invoice details: %w", err)
	}
	return nil
}

// Delete elimina la factura; detalles y pagos caen por ON DELETE CASCADE.
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}

func (r *InvoiceRepo) getOne(ctx context.Context, query, id string) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// GetByID obtiene una factura por ID.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

// GetForUpdate obtiene la factura con bloqueo de fila (solo tiene efecto dentro de una tx).
func (r *InvoiceRepo) GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id)
}

const detailColumns = `id, invoice_id, site_id, description, guard_count, amount`

func scanDetail(row pgxScanner) (*entity.InvoiceDetail, error) {
	var d entity.InvoiceDetail
	if err := row.Scan(&d.ID, &d.InvoiceID, &d.SiteID, &d.Description, &d.GuardCount, &d.Amount); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDetailsByInvoiceID líneas de una factura.
func (r *InvoiceRepo) GetDetailsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceDetail, error) {
	rows, err := r.q.Query(ctx, `SELECT `+detailColumns+` FROM invoice_details WHERE invoice_id = $1 ORDER BY description, id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice details: %w", err)
	}
	defer rows.Close()
	var list []*entity.InvoiceDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice detail: %w", err)
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// ListWithDetailsByPeriod facturas del período con sus líneas, en dos consultas.
func (r *InvoiceRepo) ListWithDetailsByPeriod(ctx context.Context, period entity.Period) ([]*entity.InvoiceWithDetails, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE period_month = $1 AND period_year = $2 ORDER BY number`,
		period.Month, period.Year)
	if err != nil {
		return nil, fmt.Errorf("list invoices by period: %w", err)
	}
	var (
		list []*entity.InvoiceWithDetails
		ids  []string
		byID = make(map[string]*entity.InvoiceWithDetails)
	)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		iw := &entity.InvoiceWithDetails{Invoice: inv}
		list = append(list, iw)
		ids = append(ids, inv.ID)
		byID[inv.ID] = iw
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invoices by period: %w", err)
	}
	if len(ids) == 0 {
		return list, nil
	}

	drows, err := r.q.Query(ctx, `SELECT `+detailColumns+` FROM invoice_details WHERE invoice_id = ANY($1) ORDER BY description, id`, ids)
	if err != nil {
		return nil, fmt.Errorf("list invoice details: %w", err)
	}
	defer drows.Close()
	for drows.Next() {
		d, err := scanDetail(drows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice detail: %w", err)
		}
		if iw, ok := byID[d.InvoiceID]; ok {
			iw.Details = append(iw.Details, d)
		}
	}
	return list, drows.Err()
}

// LockClientPeriod toma un advisory lock transaccional por cliente y período.
// Fuera de una transacción se libera de inmediato y no protege nada.
func (r *InvoiceRepo) LockClientPeriod(ctx context.Context, clientID string, period entity.Period) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, billingLockKey(clientID, period)); err != nil {
		return fmt.Errorf("lock client period: %w", err)
	}
	return nil
}

func billingLockKey(clientID string, period entity.Period) string {
	return fmt.Sprintf("billing:%s:%04d-%02d", clientID, period.Year, period.Month)
}

// ExistsNumber indica si el número de factura ya está usado.
func (r *InvoiceRepo) ExistsNumber(ctx context.Context, number string) (bool, error) {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE number = $1)`, number).Scan(&exists); err != nil {
		return false, fmt.Errorf("check invoice number: %w", err)
	}
	return exists, nil
}
