package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Vigilancia-api/internal/domain"
	dombilling "github.com/jhoicas/Vigilancia-api/internal/domain/billing"
	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
	"github.com/jhoicas/Vigilancia-api/internal/domain/repository"
	"github.com/jhoicas/Vigilancia-api/internal/observability"
	"github.com/jhoicas/Vigilancia-api/pkg/logger"
	"github.com/jhoicas/Vigilancia-api/pkg/money"
)

// PaymentInput datos de un pago a registrar o corregir.
type PaymentInput struct {
	Amount    decimal.Decimal `validate:"-"`
	PaidAt    time.Time       `validate:"required"`
	Method    string          `validate:"required,oneof=CASH TRANSFER CHECK CARD MOBILE_MONEY OTHER"`
	Reference string          `validate:"max=100"`
	Bank      string          `validate:"max=100"`
	Notes     string          `validate:"max=500"`
}

// PaymentResult pago persistido y el resumen de cobro resultante.
type PaymentResult struct {
	Payment *entity.Payment
	Summary dombilling.Summary
}

// PaymentUseCase aplica pagos a facturas y mantiene su estado de cobro.
type PaymentUseCase struct {
	txRunner    PaymentTxRunner
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
	cfg         Config
	money       *money.Formatter
	metrics     *observability.Metrics
	log         *logger.Logger
}

// NewPaymentUseCase construye el caso de uso. formatter puede ser nil (se usa español).
func NewPaymentUseCase(
	txRunner PaymentTxRunner,
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	cfg Config,
	formatter *money.Formatter,
	metrics *observability.Metrics,
	log *logger.Logger,
) *PaymentUseCase {
	if formatter == nil {
		formatter = money.NewFormatter("es")
	}
	return &PaymentUseCase{
		txRunner:    txRunner,
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		cfg:         cfg.withDefaults(),
		money:       formatter,
		metrics:     metrics,
		log:         log.WithComponent("billing.payments"),
	}
}

func (uc *PaymentUseCase) validateInput(in PaymentInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	if !in.Amount.IsPositive() {
		return domain.Validationf("el monto del pago debe ser mayor a cero (%s)", in.Amount.StringFixed(2))
	}
	return nil
}

// lockPayable bloquea la factura y exige que acepte pagos.
func lockPayable(ctx context.Context, invoiceRepo repository.InvoiceRepository, invoiceID string) (*entity.Invoice, error) {
	inv, err := invoiceRepo.GetForUpdate(ctx, invoiceID)
	if err != nil {
		return nil, domain.NewPersistenceError("bloquear factura", err)
	}
	if inv == nil {
		return nil, fmt.Errorf("factura %s: %w", invoiceID, domain.ErrNotFound)
	}
	if !inv.Status.AcceptsPayments() {
		return nil, domain.InvalidStatef("la factura %s está en estado %s y no acepta pagos", inv.Number, inv.Status)
	}
	return inv, nil
}

// overpayment construye el error con los montos formateados.
func (uc *PaymentUseCase) overpayment(inv *entity.Invoice, amount, remaining decimal.Decimal) error {
	return &domain.OverpaymentError{
		Amount:    amount,
		Remaining: remaining,
		Message: fmt.Sprintf("el pago de %s supera el saldo pendiente de %s en la factura %s",
			uc.money.Format(amount, inv.Currency), uc.money.Format(remaining, inv.Currency), inv.Number),
	}
}

// refreshStatus recalcula el resumen y reescribe el estado cacheado si cambió.
func refreshStatus(ctx context.Context, invoiceRepo repository.InvoiceRepository, inv *entity.Invoice, payments []*entity.Payment, now time.Time) (dombilling.Summary, error) {
	summary := dombilling.ComputeSummary(inv, payments)
	if summary.Status != inv.Status {
		inv.Status = summary.Status
		inv.UpdatedAt = now
		if err := invoiceRepo.Update(ctx, inv); err != nil {
			return summary, domain.NewPersistenceError("actualizar estado de factura", err)
		}
	}
	return summary, nil
}

// RecordPayment registra un pago. El saldo se verifica con la factura bloqueada, de modo que
// dos pagos concurrentes no pueden superar el total a pagar.
func (uc *PaymentUseCase) RecordPayment(ctx context.Context, invoiceID string, in PaymentInput) (res *PaymentResult, err error) {
	defer func() { uc.metrics.ObservePayment("create", err) }()

	if err := uc.validateInput(in); err != nil {
		return nil, err
	}
	amount := dombilling.Round2(in.Amount)

	err = uc.txRunner.RunPayments(ctx, func(invoiceRepo repository.InvoiceRepository, paymentRepo repository.PaymentRepository) error {
		inv, err := lockPayable(ctx, invoiceRepo, invoiceID)
		if err != nil {
			return err
		}
		payments, err := paymentRepo.ListByInvoice(ctx, inv.ID)
		if err != nil {
			return domain.NewPersistenceError("listar pagos", err)
		}
		remaining := dombilling.Round2(inv.DueTotal.Sub(dombilling.SumPayments(payments)))
		if amount.GreaterThan(remaining) {
			return uc.overpayment(inv, amount, remaining)
		}

		now := uc.cfg.Clock()
		p := &entity.Payment{
			ID:        uc.cfg.NewID(),
			InvoiceID: inv.ID,
			Amount:    amount,
			PaidAt:    in.PaidAt,
			Method:    in.Method,
			Reference: strings.TrimSpace(in.Reference),
			Bank:      strings.TrimSpace(in.Bank),
			Notes:     in.Notes,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := paymentRepo.Create(ctx, p); err != nil {
			return domain.NewPersistenceError("registrar pago", err)
		}
		summary, err := refreshStatus(ctx, invoiceRepo, inv, append(payments, p), now)
		if err != nil {
			return err
		}
		res = &PaymentResult{Payment: p, Summary: summary}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("invoice_id", invoiceID).Str("amount", amount.StringFixed(2)).Str("status", string(res.Summary.Status)).Msg("pago registrado")
	return res, nil
}

// UpdatePayment corrige un pago existente. El nuevo monto se compara contra el saldo
// sin contar el monto anterior del mismo pago.
func (uc *PaymentUseCase) UpdatePayment(ctx context.Context, paymentID string, in PaymentInput) (res *PaymentResult, err error) {
	defer func() { uc.metrics.ObservePayment("update", err) }()

	if err := uc.validateInput(in); err != nil {
		return nil, err
	}
	amount := dombilling.Round2(in.Amount)

	err = uc.txRunner.RunPayments(ctx, func(invoiceRepo repository.InvoiceRepository, paymentRepo repository.PaymentRepository) error {
		current, err := paymentRepo.GetByID(ctx, paymentID)
		if err != nil {
			return domain.NewPersistenceError("obtener pago", err)
		}
		if current == nil {
			return fmt.Errorf("pago %s: %w", paymentID, domain.ErrNotFound)
		}
		inv, err := lockPayable(ctx, invoiceRepo, current.InvoiceID)
		if err != nil {
			return err
		}
		payments, err := paymentRepo.ListByInvoice(ctx, inv.ID)
		if err != nil {
			return domain.NewPersistenceError("listar pagos", err)
		}

		others := make([]*entity.Payment, 0, len(payments))
		for _, p := range payments {
			if p.ID != current.ID {
				others = append(others, p)
			}
		}
		remaining := dombilling.Round2(inv.DueTotal.Sub(dombilling.SumPayments(others)))
		if amount.GreaterThan(remaining) {
			return uc.overpayment(inv, amount, remaining)
		}

		now := uc.cfg.Clock()
		updated := *current
		updated.Amount = amount
		updated.PaidAt = in.PaidAt
		updated.Method = in.Method
		updated.Reference = strings.TrimSpace(in.Reference)
		updated.Bank = strings.TrimSpace(in.Bank)
		updated.Notes = in.Notes
		updated.UpdatedAt = now
		if err := paymentRepo.Update(ctx, &updated); err != nil {
			return domain.NewPersistenceError("actualizar pago", err)
		}
		summary, err := refreshStatus(ctx, invoiceRepo, inv, append(others, &updated), now)
		if err != nil {
			return err
		}
		res = &PaymentResult{Payment: &updated, Summary: summary}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("payment_id", paymentID).Str("amount", amount.StringFixed(2)).Str("status", string(res.Summary.Status)).Msg("pago actualizado")
	return res, nil
}

// DeletePayment elimina un pago y recalcula el estado; puede volver a PARTIALLY_PAID o ISSUED.
func (uc *PaymentUseCase) DeletePayment(ctx context.Context, paymentID string) (summary *dombilling.Summary, err error) {
	defer func() { uc.metrics.ObservePayment("delete", err) }()

	err = uc.txRunner.RunPayments(ctx, func(invoiceRepo repository.InvoiceRepository, paymentRepo repository.PaymentRepository) error {
		current, err := paymentRepo.GetByID(ctx, paymentID)
		if err != nil {
			return domain.NewPersistenceError("obtener pago", err)
		}
		if current == nil {
			return fmt.Errorf("pago %s: %w", paymentID, domain.ErrNotFound)
		}
		inv, err := lockPayable(ctx, invoiceRepo, current.InvoiceID)
		if err != nil {
			return err
		}
		if err := paymentRepo.Delete(ctx, current.ID); err != nil {
			return domain.NewPersistenceError("eliminar pago", err)
		}
		payments, err := paymentRepo.ListByInvoice(ctx, inv.ID)
		if err != nil {
			return domain.NewPersistenceError("listar pagos", err)
		}
		s, err := refreshStatus(ctx, invoiceRepo, inv, payments, uc.cfg.Clock())
		if err != nil {
			return err
		}
		summary = &s
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("payment_id", paymentID).Str("status", string(summary.Status)).Msg("pago eliminado")
	return summary, nil
}

// ComputeSummary recalcula el resumen de cobro desde el historial de pagos. No escribe.
func (uc *PaymentUseCase) ComputeSummary(ctx context.Context, invoiceID string) (*dombilling.Summary, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, domain.NewPersistenceError("obtener factura", err)
	}
	if inv == nil {
		return nil, fmt.Errorf("factura %s: %w", invoiceID, domain.ErrNotFound)
	}
	payments, err := uc.paymentRepo.ListByInvoice(ctx, inv.ID)
	if err != nil {
		return nil, domain.NewPersistenceError("listar pagos", err)
	}
	summary := dombilling.ComputeSummary(inv, payments)

	if reader, ok := uc.paymentRepo.(repository.PaymentSummaryReader); ok {
		stored, err := reader.SumByInvoice(ctx, inv.ID)
		switch {
		case err != nil:
			uc.log.Warn().Err(err).Str("invoice_id", inv.ID).Msg("no se pudo contrastar el total pagado almacenado")
		case !dombilling.Round2(stored).Equal(summary.TotalPaid):
			uc.log.Warn().
				Str("invoice_id", inv.ID).
				Str("stored", stored.StringFixed(2)).
				Str("computed", summary.TotalPaid.StringFixed(2)).
				Msg("total pagado almacenado difiere del recalculado; prevalece el recalculado")
		}
	}
	if summary.Status != inv.Status {
		uc.log.Debug().Str("invoice_id", inv.ID).Str("cached", string(inv.Status)).Str("derived", string(summary.Status)).Msg("estado cacheado desactualizado")
	}
	return &summary, nil
}

// ListPayments pagos de una factura ordenados por fecha.
func (uc *PaymentUseCase) ListPayments(ctx context.Context, invoiceID string) ([]*entity.Payment, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, domain.NewPersistenceError("obtener factura", err)
	}
	if inv == nil {
		return nil, fmt.Errorf("factura %s: %w", invoiceID, domain.ErrNotFound)
	}
	payments, err := uc.paymentRepo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, domain.NewPersistenceError("listar pagos", err)
	}
	return payments, nil
}
