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
	"github.com/jhoicas/Vigilancia-api/pkg/logger"
)

// DraftLine línea de un borrador. Amount nil toma la tarifa mensual del sitio;
// Description vacía toma la descripción estándar.
type DraftLine struct {
	SiteID      string `validate:"required"`
	Description string `validate:"max=255"`
	Amount      *decimal.Decimal
}

// CreateInvoiceInput datos de una factura manual (queda en DRAFT).
type CreateInvoiceInput struct {
	ClientID    string      `validate:"required"`
	Month       int         `validate:"min=1,max=12"`
	Year        int         `validate:"min=2000,max=2100"`
	Lines       []DraftLine `validate:"required,min=1,dive"`
	ExtraFees   decimal.Decimal
	CarriedDebt decimal.Decimal
	Notes       string `validate:"max=500"`
}

// UpdateInvoiceInput cambios sobre un borrador. Los campos nil no se modifican;
// Lines no nil reemplaza todas las líneas.
type UpdateInvoiceInput struct {
	Lines       []DraftLine `validate:"omitempty,dive"`
	ExtraFees   *decimal.Decimal
	CarriedDebt *decimal.Decimal
	Notes       *string `validate:"omitempty,max=500"`
	DueDate     *time.Time
}

// InvoiceView factura con sus líneas y el resumen de cobro recalculado.
type InvoiceView struct {
	Invoice *entity.Invoice
	Details []*entity.InvoiceDetail
	Summary dombilling.Summary
}

// InvoiceUseCase ciclo de vida manual de una factura: borrador, edición, emisión,
// anulación y eliminación.
type InvoiceUseCase struct {
	txRunner    TxRunner
	clientRepo  repository.ClientRepository
	siteRepo    repository.SiteRepository
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
	numbers     *numberAllocator
	cfg         Config
	log         *logger.Logger
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(
	txRunner TxRunner,
	clientRepo repository.ClientRepository,
	siteRepo repository.SiteRepository,
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	cfg Config,
	log *logger.Logger,
) *InvoiceUseCase {
	cfg = cfg.withDefaults()
	return &InvoiceUseCase{
		txRunner:    txRunner,
		clientRepo:  clientRepo,
		siteRepo:    siteRepo,
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		numbers:     newNumberAllocator(cfg),
		cfg:         cfg,
		log:         log.WithComponent("billing.invoices"),
	}
}

// buildDetails valida los sitios de las líneas y arma los detalles.
func (uc *InvoiceUseCase) buildDetails(ctx context.Context, invoiceID, clientID string, period entity.Period, lines []DraftLine) ([]*entity.InvoiceDetail, []string, error) {
	siteIDs := make([]string, 0, len(lines))
	for _, l := range lines {
		siteIDs = append(siteIDs, l.SiteID)
	}
	sites, err := loadBillableSites(ctx, uc.siteRepo, clientID, siteIDs)
	if err != nil {
		return nil, nil, err
	}
	details := make([]*entity.InvoiceDetail, 0, len(lines))
	for _, l := range lines {
		s := sites[l.SiteID]
		amount := s.MonthlyTariff
		if l.Amount != nil {
			amount = *l.Amount
		}
		if err := validateNonNegative("monto de línea", amount); err != nil {
			return nil, nil, err
		}
		desc := strings.TrimSpace(l.Description)
		if desc == "" {
			desc = dombilling.DetailDescription(uc.cfg.ServiceLabel, s.Name, period)
		}
		details = append(details, &entity.InvoiceDetail{
			ID:          uc.cfg.NewID(),
			InvoiceID:   invoiceID,
			SiteID:      s.ID,
			Description: desc,
			GuardCount:  s.GuardCount(),
			Amount:      dombilling.Round2(amount),
		})
	}
	return details, siteIDs, nil
}

// CreateDraft crea una factura manual en DRAFT. Reserva número y aplica la misma
// verificación de doble facturación que la emisión masiva.
func (uc *InvoiceUseCase) CreateDraft(ctx context.Context, in CreateInvoiceInput) (*InvoiceView, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	period := entity.Period{Month: in.Month, Year: in.Year}
	if err := validateNonNegative("gastos adicionales", in.ExtraFees); err != nil {
		return nil, err
	}
	if err := validateNonNegative("créditos anteriores", in.CarriedDebt); err != nil {
		return nil, err
	}
	client, err := loadBillableClient(ctx, uc.clientRepo, in.ClientID)
	if err != nil {
		return nil, err
	}

	now := uc.cfg.Clock()
	inv := &entity.Invoice{
		ID:          uc.cfg.NewID(),
		ClientID:    client.ID,
		PeriodMonth: period.Month,
		PeriodYear:  period.Year,
		Currency:    client.Currency,
		IssueDate:   now,
		DueDate:     now.AddDate(0, 0, client.PaymentTermDays),
		ExtraFees:   in.ExtraFees,
		CarriedDebt: in.CarriedDebt,
		Status:      entity.InvoiceStatusDraft,
		Notes:       in.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	details, siteIDs, err := uc.buildDetails(ctx, inv.ID, client.ID, period, in.Lines)
	if err != nil {
		return nil, err
	}
	dombilling.ApplyTotals(inv, details)

	err = uc.txRunner.RunBilling(ctx, func(invoiceRepo repository.InvoiceRepository) error {
		if err := ensureNotBilled(ctx, invoiceRepo, client.ID, period, siteIDs, ""); err != nil {
			return err
		}
		number, err := uc.numbers.next(ctx, invoiceRepo, nil)
		if err != nil {
			return err
		}
		inv.Number = number
		if err := invoiceRepo.Create(ctx, inv); err != nil {
			return domain.NewPersistenceError("crear factura", err)
		}
		for _, d := range details {
			if err := invoiceRepo.CreateDetail(ctx, d); err != nil {
				return domain.NewPersistenceError("crear detalle de factura", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("number", inv.Number).Str("client_id", client.ID).Msg("borrador creado")
	return &InvoiceView{Invoice: inv, Details: details, Summary: dombilling.ComputeSummary(inv, nil)}, nil
}

// UpdateDraft edita un borrador y recalcula sus totales.
func (uc *InvoiceUseCase) UpdateDraft(ctx context.Context, id string, in UpdateInvoiceInput) (*InvoiceView, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.ExtraFees != nil {
		if err := validateNonNegative("gastos adicionales", *in.ExtraFees); err != nil {
			return nil, err
		}
	}
	if in.CarriedDebt != nil {
		if err := validateNonNegative("créditos anteriores", *in.CarriedDebt); err != nil {
			return nil, err
		}
	}

	var view *InvoiceView
	err := uc.txRunner.RunBilling(ctx, func(invoiceRepo repository.InvoiceRepository) error {
		inv, err := lockInvoice(ctx, invoiceRepo, id)
		if err != nil {
			return err
		}
		if inv.Status != entity.InvoiceStatusDraft {
			return domain.InvalidStatef("solo se editan borradores; la factura %s está en %s", inv.Number, inv.Status)
		}

		details, err := invoiceRepo.GetDetailsByInvoiceID(ctx, inv.ID)
		if err != nil {
			return domain.NewPersistenceError("obtener detalles", err)
		}
		if in.Lines != nil {
			if len(in.Lines) == 0 {
				return domain.Validationf("la factura debe tener al menos una línea")
			}
			newDetails, siteIDs, err := uc.buildDetails(ctx, inv.ID, inv.ClientID, inv.Period(), in.Lines)
			if err != nil {
				return err
			}
			if err := ensureNotBilled(ctx, invoiceRepo, inv.ClientID, inv.Period(), siteIDs, inv.ID); err != nil {
				return err
			}
			if err := invoiceRepo.DeleteDetails(ctx, inv.ID); err != nil {
				return domain.NewPersistenceError("eliminar detalles", err)
			}
			for _, d := range newDetails {
				if err := invoiceRepo.CreateDetail(ctx, d); err != nil {
					return domain.NewPersistenceError("crear detalle de factura", err)
				}
			}
			details = newDetails
		}
		if in.ExtraFees != nil {
			inv.ExtraFees = *in.ExtraFees
		}
		if in.CarriedDebt != nil {
			inv.CarriedDebt = *in.CarriedDebt
		}
		if in.Notes != nil {
			inv.Notes = *in.Notes
		}
		if in.DueDate != nil {
			if in.DueDate.Before(inv.IssueDate) {
				return domain.Validationf("el vencimiento no puede ser anterior a la emisión")
			}
			inv.DueDate = *in.DueDate
		}
		dombilling.ApplyTotals(inv, details)
		inv.UpdatedAt = uc.cfg.Clock()
		if err := invoiceRepo.Update(ctx, inv); err != nil {
			return domain.NewPersistenceError("actualizar factura", err)
		}
		view = &InvoiceView{Invoice: inv, Details: details, Summary: dombilling.ComputeSummary(inv, nil)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Issue DRAFT -> ISSUED. Fija la fecha de emisión y el vencimiento según el plazo del cliente.
func (uc *InvoiceUseCase) Issue(ctx context.Context, id string) (*InvoiceView, error) {
	var view *InvoiceView
	err := uc.txRunner.RunBilling(ctx, func(invoiceRepo repository.InvoiceRepository) error {
		inv, err := lockInvoice(ctx, invoiceRepo, id)
		if err != nil {
			return err
		}
		if !dombilling.CanTransition(inv.Status, entity.InvoiceStatusIssued) {
			return domain.InvalidStatef("no se puede emitir la factura %s en estado %s", inv.Number, inv.Status)
		}
		details, err := invoiceRepo.GetDetailsByInvoiceID(ctx, inv.ID)
		if err != nil {
			return domain.NewPersistenceError("obtener detalles", err)
		}
		if len(details) == 0 {
			return domain.Validationf("la factura %s no tiene líneas", inv.Number)
		}
		if err := dombilling.ValidateTotals(inv, details); err != nil {
			return domain.Validationf("%v", err)
		}
		client, err := uc.clientRepo.GetByID(ctx, inv.ClientID)
		if err != nil {
			return domain.NewPersistenceError("obtener cliente", err)
		}
		term := 0
		if client != nil {
			term = client.PaymentTermDays
		}

		now := uc.cfg.Clock()
		inv.Status = entity.InvoiceStatusIssued
		inv.IssueDate = now
		inv.DueDate = now.AddDate(0, 0, term)
		inv.UpdatedAt = now
		// una factura emitida con total 0 queda saldada de inmediato
		inv.Status = dombilling.DeriveStatus(inv.Status, inv.DueTotal, decimal.Zero)
		if err := invoiceRepo.Update(ctx, inv); err != nil {
			return domain.NewPersistenceError("emitir factura", err)
		}
		view = &InvoiceView{Invoice: inv, Details: details, Summary: dombilling.ComputeSummary(inv, nil)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("number", view.Invoice.Number).Msg("factura emitida")
	return view, nil
}

// Cancel anula la factura. El estado se deriva de los pagos antes de decidir, así una
// factura saldada no se anula aunque el estado cacheado esté atrasado.
func (uc *InvoiceUseCase) Cancel(ctx context.Context, id string) (*InvoiceView, error) {
	var view *InvoiceView
	err := uc.txRunner.RunPayments(ctx, func(invoiceRepo repository.InvoiceRepository, paymentRepo repository.PaymentRepository) error {
		inv, err := lockInvoice(ctx, invoiceRepo, id)
		if err != nil {
			return err
		}
		payments, err := paymentRepo.ListByInvoice(ctx, inv.ID)
		if err != nil {
			return domain.NewPersistenceError("listar pagos", err)
		}
		current := dombilling.ComputeSummary(inv, payments).Status
		if !dombilling.CanTransition(current, entity.InvoiceStatusCancelled) {
			return domain.InvalidStatef("no se puede anular la factura %s en estado %s", inv.Number, current)
		}
		details, err := invoiceRepo.GetDetailsByInvoiceID(ctx, inv.ID)
		if err != nil {
			return domain.NewPersistenceError("obtener detalles", err)
		}
		inv.Status = entity.InvoiceStatusCancelled
		inv.UpdatedAt = uc.cfg.Clock()
		if err := invoiceRepo.Update(ctx, inv); err != nil {
			return domain.NewPersistenceError("anular factura", err)
		}
		view = &InvoiceView{Invoice: inv, Details: details, Summary: dombilling.ComputeSummary(inv, payments)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("number", view.Invoice.Number).Msg("factura anulada")
	return view, nil
}

// Delete elimina una factura en DRAFT o CANCELLED junto con sus detalles y pagos.
func (uc *InvoiceUseCase) Delete(ctx context.Context, id string) error {
	return uc.txRunner.RunBilling(ctx, func(invoiceRepo repository.InvoiceRepository) error {
		inv, err := lockInvoice(ctx, invoiceRepo, id)
		if err != nil {
			return err
		}
		if inv.Status != entity.InvoiceStatusDraft && inv.Status != entity.InvoiceStatusCancelled {
			return domain.InvalidStatef("solo se eliminan borradores o facturas anuladas; la factura %s está en %s", inv.Number, inv.Status)
		}
		if err := invoiceRepo.Delete(ctx, inv.ID); err != nil {
			return domain.NewPersistenceError("eliminar factura", err)
		}
		uc.log.Info().Str("number", inv.Number).Msg("factura eliminada")
		return nil
	})
}

// Get factura con detalles y resumen recalculado.
func (uc *InvoiceUseCase) Get(ctx context.Context, id string) (*InvoiceView, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewPersistenceError("obtener factura", err)
	}
	if inv == nil {
		return nil, fmt.Errorf("factura %s: %w", id, domain.ErrNotFound)
	}
	details, err := uc.invoiceRepo.GetDetailsByInvoiceID(ctx, inv.ID)
	if err != nil {
		return nil, domain.NewPersistenceError("obtener detalles", err)
	}
	payments, err := uc.paymentRepo.ListByInvoice(ctx, inv.ID)
	if err != nil {
		return nil, domain.NewPersistenceError("listar pagos", err)
	}
	return &InvoiceView{Invoice: inv, Details: details, Summary: dombilling.ComputeSummary(inv, payments)}, nil
}

// ListByPeriod facturas del período (todos los clientes) con sus detalles.
func (uc *InvoiceUseCase) ListByPeriod(ctx context.Context, period entity.Period) ([]*entity.InvoiceWithDetails, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}
	list, err := uc.invoiceRepo.ListWithDetailsByPeriod(ctx, period)
	if err != nil {
		return nil, domain.NewPersistenceError("listar facturas del período", err)
	}
	return list, nil
}

func lockInvoice(ctx context.Context, invoiceRepo repository.InvoiceRepository, id string) (*entity.Invoice, error) {
	inv, err := invoiceRepo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, domain.NewPersistenceError("bloquear factura", err)
	}
	if inv == nil {
		return nil, fmt.Errorf("factura %s: %w", id, domain.ErrNotFound)
	}
	return inv, nil
}
