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
)

// ApprovedPreview previsualización aprobada por el operador para emitir.
type ApprovedPreview struct {
	Preview     dombilling.Preview
	ExtraFees   decimal.Decimal
	CarriedDebt decimal.Decimal // créditos anteriores, ingresados a mano
	// ConfirmZeroAmount autoriza emitir aunque la factura o alguna línea tenga monto <= 0.
	ConfirmZeroAmount bool
	Notes             string

	prepErr error // fallo al armar la previsualización en PrepareSelection
}

// Selection lo que el operador eligió para un cliente. SiteIDs vacío = todos los sitios elegibles.
type Selection struct {
	ClientID          string
	SiteIDs           []string
	ExtraFees         decimal.Decimal
	CarriedDebt       decimal.Decimal
	ConfirmZeroAmount bool
	Notes             string
}

// IssuedInvoice factura emitida con éxito dentro del lote.
type IssuedInvoice struct {
	Index      int
	InvoiceID  string
	Number     string
	ClientID   string
	ClientName string
	DueTotal   decimal.Decimal
}

// BatchFailure fallo de un cliente dentro del lote; no interrumpe el resto.
type BatchFailure struct {
	Index      int
	ClientID   string
	ClientName string
	SiteIDs    []string
	Err        error
}

// Message texto legible para el operador.
func (f BatchFailure) Message() string {
	name := f.ClientName
	if name == "" {
		name = f.ClientID
	}
	var b strings.Builder
	fmt.Fprintf(&b, "#%d cliente %s (%s)", f.Index+1, name, f.ClientID)
	if len(f.SiteIDs) > 0 {
		fmt.Fprintf(&b, ", sitios [%s]", strings.Join(f.SiteIDs, ", "))
	}
	fmt.Fprintf(&b, ": %v", f.Err)
	return b.String()
}

// BatchResult acumulador de la emisión: éxitos y fallos en el orden de entrada.
type BatchResult struct {
	Issued   []IssuedInvoice
	Failures []BatchFailure
}

// IssuedCount cantidad de facturas emitidas.
func (r BatchResult) IssuedCount() int { return len(r.Issued) }

// Errors mensajes legibles de cada fallo.
func (r BatchResult) Errors() []string {
	out := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Message())
	}
	return out
}

// BulkIssueUseCase emite un lote de facturas mensuales, un cliente a la vez.
//
// No hay transacción que abarque el lote: cada factura con sus detalles es su propia unidad.
// Un fallo se registra en el resultado y el lote continúa; volver a correr el lote para los
// clientes fallidos es seguro porque los sitios ya facturados quedan excluidos.
type BulkIssueUseCase struct {
	txRunner    BillingTxRunner
	clientRepo  repository.ClientRepository
	siteRepo    repository.SiteRepository
	invoiceRepo repository.InvoiceRepository
	preview     *PreviewUseCase
	numbers     *numberAllocator
	cfg         Config
	metrics     *observability.Metrics
	log         *logger.Logger
}

// NewBulkIssueUseCase construye el caso de uso.
func NewBulkIssueUseCase(
	txRunner BillingTxRunner,
	clientRepo repository.ClientRepository,
	siteRepo repository.SiteRepository,
	invoiceRepo repository.InvoiceRepository,
	cfg Config,
	metrics *observability.Metrics,
	log *logger.Logger,
) *BulkIssueUseCase {
	cfg = cfg.withDefaults()
	return &BulkIssueUseCase{
		txRunner:    txRunner,
		clientRepo:  clientRepo,
		siteRepo:    siteRepo,
		invoiceRepo: invoiceRepo,
		preview:     NewPreviewUseCase(clientRepo, siteRepo, invoiceRepo, cfg, log),
		numbers:     newNumberAllocator(cfg),
		cfg:         cfg,
		metrics:     metrics,
		log:         log.WithComponent("billing.issue"),
	}
}

// fold aplica step a cada elemento en orden, encadenando el acumulador.
func fold[T, A any](items []T, acc A, step func(A, int, T) A) A {
	for i, item := range items {
		acc = step(acc, i, item)
	}
	return acc
}

// IssueBatch emite las previsualizaciones aprobadas estrictamente en orden y sin paralelismo.
// Nunca devuelve error: cada fallo queda en BatchResult.Failures con el índice de entrada.
// El contexto no se consulta entre clientes; una vez iniciado, el lote corre hasta el final.
func (uc *BulkIssueUseCase) IssueBatch(ctx context.Context, approved []ApprovedPreview) BatchResult {
	start := time.Now()
	used := make(map[string]struct{}, len(approved))
	ctx = context.WithoutCancel(ctx)

	result := fold(approved, BatchResult{}, func(acc BatchResult, i int, ap ApprovedPreview) BatchResult {
		issued, err := uc.issueOne(ctx, ap, used)
		if err != nil {
			f := BatchFailure{
				Index:      i,
				ClientID:   ap.Preview.ClientID,
				ClientName: ap.Preview.ClientName,
				SiteIDs:    ap.Preview.SiteIDs(),
				Err:        err,
			}
			uc.log.Warn().Err(err).Int("index", i).Str("client_id", f.ClientID).Msg("emisión fallida, se continúa con el lote")
			acc.Failures = append(acc.Failures, f)
			return acc
		}
		issued.Index = i
		acc.Issued = append(acc.Issued, *issued)
		return acc
	})

	elapsed := time.Since(start)
	uc.metrics.ObserveBatch(len(result.Issued), len(result.Failures), elapsed)
	uc.log.Info().
		Int("requested", len(approved)).
		Int("issued", len(result.Issued)).
		Int("failed", len(result.Failures)).
		Dur("elapsed", elapsed).
		Msg("emisión masiva finalizada")
	return result
}

// issueOne valida, numera y persiste la factura de un cliente.
func (uc *BulkIssueUseCase) issueOne(ctx context.Context, ap ApprovedPreview, used map[string]struct{}) (*IssuedInvoice, error) {
	p := ap.Preview
	if err := validatePeriod(p.Period); err != nil {
		return nil, err
	}
	if ap.prepErr != nil {
		return nil, ap.prepErr
	}
	if p.IsEmpty() {
		return nil, domain.Validationf("la factura no tiene líneas")
	}
	if err := validateNonNegative("gastos adicionales", ap.ExtraFees); err != nil {
		return nil, err
	}
	if err := validateNonNegative("créditos anteriores", ap.CarriedDebt); err != nil {
		return nil, err
	}

	client, err := loadBillableClient(ctx, uc.clientRepo, p.ClientID)
	if err != nil {
		return nil, err
	}
	siteIDs := p.SiteIDs()
	if _, err := loadBillableSites(ctx, uc.siteRepo, client.ID, siteIDs); err != nil {
		return nil, err
	}
	if !ap.ConfirmZeroAmount {
		if dombilling.HasZeroAmount(p) {
			return nil, domain.Validationf("monto de prestación %s no positivo; requiere confirmación explícita", p.PrestationSubtotal.StringFixed(2))
		}
		if zero := dombilling.ZeroAmountDetails(p); len(zero) > 0 {
			return nil, domain.Validationf("el sitio %s tiene monto %s; requiere confirmación explícita", zero[0].SiteID, zero[0].Amount.StringFixed(2))
		}
	}

	now := uc.cfg.Clock()
	inv := &entity.Invoice{
		ID:          uc.cfg.NewID(),
		ClientID:    client.ID,
		PeriodMonth: p.Period.Month,
		PeriodYear:  p.Period.Year,
		Currency:    client.Currency,
		IssueDate:   now,
		DueDate:     now.AddDate(0, 0, client.PaymentTermDays),
		ExtraFees:   ap.ExtraFees,
		CarriedDebt: ap.CarriedDebt,
		Notes:       ap.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	details := make([]*entity.InvoiceDetail, 0, len(p.Details))
	for _, d := range p.Details {
		details = append(details, &entity.InvoiceDetail{
			ID:          uc.cfg.NewID(),
			InvoiceID:   inv.ID,
			SiteID:      d.SiteID,
			Description: d.Description,
			GuardCount:  d.GuardCount,
			Amount:      dombilling.Round2(d.Amount),
		})
	}
	dombilling.ApplyTotals(inv, details)
	// sin pagos: total 0 queda saldada al emitir
	inv.Status = dombilling.DeriveStatus(entity.InvoiceStatusIssued, inv.DueTotal, decimal.Zero)

	err = uc.txRunner.RunBilling(ctx, func(invoiceRepo repository.InvoiceRepository) error {
		if err := ensureNotBilled(ctx, invoiceRepo, client.ID, p.Period, siteIDs, ""); err != nil {
			return err
		}
		number, err := uc.numbers.next(ctx, invoiceRepo, used)
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

	uc.log.Debug().Str("number", inv.Number).Str("client_id", client.ID).Str("due_total", inv.DueTotal.StringFixed(2)).Msg("factura emitida")
	return &IssuedInvoice{
		InvoiceID:  inv.ID,
		Number:     inv.Number,
		ClientID:   client.ID,
		ClientName: client.Name,
		DueTotal:   inv.DueTotal,
	}, nil
}

// PrepareSelection arma las previsualizaciones aprobadas a partir de lo que eligió el operador,
// con los datos actuales de clientes y sitios. No valida los sitios: los que ya no existen
// quedan como líneas en cero y IssueBatch los reporta como fallos de ese cliente. Si el
// cliente no se puede cargar, el error viaja con la previsualización y IssueBatch lo
// reporta tal cual.
func (uc *BulkIssueUseCase) PrepareSelection(ctx context.Context, period entity.Period, selections []Selection) []ApprovedPreview {
	out := make([]ApprovedPreview, 0, len(selections))
	for _, sel := range selections {
		ap := ApprovedPreview{
			ExtraFees:         sel.ExtraFees,
			CarriedDebt:       sel.CarriedDebt,
			ConfirmZeroAmount: sel.ConfirmZeroAmount,
			Notes:             sel.Notes,
		}
		if len(sel.SiteIDs) == 0 {
			p, err := uc.preview.PreviewClient(ctx, sel.ClientID, period)
			if err != nil {
				ap.Preview = uc.failedPreview(ctx, sel.ClientID, period)
				ap.prepErr = err
			} else {
				ap.Preview = *p
			}
			out = append(out, ap)
			continue
		}
		ap.Preview, ap.prepErr = uc.previewFromSites(ctx, sel.ClientID, sel.SiteIDs, period)
		out = append(out, ap)
	}
	return out
}

// failedPreview cabecera mínima para reportar el fallo con el nombre del cliente si existe.
func (uc *BulkIssueUseCase) failedPreview(ctx context.Context, clientID string, period entity.Period) dombilling.Preview {
	p := dombilling.Preview{ClientID: clientID, Period: period}
	if client, err := uc.clientRepo.GetByID(ctx, clientID); err == nil && client != nil {
		p.ClientName = client.Name
	}
	return p
}

func (uc *BulkIssueUseCase) previewFromSites(ctx context.Context, clientID string, siteIDs []string, period entity.Period) (dombilling.Preview, error) {
	p := dombilling.Preview{ClientID: clientID, Period: period, PrestationSubtotal: decimal.Zero}
	client, err := loadBillableClient(ctx, uc.clientRepo, clientID)
	if err != nil {
		return uc.failedPreview(ctx, clientID, period), err
	}
	p.ClientName = client.Name
	p.Currency = client.Currency
	p.PaymentTermDays = client.PaymentTermDays
	for _, id := range siteIDs {
		d := dombilling.PreviewDetail{SiteID: id, Amount: decimal.Zero}
		if s, err := uc.siteRepo.GetByID(ctx, id); err == nil && s != nil {
			d.SiteName = s.Name
			d.Description = dombilling.DetailDescription(uc.cfg.ServiceLabel, s.Name, period)
			d.GuardCount = s.GuardCount()
			d.Amount = dombilling.Round2(s.MonthlyTariff)
		}
		p.Details = append(p.Details, d)
		p.PrestationSubtotal = p.PrestationSubtotal.Add(d.Amount)
		p.TotalGuardCount += d.GuardCount
	}
	p.SiteCount = len(p.Details)
	return p, nil
}
