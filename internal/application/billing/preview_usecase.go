package billing

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Vigilancia-api/internal/domain"
	dombilling "github.com/jhoicas/Vigilancia-api/internal/domain/billing"
	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
	"github.com/jhoicas/Vigilancia-api/internal/domain/repository"
	"github.com/jhoicas/Vigilancia-api/pkg/logger"
)

// PeriodPreview previsualización de todos los clientes facturables de un período.
type PeriodPreview struct {
	Period   entity.Period
	Previews []dombilling.Preview
	Totals   dombilling.BatchTotals
	// ZeroAmountClientIDs clientes cuya previsualización o alguna línea tiene monto <= 0;
	// deben confirmarse explícitamente antes de emitir.
	ZeroAmountClientIDs []string
}

// HasZeroAmount indica si alguna previsualización requiere confirmación.
func (p *PeriodPreview) HasZeroAmount() bool { return len(p.ZeroAmountClientIDs) > 0 }

// PreviewUseCase calcula las facturas candidatas de un período sin escribir nada.
type PreviewUseCase struct {
	clientRepo  repository.ClientRepository
	siteRepo    repository.SiteRepository
	invoiceRepo repository.InvoiceRepository
	cfg         Config
	log         *logger.Logger
}

// NewPreviewUseCase construye el caso de uso.
func NewPreviewUseCase(
	clientRepo repository.ClientRepository,
	siteRepo repository.SiteRepository,
	invoiceRepo repository.InvoiceRepository,
	cfg Config,
	log *logger.Logger,
) *PreviewUseCase {
	return &PreviewUseCase{
		clientRepo:  clientRepo,
		siteRepo:    siteRepo,
		invoiceRepo: invoiceRepo,
		cfg:         cfg.withDefaults(),
		log:         log.WithComponent("billing.preview"),
	}
}

// PreviewClient previsualización de un cliente para el período.
func (uc *PreviewUseCase) PreviewClient(ctx context.Context, clientID string, period entity.Period) (*dombilling.Preview, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}
	client, err := loadBillableClient(ctx, uc.clientRepo, clientID)
	if err != nil {
		return nil, err
	}

	var (
		sites  []*entity.Site
		issued []*entity.InvoiceWithDetails
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sites, err = uc.siteRepo.ListByClient(gctx, client.ID)
		return domain.NewPersistenceError("listar sitios", err)
	})
	g.Go(func() error {
		var err error
		issued, err = uc.invoiceRepo.ListWithDetailsByPeriod(gctx, period)
		return domain.NewPersistenceError("listar facturas del período", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p := dombilling.BuildPreview(client, sites, issued, period, uc.cfg.ServiceLabel)
	return &p, nil
}

// PreviewPeriod previsualización de todos los clientes activos. Los clientes sin sitios
// elegibles se omiten salvo que includeEmpty sea true.
func (uc *PreviewUseCase) PreviewPeriod(ctx context.Context, period entity.Period, includeEmpty bool) (*PeriodPreview, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}

	var (
		clients []*entity.Client
		sites   []*entity.Site
		issued  []*entity.InvoiceWithDetails
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		clients, err = uc.clientRepo.List(gctx)
		return domain.NewPersistenceError("listar clientes", err)
	})
	g.Go(func() error {
		var err error
		sites, err = uc.siteRepo.List(gctx)
		return domain.NewPersistenceError("listar sitios", err)
	})
	g.Go(func() error {
		var err error
		issued, err = uc.invoiceRepo.ListWithDetailsByPeriod(gctx, period)
		return domain.NewPersistenceError("listar facturas del período", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sitesByClient := make(map[string][]*entity.Site)
	for _, s := range sites {
		sitesByClient[s.ClientID] = append(sitesByClient[s.ClientID], s)
	}

	out := &PeriodPreview{Period: period}
	lines := make([]dombilling.BatchLine, 0, len(clients))
	for _, c := range clients {
		if !c.Active {
			continue
		}
		p := dombilling.BuildPreview(c, sitesByClient[c.ID], issued, period, uc.cfg.ServiceLabel)
		if p.IsEmpty() && !includeEmpty {
			continue
		}
		out.Previews = append(out.Previews, p)
		lines = append(lines, dombilling.BatchLine{Preview: p})
		if dombilling.HasZeroAmount(p) || len(dombilling.ZeroAmountDetails(p)) > 0 {
			out.ZeroAmountClientIDs = append(out.ZeroAmountClientIDs, c.ID)
		}
	}
	out.Totals = dombilling.AggregateBatch(lines)

	uc.log.Debug().
		Str("period", period.String()).
		Int("previews", len(out.Previews)).
		Str("total_prestation", out.Totals.TotalPrestation.StringFixed(2)).
		Int("zero_amount", len(out.ZeroAmountClientIDs)).
		Msg("previsualización calculada")
	return out, nil
}
