package billing_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Vigilancia-api/internal/application/billing"
	"github.com/jhoicas/Vigilancia-api/internal/domain"
	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
	"github.com/jhoicas/Vigilancia-api/pkg/logger"
)

func TestIssueBatch_EscenarioAcme(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAcme()
	ctx := context.Background()

	ap := e.approve(t, "cli-acme")
	assert.True(t, dec("450").Equal(ap.Preview.PrestationSubtotal))
	ap.ExtraFees = dec("25")

	res := e.issuer.IssueBatch(ctx, []billing.ApprovedPreview{ap})
	require.Empty(t, res.Failures)
	require.Equal(t, 1, res.IssuedCount())
	issued := res.Issued[0]
	assert.Equal(t, "FAC-202503-001", issued.Number)
	assert.Equal(t, "Acme", issued.ClientName)
	assert.True(t, dec("475").Equal(issued.DueTotal))

	view, err := e.invoices.Get(ctx, issued.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusIssued, view.Invoice.Status)
	assert.Equal(t, fixedNow.AddDate(0, 0, 30), view.Invoice.DueDate)
	assert.Equal(t, "USD", view.Invoice.Currency)
	require.Len(t, view.Details, 2)
	assert.True(t, dec("450").Equal(view.Invoice.PrestationSubtotal))

	// una segunda previsualización ya no incluye los sitios facturados
	again, err := e.preview.PreviewClient(ctx, "cli-acme", march2025)
	require.NoError(t, err)
	assert.True(t, again.IsEmpty())
	assert.ElementsMatch(t, []string{"site-a", "site-b"}, again.ExcludedSiteIDs)
}

func TestIssueBatch_FalloParcialNoDetieneElLote(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	for _, c := range []struct{ id, name string }{{"cli-1", "Uno"}, {"cli-2", "Dos"}, {"cli-3", "Tres"}} {
		e.addClient(c.id, c.name)
		e.addSite("site-"+c.id, c.id, "Sede "+c.name, 1, 1, "100")
	}
	batch := []billing.ApprovedPreview{e.approve(t, "cli-1"), e.approve(t, "cli-2"), e.approve(t, "cli-3")}
	e.store.FailInvoiceCreate("cli-2", errors.New("disco lleno"))

	res := e.issuer.IssueBatch(ctx, batch)

	require.Len(t, res.Issued, 2)
	assert.Equal(t, 0, res.Issued[0].Index)
	assert.Equal(t, 2, res.Issued[1].Index)
	require.Len(t, res.Failures, 1)
	f := res.Failures[0]
	assert.Equal(t, 1, f.Index)
	assert.Equal(t, "cli-2", f.ClientID)
	assert.ErrorIs(t, f.Err, domain.ErrPersistence)
	assert.Contains(t, f.Message(), "Dos")
	assert.Contains(t, f.Message(), "site-cli-2")
	assert.Equal(t, 2, e.store.InvoiceCount())
}

func TestIssueBatch_FalloEnDetalleRevierteLaFactura(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAcme()
	e.store.FailDetailCreate("cli-acme", errors.New("timeout"))

	res := e.issuer.IssueBatch(context.Background(), []billing.ApprovedPreview{e.approve(t, "cli-acme")})

	require.Len(t, res.Failures, 1)
	assert.Zero(t, e.store.InvoiceCount(), "la cabecera no debe quedar sin sus detalles")
	assert.Zero(t, e.store.DetailCount())
}

func TestIssueBatch_DobleFacturacion(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAcme()
	ap := e.approve(t, "cli-acme")

	res := e.issuer.IssueBatch(context.Background(), []billing.ApprovedPreview{ap, ap})

	require.Len(t, res.Issued, 1)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, domain.ErrDuplicateBilling)
	assert.Equal(t, 1, e.store.InvoiceCount())
}

func TestIssueBatch_MontoCeroRequiereConfirmacion(t *testing.T) {
	e := newEnv(t, nil)
	e.addClient("cli-z", "Zero")
	e.addSite("site-z", "cli-z", "Sin dotación", 0, 0, "100")
	ctx := context.Background()

	ap := e.approve(t, "cli-z")
	res := e.issuer.IssueBatch(ctx, []billing.ApprovedPreview{ap})
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, domain.ErrValidation)
	assert.Zero(t, e.store.InvoiceCount())

	ap.ConfirmZeroAmount = true
	res = e.issuer.IssueBatch(ctx, []billing.ApprovedPreview{ap})
	require.Empty(t, res.Failures)
	require.Len(t, res.Issued, 1)

	summary, err := e.payments.ComputeSummary(ctx, res.Issued[0].InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaidInFull, summary.Status, "total 0 sin pagos queda saldada")

	// el estado guardado coincide con el derivado
	view, err := e.invoices.Get(ctx, res.Issued[0].InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, entity.InvoiceStatusPaidInFull, view.Invoice.Status)
	list, err := e.invoices.ListByPeriod(ctx, march2025)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entity.InvoiceStatusPaidInFull, list[0].Invoice.Status)
}

func TestIssueBatch_LineaEnCeroConTotalPositivo(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAcme()
	e.addSite("site-c", "cli-acme", "Site C", 0, 0, "100")

	res := e.issuer.IssueBatch(context.Background(), []billing.ApprovedPreview{e.approve(t, "cli-acme")})

	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, domain.ErrValidation)
	assert.Contains(t, res.Failures[0].Err.Error(), "site-c")
}

func TestIssueBatch_SitioDesactivadoTrasPrevisualizar(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAcme()
	ap := e.approve(t, "cli-acme")
	e.store.SetSiteActive("site-b", false)

	res := e.issuer.IssueBatch(context.Background(), []billing.ApprovedPreview{ap})

	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, domain.ErrValidation)
	assert.Contains(t, res.Failures[0].Err.Error(), "site-b")
}

func TestIssueBatch_NumeracionAgotada(t *testing.T) {
	e := newEnv(t, func(int) int { return 7 })
	e.seedAcme()
	e.addClient("cli-beta", "Beta")
	e.addSite("site-beta", "cli-beta", "Beta HQ", 1, 0, "200")

	res := e.issuer.IssueBatch(context.Background(), []billing.ApprovedPreview{e.approve(t, "cli-acme"), e.approve(t, "cli-beta")})

	require.Len(t, res.Issued, 1)
	assert.Equal(t, "FAC-202503-007", res.Issued[0].Number)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, domain.ErrNumberExhausted)
}

func TestIssueBatch_EvitaNumerosYaExistentes(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAcme()
	e.store.ReserveNumber("FAC-202503-001")

	res := e.issuer.IssueBatch(context.Background(), []billing.ApprovedPreview{e.approve(t, "cli-acme")})

	require.Len(t, res.Issued, 1)
	assert.Equal(t, "FAC-202503-002", res.Issued[0].Number)
}

func TestIssueBatch_RechazaPrevisualizacionVaciaYMontosNegativos(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAcme()
	ap := e.approve(t, "cli-acme")
	neg := ap
	neg.CarriedDebt = dec("-1")
	empty := ap.Preview
	empty.Details = nil

	res := e.issuer.IssueBatch(context.Background(), []billing.ApprovedPreview{{Preview: empty}, neg})

	require.Len(t, res.Failures, 2)
	for _, f := range res.Failures {
		assert.ErrorIs(t, f.Err, domain.ErrValidation)
	}
	assert.Len(t, res.Errors(), 2)
}

func TestIssueBatch_ClienteInexistente(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAcme()
	ap := e.approve(t, "cli-acme")
	ap.Preview.ClientID = "cli-ghost"

	res := e.issuer.IssueBatch(context.Background(), []billing.ApprovedPreview{ap})

	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, domain.ErrNotFound)
}

func TestPrepareSelection_SitiosElegidos(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAcme()
	ctx := context.Background()

	approved := e.issuer.PrepareSelection(ctx, march2025, []billing.Selection{
		{ClientID: "cli-acme", SiteIDs: []string{"site-b"}, ExtraFees: dec("10")},
	})
	require.Len(t, approved, 1)
	assert.True(t, dec("150").Equal(approved[0].Preview.PrestationSubtotal))

	res := e.issuer.IssueBatch(ctx, approved)
	require.Len(t, res.Issued, 1)
	assert.True(t, dec("160").Equal(res.Issued[0].DueTotal))

	// el sitio restante sigue disponible
	rest, err := e.preview.PreviewClient(ctx, "cli-acme", march2025)
	require.NoError(t, err)
	assert.Equal(t, []string{"site-a"}, rest.SiteIDs())
}

func TestPreviewPeriod_TotalesYMontosEnCero(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAcme()
	e.addClient("cli-z", "Zero")
	e.addSite("site-z", "cli-z", "Sin dotación", 0, 0, "100")
	e.addClient("cli-empty", "Vacío")

	pp, err := e.preview.PreviewPeriod(context.Background(), march2025, false)
	require.NoError(t, err)

	require.Len(t, pp.Previews, 2)
	assert.Equal(t, 2, pp.Totals.PreviewCount)
	assert.True(t, dec("450").Equal(pp.Totals.TotalPrestation))
	assert.Equal(t, []string{"cli-z"}, pp.ZeroAmountClientIDs)
	assert.True(t, pp.HasZeroAmount())

	withEmpty, err := e.preview.PreviewPeriod(context.Background(), march2025, true)
	require.NoError(t, err)
	assert.Len(t, withEmpty.Previews, 3)
}

func TestPreviewPeriod_FalloDeLectura(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAcme()
	e.store.FailLists(errors.New("conexión rechazada"))

	_, err := e.preview.PreviewPeriod(context.Background(), march2025, false)

	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestPreviewPeriod_PeriodoInvalido(t *testing.T) {
	e := newEnv(t, nil)

	_, err := e.preview.PreviewPeriod(context.Background(), entity.Period{Month: 13, Year: 2025}, false)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPrepareSelection_ClienteInactivoOInexistente(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAcme()
	e.store.AddClient(&entity.Client{ID: "cli-off", Name: "Apagado", Currency: "USD", PaymentTermDays: 30, Active: false})
	e.addSite("site-off", "cli-off", "Sede apagada", 1, 0, "100")
	ctx := context.Background()

	approved := e.issuer.PrepareSelection(ctx, march2025, []billing.Selection{
		{ClientID: "cli-off"},
		{ClientID: "cli-ghost"},
		{ClientID: "cli-ghost", SiteIDs: []string{"site-a"}},
		{ClientID: "cli-off", SiteIDs: []string{"site-off"}},
		{ClientID: "cli-acme"},
	})
	res := e.issuer.IssueBatch(ctx, approved)

	require.Len(t, res.Issued, 1)
	assert.Equal(t, 4, res.Issued[0].Index)
	require.Len(t, res.Failures, 4)

	off := res.Failures[0]
	assert.ErrorIs(t, off.Err, domain.ErrValidation)
	assert.Equal(t, "Apagado", off.ClientName)
	assert.Contains(t, off.Message(), "inactivo")
	assert.NotContains(t, off.Message(), "no tiene líneas")

	for _, f := range res.Failures[1:3] {
		assert.ErrorIs(t, f.Err, domain.ErrNotFound)
		assert.Contains(t, f.Message(), "cli-ghost")
	}

	offSites := res.Failures[3]
	assert.ErrorIs(t, offSites.Err, domain.ErrValidation)
	assert.Contains(t, offSites.Message(), "inactivo")
	assert.Equal(t, 1, e.store.InvoiceCount())
}

func TestBilling_BloqueaClienteYPeriodoAntesDeVerificar(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAcme()
	e.addClient("cli-beta", "Beta")
	e.addSite("site-beta", "cli-beta", "Beta HQ", 1, 0, "200")
	ctx := context.Background()

	res := e.issuer.IssueBatch(ctx, []billing.ApprovedPreview{e.approve(t, "cli-acme"), e.approve(t, "cli-beta")})
	require.Len(t, res.Issued, 2)
	assert.Equal(t, []string{"cli-acme/03/2025", "cli-beta/03/2025"}, e.store.BillingLocks())

	// los borradores pasan por el mismo bloqueo
	_, err := e.invoices.CreateDraft(ctx, billing.CreateInvoiceInput{
		ClientID: "cli-beta", Month: 4, Year: 2025,
		Lines: []billing.DraftLine{{SiteID: "site-beta"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "cli-beta/04/2025", e.store.BillingLocks()[2])
}

func TestPreviewPeriod_RegistraMontosEnCeroComoCampo(t *testing.T) {
	e := newEnv(t, nil)
	e.seedAcme()
	e.addClient("cli-z", "Zero")
	e.addSite("site-z", "cli-z", "Sin dotación", 0, 0, "100")
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "debug", Out: &buf})
	uc := billing.NewPreviewUseCase(e.store.Clients(), e.store.Sites(), e.store.Invoices(), billing.Config{}, log)

	_, err := uc.PreviewPeriod(context.Background(), march2025, false)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"zero_amount":1`)
	assert.Contains(t, buf.String(), `"message":"previsualización calculada"`)
}
