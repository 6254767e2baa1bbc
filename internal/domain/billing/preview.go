package billing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// DefaultServiceLabel etiqueta del servicio usada en la descripción de cada línea.
const DefaultServiceLabel = "Servicio de vigilancia"

// PreviewDetail línea candidata de factura (un sitio).
type PreviewDetail struct {
	SiteID      string
	SiteName    string
	Description string
	GuardCount  int
	Amount      decimal.Decimal
}

// Preview previsualización de la factura de un cliente para un período.
type Preview struct {
	ClientID           string
	ClientName         string
	Currency           string
	PaymentTermDays    int
	Period             entity.Period
	Details            []PreviewDetail
	PrestationSubtotal decimal.Decimal
	SiteCount          int
	TotalGuardCount    int
	// ExcludedSiteIDs sitios activos omitidos por estar ya facturados en el período.
	ExcludedSiteIDs []string
}

// IsEmpty indica que el cliente no tiene sitios facturables en el período.
func (p Preview) IsEmpty() bool { return len(p.Details) == 0 }

// SiteIDs ids de los sitios incluidos, en el orden de las líneas.
func (p Preview) SiteIDs() []string {
	ids := make([]string, 0, len(p.Details))
	for _, d := range p.Details {
		ids = append(ids, d.SiteID)
	}
	return ids
}

// BilledSiteIDs devuelve los sitios ya facturados para el cliente en el período.
// Las facturas anuladas no bloquean una nueva facturación.
func BilledSiteIDs(clientID string, period entity.Period, issued []*entity.InvoiceWithDetails) map[string]string {
	billed := make(map[string]string)
	for _, iw := range issued {
		if iw == nil || iw.Invoice == nil {
			continue
		}
		inv := iw.Invoice
		if inv.ClientID != clientID || inv.PeriodMonth != period.Month || inv.PeriodYear != period.Year {
			continue
		}
		if inv.Status == entity.InvoiceStatusCancelled {
			continue
		}
		for _, d := range iw.Details {
			if _, ok := billed[d.SiteID]; !ok {
				billed[d.SiteID] = inv.Number
			}
		}
	}
	return billed
}

// DetailDescription "<servicio> <sitio> - MM/AAAA".
func DetailDescription(serviceLabel, siteName string, period entity.Period) string {
	if strings.TrimSpace(serviceLabel) == "" {
		serviceLabel = DefaultServiceLabel
	}
	return fmt.Sprintf("%s %s - %s", serviceLabel, siteName, period.String())
}

// BuildPreview deriva las líneas candidatas de un cliente para el período:
//  1. sitios del cliente y activos;
//  2. sin los sitios ya presentes en una factura del mismo cliente y período;
//  3. una línea por sitio con GuardCount = día + noche y Amount = tarifa mensual.
//
// Un cliente sin sitios elegibles produce una previsualización vacía, no un error.
func BuildPreview(client *entity.Client, sites []*entity.Site, issued []*entity.InvoiceWithDetails, period entity.Period, serviceLabel string) Preview {
	p := Preview{
		ClientID:           client.ID,
		ClientName:         client.Name,
		Currency:           client.Currency,
		PaymentTermDays:    client.PaymentTermDays,
		Period:             period,
		PrestationSubtotal: decimal.Zero,
	}
	billed := BilledSiteIDs(client.ID, period, issued)

	eligible := make([]*entity.Site, 0, len(sites))
	for _, s := range sites {
		if s == nil || s.ClientID != client.ID || !s.Active {
			continue
		}
		if _, ok := billed[s.ID]; ok {
			p.ExcludedSiteIDs = append(p.ExcludedSiteIDs, s.ID)
			continue
		}
		eligible = append(eligible, s)
	}
	// Orden estable por nombre para que dos corridas produzcan las mismas líneas.
	sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].Name < eligible[j].Name })

	for _, s := range eligible {
		d := PreviewDetail{
			SiteID:      s.ID,
			SiteName:    s.Name,
			Description: DetailDescription(serviceLabel, s.Name, period),
			GuardCount:  s.GuardCount(),
			Amount:      Round2(s.MonthlyTariff),
		}
		p.Details = append(p.Details, d)
		p.PrestationSubtotal = p.PrestationSubtotal.Add(d.Amount)
		p.TotalGuardCount += d.GuardCount
	}
	p.SiteCount = len(p.Details)
	return p
}
