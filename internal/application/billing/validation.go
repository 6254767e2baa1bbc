package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Vigilancia-api/internal/domain"
	dombilling "github.com/jhoicas/Vigilancia-api/internal/domain/billing"
	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
	"github.com/jhoicas/Vigilancia-api/internal/domain/repository"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct traduce los errores de validator a domain.ErrValidation.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.Validationf("%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return domain.Validationf("%s", strings.Join(msgs, "; "))
}

func validatePeriod(p entity.Period) error {
	if err := p.Validate(); err != nil {
		return domain.Validationf("%v", err)
	}
	return nil
}

func validateNonNegative(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return domain.Validationf("%s no puede ser negativo (%s)", field, v.StringFixed(2))
	}
	return nil
}

// loadBillableClient obtiene el cliente y exige que esté activo.
func loadBillableClient(ctx context.Context, repo repository.ClientRepository, clientID string) (*entity.Client, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, domain.Validationf("client_id requerido")
	}
	client, err := repo.GetByID(ctx, clientID)
	if err != nil {
		return nil, domain.NewPersistenceError("obtener cliente", err)
	}
	if client == nil {
		return nil, fmt.Errorf("cliente %s: %w", clientID, domain.ErrNotFound)
	}
	if !client.Active {
		return nil, domain.Validationf("el cliente %s está inactivo", client.Name)
	}
	return client, nil
}

// loadBillableSites obtiene los sitios y exige que existan, estén activos, pertenezcan al
// cliente y no se repitan.
func loadBillableSites(ctx context.Context, repo repository.SiteRepository, clientID string, siteIDs []string) (map[string]*entity.Site, error) {
	sites := make(map[string]*entity.Site, len(siteIDs))
	for _, id := range siteIDs {
		if _, dup := sites[id]; dup {
			return nil, domain.Validationf("el sitio %s aparece más de una vez", id)
		}
		s, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, domain.NewPersistenceError("obtener sitio", err)
		}
		if s == nil || !s.Active || s.ClientID != clientID {
			return nil, domain.Validationf("el sitio %s ya no es facturable (eliminado, inactivo o reasignado)", id)
		}
		sites[id] = s
	}
	return sites, nil
}

// ensureNotBilled verifica, con el repositorio de la transacción en curso, que ningún sitio
// ya figure en una factura del cliente para el período. ignoreInvoiceID permite excluir la
// propia factura al editar un borrador. Bloquea cliente y período antes de leer: dos
// transacciones concurrentes sobre el mismo cliente se ven en serie.
func ensureNotBilled(ctx context.Context, repo repository.InvoiceRepository, clientID string, period entity.Period, siteIDs []string, ignoreInvoiceID string) error {
	if err := repo.LockClientPeriod(ctx, clientID, period); err != nil {
		return domain.NewPersistenceError("bloquear cliente y período", err)
	}
	issued, err := repo.ListWithDetailsByPeriod(ctx, period)
	if err != nil {
		return domain.NewPersistenceError("listar facturas del período", err)
	}
	if ignoreInvoiceID != "" {
		filtered := issued[:0:0]
		for _, iw := range issued {
			if iw.Invoice != nil && iw.Invoice.ID == ignoreInvoiceID {
				continue
			}
			filtered = append(filtered, iw)
		}
		issued = filtered
	}
	billed := dombilling.BilledSiteIDs(clientID, period, issued)
	for _, id := range siteIDs {
		if number, ok := billed[id]; ok {
			return domain.DuplicateBillingf("el sitio %s ya está facturado en %s (factura %s)", id, period, number)
		}
	}
	return nil
}
