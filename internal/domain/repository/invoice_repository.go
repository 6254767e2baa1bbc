package repository

import (
	"context"

	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para Invoice y detalles.
// Create y CreateDetail deben ejecutarse dentro de la misma transacción (ver BillingTxRunner).
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	CreateDetail(ctx context.Context, detail *entity.InvoiceDetail) error
	// Update actualiza cabecera: totales, fechas, notas y el estado cacheado.
	Update(ctx context.Context, invoice *entity.Invoice) error
	// DeleteDetails elimina todas las líneas de una factura (edición de borradores).
	DeleteDetails(ctx context.Context, invoiceID string) error
	// Delete elimina la factura; detalles y pagos se eliminan en cascada.
	Delete(ctx context.Context, id string) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// GetForUpdate igual que GetByID pero bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error)
	GetDetailsByInvoiceID(ctx context.Context, invoiceID string) ([]*entity.InvoiceDetail, error)
	// ListWithDetailsByPeriod lista las facturas (de cualquier cliente) del período con sus detalles.
	ListWithDetailsByPeriod(ctx context.Context, period entity.Period) ([]*entity.InvoiceWithDetails, error)
	ExistsNumber(ctx context.Context, number string) (bool, error)
	// LockClientPeriod serializa, hasta el fin de la transacción, las escrituras de facturas
	// de un cliente en un período. Debe tomarse antes de verificar sitios ya facturados.
	LockClientPeriod(ctx context.Context, clientID string, period entity.Period) error
}
