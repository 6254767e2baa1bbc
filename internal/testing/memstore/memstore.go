// Package memstore implementa los repositorios de facturación en memoria para tests.
// Las transacciones se serializan y se revierten (snapshot) si la función devuelve error.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
	"github.com/jhoicas/Vigilancia-api/internal/domain/repository"
)

// ErrDuplicateNumber simula la restricción única sobre invoices.number.
var ErrDuplicateNumber = errors.New("memstore: número de factura duplicado")

type state struct {
	invoices map[string]entity.Invoice
	details  map[string][]entity.InvoiceDetail
	payments map[string]entity.Payment
}

func (s state) clone() state {
	c := state{
		invoices: make(map[string]entity.Invoice, len(s.invoices)),
		details:  make(map[string][]entity.InvoiceDetail, len(s.details)),
		payments: make(map[string]entity.Payment, len(s.payments)),
	}
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	for k, v := range s.details {
		c.details[k] = append([]entity.InvoiceDetail(nil), v...)
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	return c
}

// Store almacén en memoria. Los valores se copian al escribir y al leer.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	clients map[string]entity.Client
	sites   map[string]entity.Site
	data    state

	failInvoiceCreate map[string]error // por cliente
	failDetailCreate  map[string]error // por cliente
	failList          error
	existingNumbers   map[string]struct{}
	billingLocks      []string // cliente/período, en orden de bloqueo
}

// New crea un almacén vacío.
func New() *Store {
	return &Store{
		clients: make(map[string]entity.Client),
		sites:   make(map[string]entity.Site),
		data: state{
			invoices: make(map[string]entity.Invoice),
			details:  make(map[string][]entity.InvoiceDetail),
			payments: make(map[string]entity.Payment),
		},
		failInvoiceCreate: make(map[string]error),
		failDetailCreate:  make(map[string]error),
		existingNumbers:   make(map[string]struct{}),
	}
}

// AddClient agrega o reemplaza un cliente.
func (s *Store) AddClient(c *entity.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID] = *c
}

// AddSite agrega o reemplaza un sitio.
func (s *Store) AddSite(site *entity.Site) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sites[site.ID] = *site
}

// SetSiteActive activa o desactiva un sitio.
func (s *Store) SetSiteActive(siteID string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if site, ok := s.sites[siteID]; ok {
		site.Active = active
		s.sites[siteID] = site
	}
}

// FailInvoiceCreate hace fallar la creación de facturas del cliente.
func (s *Store) FailInvoiceCreate(clientID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failInvoiceCreate[clientID] = err
}

// FailDetailCreate hace fallar la creación de detalles de facturas del cliente
// (la cabecera ya se escribió: sirve para probar el rollback).
func (s *Store) FailDetailCreate(clientID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDetailCreate[clientID] = err
}

// FailLists hace fallar los listados (nil lo desactiva).
func (s *Store) FailLists(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failList = err
}

// ReserveNumber marca un número como ya usado por otro sistema.
func (s *Store) ReserveNumber(number string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existingNumbers[number] = struct{}{}
}

// InvoiceCount cantidad de facturas persistidas.
func (s *Store) InvoiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.invoices)
}

// DetailCount cantidad de detalles persistidos.
func (s *Store) DetailCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, d := range s.data.details {
		n += len(d)
	}
	return n
}

// Clients repositorio de clientes.
func (s *Store) Clients() repository.ClientRepository { return clientRepo{s} }

// Sites repositorio de sitios.
func (s *Store) Sites() repository.SiteRepository { return siteRepo{s} }

// Invoices repositorio de facturas.
func (s *Store) Invoices() repository.InvoiceRepository { return invoiceRepo{s} }

// Payments repositorio de pagos (también implementa PaymentSummaryReader).
func (s *Store) Payments() *PaymentRepo { return &PaymentRepo{s} }

// RunBilling ejecuta fn en una transacción en memoria.
func (s *Store) RunBilling(ctx context.Context, fn func(invoiceRepo repository.InvoiceRepository) error) error {
	return s.inTx(ctx, func() error { return fn(invoiceRepo{s}) })
}

// RunPayments ejecuta fn en una transacción en memoria.
func (s *Store) RunPayments(ctx context.Context, fn func(repository.InvoiceRepository, repository.PaymentRepository) error) error {
	return s.inTx(ctx, func() error { return fn(invoiceRepo{s}, &PaymentRepo{s}) })
}

func (s *Store) inTx(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// ─── clientes ────────────────────────────────────────────────────────────────

type clientRepo struct{ s *Store }

func (r clientRepo) List(_ context.Context) ([]*entity.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failList != nil {
		return nil, r.s.failList
	}
	out := make([]*entity.Client, 0, len(r.s.clients))
	for _, c := range r.s.clients {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r clientRepo) GetByID(_ context.Context, id string) (*entity.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// ─── sitios ──────────────────────────────────────────────────────────────────

type siteRepo struct{ s *Store }

func (r siteRepo) List(ctx context.Context) ([]*entity.Site, error) {
	return r.filter(func(*entity.Site) bool { return true })
}

func (r siteRepo) ListByClient(_ context.Context, clientID string) ([]*entity.Site, error) {
	return r.filter(func(s *entity.Site) bool { return s.ClientID == clientID })
}

func (r siteRepo) filter(keep func(*entity.Site) bool) ([]*entity.Site, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failList != nil {
		return nil, r.s.failList
	}
	out := make([]*entity.Site, 0)
	for _, site := range r.s.sites {
		site := site
		if keep(&site) {
			out = append(out, &site)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r siteRepo) GetByID(_ context.Context, id string) (*entity.Site, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	site, ok := r.s.sites[id]
	if !ok {
		return nil, nil
	}
	return &site, nil
}

// ─── facturas ────────────────────────────────────────────────────────────────

type invoiceRepo struct{ s *Store }

func (r invoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failInvoiceCreate[inv.ClientID]; err != nil {
		return err
	}
	if _, taken := r.s.existingNumbers[inv.Number]; taken {
		return ErrDuplicateNumber
	}
	for _, other := range r.s.data.invoices {
		if other.Number == inv.Number {
			return ErrDuplicateNumber
		}
	}
	r.s.data.invoices[inv.ID] = *inv
	return nil
}

func (r invoiceRepo) CreateDetail(_ context.Context, d *entity.InvoiceDetail) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.data.invoices[d.InvoiceID]
	if !ok {
		return fmt.Errorf("memstore: factura %s inexistente", d.InvoiceID)
	}
	if err := r.s.failDetailCreate[inv.ClientID]; err != nil {
		return err
	}
	r.s.data.details[d.InvoiceID] = append(r.s.data.details[d.InvoiceID], *d)
	return nil
}

func (r invoiceRepo) Update(_ context.Context, inv *entity.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.invoices[inv.ID]; !ok {
		return fmt.Errorf("memstore: factura %s inexistente", inv.ID)
	}
	r.s.data.invoices[inv.ID] = *inv
	return nil
}

func (r invoiceRepo) DeleteDetails(_ context.Context, invoiceID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.data.details, invoiceID)
	return nil
}

func (r invoiceRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.data.invoices, id)
	delete(r.s.data.details, id)
	for pid, p := range r.s.data.payments {
		if p.InvoiceID == id {
			delete(r.s.data.payments, pid)
		}
	}
	return nil
}

func (r invoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.data.invoices[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

// GetForUpdate no necesita bloqueo propio: las transacciones ya están serializadas.
func (r invoiceRepo) GetForUpdate(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.GetByID(ctx, id)
}

func (r invoiceRepo) GetDetailsByInvoiceID(_ context.Context, invoiceID string) ([]*entity.InvoiceDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.detailsLocked(invoiceID), nil
}

func (r invoiceRepo) detailsLocked(invoiceID string) []*entity.InvoiceDetail {
	stored := r.s.data.details[invoiceID]
	out := make([]*entity.InvoiceDetail, 0, len(stored))
	for i := range stored {
		d := stored[i]
		out = append(out, &d)
	}
	return out
}

func (r invoiceRepo) ListWithDetailsByPeriod(_ context.Context, period entity.Period) ([]*entity.InvoiceWithDetails, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failList != nil {
		return nil, r.s.failList
	}
	out := make([]*entity.InvoiceWithDetails, 0)
	for _, inv := range r.s.data.invoices {
		inv := inv
		if inv.PeriodMonth != period.Month || inv.PeriodYear != period.Year {
			continue
		}
		out = append(out, &entity.InvoiceWithDetails{Invoice: &inv, Details: r.detailsLocked(inv.ID)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Invoice.Number < out[j].Invoice.Number })
	return out, nil
}

// LockClientPeriod solo registra el bloqueo: txMu ya serializa las transacciones.
func (r invoiceRepo) LockClientPeriod(_ context.Context, clientID string, period entity.Period) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.billingLocks = append(r.s.billingLocks, clientID+"/"+period.String())
	return nil
}

// BillingLocks bloqueos cliente/período tomados hasta ahora ("cli-acme/03/2025").
func (s *Store) BillingLocks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.billingLocks...)
}

func (r invoiceRepo) ExistsNumber(_ context.Context, number string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.existingNumbers[number]; ok {
		return true, nil
	}
	for _, inv := range r.s.data.invoices {
		if inv.Number == number {
			return true, nil
		}
	}
	return false, nil
}

// ─── pagos ───────────────────────────────────────────────────────────────────

// PaymentRepo repositorio de pagos en memoria.
type PaymentRepo struct{ s *Store }

var (
	_ repository.PaymentRepository    = (*PaymentRepo)(nil)
	_ repository.PaymentSummaryReader = (*PaymentRepo)(nil)
)

func (r *PaymentRepo) Create(_ context.Context, p *entity.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.invoices[p.InvoiceID]; !ok {
		return fmt.Errorf("memstore: factura %s inexistente", p.InvoiceID)
	}
	r.s.data.payments[p.ID] = *p
	return nil
}

func (r *PaymentRepo) Update(_ context.Context, p *entity.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.payments[p.ID]; !ok {
		return fmt.Errorf("memstore: pago %s inexistente", p.ID)
	}
	r.s.data.payments[p.ID] = *p
	return nil
}

func (r *PaymentRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.data.payments, id)
	return nil
}

func (r *PaymentRepo) GetByID(_ context.Context, id string) (*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *PaymentRepo) ListByInvoice(_ context.Context, invoiceID string) ([]*entity.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.Payment, 0)
	for _, p := range r.s.data.payments {
		p := p
		if p.InvoiceID == invoiceID {
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PaidAt.Equal(out[j].PaidAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].PaidAt.Before(out[j].PaidAt)
	})
	return out, nil
}

func (r *PaymentRepo) SumByInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	payments, _ := r.ListByInvoice(ctx, invoiceID)
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum, nil
}
