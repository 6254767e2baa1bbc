package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
	"github.com/jhoicas/Vigilancia-api/internal/domain/repository"
)

var _ repository.SiteRepository = (*SiteRepo)(nil)

// SiteRepo implementación de SiteRepository (usable con pool o tx).
type SiteRepo struct {
	q Querier
}

// NewSiteRepository construye el adaptador.
func NewSiteRepository(q Querier) *SiteRepo {
	return &SiteRepo{q: q}
}

const siteColumns = `id, client_id, name, COALESCE(address, ''), day_guards, night_guards,
	unit_cost, monthly_tariff, active, created_at, updated_at`

func scanSite(row pgxScanner) (*entity.Site, error) {
	var s entity.Site
	err := row.Scan(&s.ID, &s.ClientID, &s.Name, &s.Address, &s.DayGuards, &s.NightGuards,
		&s.UnitCost, &s.MonthlyTariff, &s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SiteRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Site, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()
	var list []*entity.Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// List todos los sitios.
func (r *SiteRepo) List(ctx context.Context) ([]*entity.Site, error) {
	return r.list(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY client_id, name`)
}

// ListByClient sitios de un cliente (activos e inactivos).
func (r *SiteRepo) ListByClient(ctx context.Context, clientID string) ([]*entity.Site, error) {
	return r.list(ctx, `SELECT `+siteColumns+` FROM sites WHERE client_id = $1 ORDER BY name`, clientID)
}

// GetByID obtiene un sitio por ID.
func (r *SiteRepo) GetByID(ctx context.Context, id string) (*entity.Site, error) {
	s, err := scanSite(r.q.QueryRow(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get site: %w", err)
	}
	return s, nil
}
