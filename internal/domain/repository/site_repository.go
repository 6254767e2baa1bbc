package repository

import (
	"context"

	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
)

// SiteRepository puerto de lectura de sitios vigilados.
type SiteRepository interface {
	List(ctx context.Context) ([]*entity.Site, error)
	ListByClient(ctx context.Context, clientID string) ([]*entity.Site, error)
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Site, error)
}
