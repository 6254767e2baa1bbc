package repository

import (
	"context"

	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
)

// ClientRepository puerto de lectura de clientes. El CRUD vive fuera del motor de facturación.
type ClientRepository interface {
	List(ctx context.Context) ([]*entity.Client, error)
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Client, error)
}
