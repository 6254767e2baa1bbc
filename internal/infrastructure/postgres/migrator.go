package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Vigilancia-api/pkg/logger"
)

// Migrator aplica los archivos .sql pendientes en orden alfabético y los registra en
// schema_migrations. Cada archivo y su registro van en la misma transacción.
type Migrator struct {
	pool *pgxpool.Pool
	fsys fs.FS
	log  *logger.Logger
}

// NewMigrator construye el migrador. fsys suele ser os.DirFS(cfg.DB.MigrationsDir).
func NewMigrator(pool *pgxpool.Pool, fsys fs.FS, log *logger.Logger) *Migrator {
	return &Migrator{pool: pool, fsys: fsys, log: log.WithComponent("postgres.migrator")}
}

// Run aplica las migraciones pendientes y devuelve cuántas se ejecutaron.
func (m *Migrator) Run(ctx context.Context) (int, error) {
	const createTable = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	if _, err := m.pool.Exec(ctx, createTable); err != nil {
		return 0, fmt.Errorf("crear schema_migrations: %w", err)
	}

	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}
	files, err := pendingMigrations(m.fsys, applied)
	if err != nil {
		return 0, err
	}

	for _, name := range files {
		content, err := fs.ReadFile(m.fsys, name)
		if err != nil {
			return 0, fmt.Errorf("leer migración %s: %w", name, err)
		}
		err = pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name)
			return err
		})
		if err != nil {
			return 0, fmt.Errorf("migración %s: %w", name, err)
		}
		m.log.Info().Str("file", name).Msg("migración aplicada")
	}
	if len(files) == 0 {
		m.log.Debug().Msg("base de datos al día")
	}
	return len(files), nil
}

func (m *Migrator) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := m.pool.Query(ctx, `SELECT filename FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("listar migraciones aplicadas: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("listar migraciones aplicadas: %w", err)
	}
	applied := make(map[string]bool, len(names))
	for _, n := range names {
		applied[n] = true
	}
	return applied, nil
}

// pendingMigrations archivos .sql de la raíz de fsys no aplicados, en orden alfabético.
// Los scripts con "reset" en el nombre nunca se aplican automáticamente.
func pendingMigrations(fsys fs.FS, applied map[string]bool) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("leer directorio de migraciones: %w", err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") || strings.Contains(name, "reset") || applied[name] {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}
