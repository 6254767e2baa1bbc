package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_payments_index.sql": {Data: []byte("SELECT 1")},
		"0001_billing.sql":        {Data: []byte("SELECT 1")},
		"9999_reset_all.sql":      {Data: []byte("DROP SCHEMA public")},
		"README.md":               {Data: []byte("notas")},
		"old/0000_legacy.sql":     {Data: []byte("SELECT 1")},
	}

	got, err := pendingMigrations(fsys, map[string]bool{})
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_billing.sql", "0002_payments_index.sql"}, got)

	got, err = pendingMigrations(fsys, map[string]bool{"0001_billing.sql": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_payments_index.sql"}, got)
}

func TestPendingMigrations_DirectorioVacio(t *testing.T) {
	got, err := pendingMigrations(fstest.MapFS{}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
