package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Vigilancia-api/pkg/logger"
)

func TestWithComponent_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "info", Out: &buf})

	log.WithComponent("billing").Info().Str("period", "03/2025").Msg("lote emitido")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "billing", entry["component"])
	assert.Equal(t, "03/2025", entry["period"])
	assert.Equal(t, "lote emitido", entry["message"])
}

func TestNivel_FiltraDebug(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "warn", Out: &buf})

	log.Info().Msg("no debe aparecer")
	assert.Zero(t, buf.Len())
}
