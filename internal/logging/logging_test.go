package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emiliopalmerini/socialab/internal/infrastructure/config"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.Log{Level: "debug", Format: "json"}, &buf)

	logger.Debug().Str("experiment_id", "exp-1").Msg("started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "exp-1", entry["experiment_id"])
	assert.Equal(t, "socialab", entry["service"])
	assert.Equal(t, "started", entry["message"])
}

func TestNewWithWriter_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.Log{Level: "warn", Format: "json"}, &buf)

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithWriter_DefaultsToInfoConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.Log{Level: "nonsense"}, &buf)

	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	logger.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())), "console format is not JSON")
}
