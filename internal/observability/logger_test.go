package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Format: "json", Output: &buf, ServiceName: "doc-converter"})

	logger.WithIdentity("id-1").Info().Str("artifact_id", "a-1").Err(errors.New("boom")).Msg("stored")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "doc-converter", entry["service"])
	assert.Equal(t, "id-1", entry["identity_id"])
	assert.Equal(t, "a-1", entry["artifact_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "stored", entry["message"])
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Output: &buf})

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestWith_ChildFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Output: &buf})

	child := logger.With().Str("request_id", "req-7").Logger()
	child.WithComponent("http").Info().Msg("handled")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-7", entry["request_id"])
	assert.Equal(t, "http", entry["component"])

	buf.Reset()
	logger.Info().Msg("parent")
	assert.NotContains(t, buf.String(), "req-7")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}
