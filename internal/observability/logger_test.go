package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "debug", Format: "json", Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-42")
	logger.WithContext(ctx).WithComponent("ocr").Info().
		Int("workers", 2).
		Err(errors.New("boom")).
		Msg("pool ready")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "cv-extractor", entry["service"])
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "ocr", entry["component"])
	assert.Equal(t, float64(2), entry["workers"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "pool ready", entry["message"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Output: &buf})

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
}

func TestWithContextWithoutRequestID(t *testing.T) {
	logger := Nop()
	assert.Same(t, logger, logger.WithContext(context.Background()))
}
