package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"iosctl/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "iosctl", config.LoggingConfig{Level: "warn", Format: "json"})

	logger.Info().Msg("hidden")
	logger.Warn().Str("device", "r1").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "iosctl", entry["app"])
	assert.Equal(t, "r1", entry["device"])
}

func TestNewConsoleDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "iosctl", config.LoggingConfig{Level: "loud"})

	logger.Debug().Msg("hidden")
	logger.Info().Msg("connected")

	assert.Contains(t, buf.String(), "connected")
	assert.NotContains(t, buf.String(), "hidden")
}
