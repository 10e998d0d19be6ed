package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/disposal-planner/internal/model"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug", zerolog.InfoLevel))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" Warning ", zerolog.InfoLevel))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud", zerolog.InfoLevel))
}

func TestJSONOutputWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l, closer, err := newWithOutput(model.LogConfig{Level: "info"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	sub := Component(l, "schedule")
	sub.Info().Str("id", "abc").Msg("created")
	sub.Debug().Msg("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "schedule", entry["component"])
	assert.Equal(t, "abc", entry["id"])
	assert.Equal(t, "created", entry["message"])
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disposal.log")
	var buf bytes.Buffer
	l, closer, err := newWithOutput(model.LogConfig{Level: "info", File: path}, &buf)
	require.NoError(t, err)

	l.Warn().Msg("to file")
	require.NoError(t, closer.Close())

	assert.FileExists(t, path)
	assert.Contains(t, buf.String(), "to file")
}
