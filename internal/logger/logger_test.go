package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)
	log.Info().Str("file", "a.qfx").Msg("imported")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "a.qfx", entry["file"])
	assert.Equal(t, "imported", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewFromOptions(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewFromOptions(&buf, Options{Level: "warn", Format: "json"})
	require.NoError(t, err)

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewFromOptions_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewFromOptions(&buf, Options{})
	require.NoError(t, err)
	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
}

func TestNewFromOptions_Invalid(t *testing.T) {
	_, err := NewFromOptions(&bytes.Buffer{}, Options{Level: "loud"})
	assert.Error(t, err)

	_, err = NewFromOptions(&bytes.Buffer{}, Options{Format: "xml"})
	assert.Error(t, err)
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf)
	ctx := WithContext(context.Background(), log)

	got := FromContext(ctx)
	got.Info().Msg("from context")
	assert.Contains(t, buf.String(), "from context")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := WithFields(NewWithWriter(&buf), map[string]interface{}{"account": "Visa"})
	log.Info().Msg("x")
	assert.Contains(t, buf.String(), `"account":"Visa"`)
}
