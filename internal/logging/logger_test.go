package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Info().Str("post_id", "p1").Msg("post created")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "post created", line["message"])
	assert.Equal(t, "p1", line["post_id"])
}

func TestInit_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "error", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Info().Msg("hidden")
	assert.Zero(t, buf.Len())
	Error().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestCtx_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	Ctx(ctx).Info().Msg("hello")
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)

	buf.Reset()
	Ctx(context.Background()).Info().Msg("plain")
	assert.NotContains(t, buf.String(), "request_id")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("WARNING"))
	assert.Equal(t, zerolog.Disabled, parseLevel("disabled"))
}
