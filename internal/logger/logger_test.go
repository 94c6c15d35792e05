package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcd...", truncateString("abcdefghij", 7))
	assert.Equal(t, "...", truncateString("abcdef", 2))
	assert.Equal(t, "Прив...", truncateString("Привет, мир", 7))
}

func TestNewRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, "warn", false)
	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestMiddlewareAddsRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, "info", true)

	var seen string
	h := Middleware(log)(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		seen = RequestID(ctx)
	})
	h(context.Background(), nil, &models.Update{
		ID: 99,
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb",
			From: models.User{ID: 5},
			Data: "appt:view:1",
		},
	})

	require.NotEmpty(t, seen)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "Processing update", first["msg"])
	assert.Equal(t, seen, first["request_id"])
	assert.Equal(t, "callback_query", first["update_type"])
	assert.Equal(t, "appt:view:1", first["data"])
}
