package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevel(t *testing.T) {
	ctx := context.Background()
	assert.True(t, New("debug", "").Enabled(ctx, slog.LevelDebug))
	assert.False(t, New("", "json").Enabled(ctx, slog.LevelDebug))
	assert.False(t, New("nonsense", "text").Enabled(ctx, slog.LevelDebug))
	assert.False(t, New("WARN", "").Enabled(ctx, slog.LevelInfo))
}

func TestContextFields(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	var buf bytes.Buffer
	SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, KioskIDKey, "kiosk-9")
	InfoContext(ctx, "hello", "n", 1)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "kiosk-9", line["kiosk_id"])
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "kiosk-9", KioskID(ctx))
	assert.Empty(t, RequestID(context.Background()))
}
