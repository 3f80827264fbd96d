package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), "level %q", tt.in)
	}
}

func TestSetupWritesToFile(t *testing.T) {
	m := NewSlogManager()
	var buf bytes.Buffer
	m.Setup(&buf, "info", nil)

	m.Logger().Info("hello from test", "key", "value")

	out := buf.String()
	assert.Contains(t, out, "hello from test")
	assert.Contains(t, out, "key=value")
}

func TestSetupRespectsLevel(t *testing.T) {
	m := NewSlogManager()
	var buf bytes.Buffer
	m.Setup(&buf, "warn", nil)

	m.Logger().Info("filtered out")
	m.Logger().Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "filtered out")
	assert.Contains(t, out, "kept")
}

func TestLoggerBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	require.NotNil(t, m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, nil),
		nil,
	)
	logger := slog.New(h)
	logger.Info("fan out")

	assert.Contains(t, a.String(), "fan out")
	assert.Contains(t, b.String(), "fan out")
}

func TestMultiHandlerEnabled(t *testing.T) {
	var buf bytes.Buffer
	debugOnly := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError})
	h := NewMultiHandler(debugOnly)

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}
