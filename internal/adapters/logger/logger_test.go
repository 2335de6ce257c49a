package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/juanluis911/TradingLatino/internal/ports"
)

var _ ports.Logger = (*ZapLogger)(nil)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"Warn", LevelWarn},
		{"error", LevelError},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestZapLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewFromZap(zap.New(core))
	ctx := context.Background()

	l.Debug(ctx, "hidden")
	l.Info(ctx, "trade opened", map[string]interface{}{"symbol": "BTCUSDT", "price": 100.5})
	l.Warn(ctx, "skipping bar")
	l.Error(ctx, errors.New("boom"), "run failed", map[string]interface{}{"run_id": "abc"})

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "trade opened", entries[0].Message)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, map[string]interface{}{"symbol": "BTCUSDT", "price": 100.5}, entries[0].ContextMap())

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)

	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	fields := entries[2].ContextMap()
	assert.Equal(t, "boom", fields["error"])
	assert.Equal(t, "abc", fields["run_id"])
}

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := New(LevelWarn, format)
		require.NoError(t, err)
		l.Info(context.Background(), "not written")
	}
	NewNop().Error(context.Background(), errors.New("ignored"), "nop")
}
