package logger

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	lvl, zl, ok := ParseLevel("debug")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelDebug, lvl)
	assert.Equal(t, zapcore.DebugLevel, zl)

	lvl, _, ok = ParseLevel("loud")
	assert.False(t, ok)
	assert.Equal(t, slog.LevelInfo, lvl)
}

func TestInitRoutesSlogIntoZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Init(zap.New(core), "info")
	t.Cleanup(Discard)

	Debug("hidden")
	Info("batch finished", "succeeded", 2)
	NewSlogAdapter().With("component", "executor").Warn("stale context")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "batch finished", entries[0].Message)
	assert.Equal(t, int64(2), entries[0].ContextMap()["succeeded"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "executor", entries[1].ContextMap()["component"])
}
