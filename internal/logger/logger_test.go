package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ParseLevel(in))
		})
	}
}

func TestPackageFuncsBeforeInit(t *testing.T) {
	Set(nil)
	assert.NotPanics(t, func() {
		Debug("debug")
		Info("info", "k", 1)
		Warn("warn", "odd")
		Error("error", "error", errors.New("boom"))
	})
}

func TestFieldsConversion(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	Info("assigned", "player_id", int64(7), "team_id", nil, "error", errors.New("boom"), 42)

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, int64(7), ctx["player_id"])
	assert.Nil(t, ctx["team_id"])
	assert.Equal(t, "boom", ctx["error"])
	assert.Contains(t, ctx, "arg")
}

func TestLevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	Debug("hidden")
	Info("hidden")
	Warn("shown")

	assert.Equal(t, 1, logs.Len())
}
