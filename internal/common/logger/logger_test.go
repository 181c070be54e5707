// internal/common/logger/logger_test.go
package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestForSession_AddsRoomAndSessionFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := ForSession(NewZapAdapter(zap.New(core)), "rehmat-call-abc", "sess-1")

	log.Info("session started", map[string]interface{}{"voice": "Aoede"})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, "rehmat-call-abc", ctx["room"])
		assert.Equal(t, "sess-1", ctx["sessionId"])
		assert.Equal(t, "Aoede", ctx["voice"])
	}
}

func TestErrorFieldsAreEncodedAsErrors(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	log := NewZapAdapter(zap.New(core))

	log.Error("failed", map[string]interface{}{"error": errors.New("boom")})

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "boom", entries[0].ContextMap()["error"])
	}
}

func TestNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.WithError(errors.New("x")).Warn("ignored", nil)
	})
}
