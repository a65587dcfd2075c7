package logger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestBuild_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assistant.log")
	l := Build(Options{Level: "warn", Format: "json", Output: path})
	require.NotNil(t, l)

	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
	_ = l.Sync()
	assert.FileExists(t, path)
}

func TestAdapterChaining(t *testing.T) {
	log := NewTestLogger(t).
		WithFields(map[string]interface{}{"component": "clarify"}).
		WithError(errors.New("boom")).
		With(map[string]interface{}{"conversationId": "c-1"})

	assert.NotPanics(t, func() {
		log.Info("turn handled", map[string]interface{}{"stage": "idle", "amount": 12.5})
		log.Debug("nil fields", nil)
	})
	assert.NotPanics(t, func() {
		NewNoOpLogger().Error("dropped", map[string]interface{}{"x": 1})
	})
}
