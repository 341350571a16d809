package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("info"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))

	// Unknown and empty fall back to info.
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestZapLoggerImplementsInterface(t *testing.T) {
	log := NewZapLogger("error")
	require.NotNil(t, log)

	// Below the configured level; must be a no-op, not a panic.
	log.Debug("debug message", map[string]any{"k": "v"})
	log.Info("info message", nil)
	log.Warn("warn message", map[string]any{"n": 1})
}
