package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), "level %q", tt.in)
	}
}

func TestFileSink(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	path := filepath.Join(t.TempDir(), "engine.log")
	cfg := DefaultFileConfig(path)
	cfg.Compress = false
	InitWithFileConfig("warn", cfg, false)

	Info("dropped below level")
	Named("meshlet").Warn("kept", zap.Int("meshlets", 32))
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"kept"`)
	assert.Contains(t, string(data), `"logger":"meshlet"`)
	assert.Contains(t, string(data), `"meshlets":32`)
	assert.NotContains(t, string(data), "dropped below level")
}

func TestDefaultLoggerDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		Debug("nothing configured")
		Error("still nothing")
	})
}
