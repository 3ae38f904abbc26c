package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNewWithOptionsWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docbot.log")

	log, err := NewWithOptions(Options{Level: "info", File: path})
	require.NoError(t, err)

	log.WithConversation("telegram", "1", "2").Info("hello")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"chat_id":"2"`)
}

func TestNewNopDiscards(t *testing.T) {
	log := NewNop()
	assert.NotPanics(t, func() { log.Error("ignored") })
}
