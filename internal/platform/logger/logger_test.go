package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "json")
	log.Info("dropped")
	log.Warn("kept", "ballot_id", "b1")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
	assert.Contains(t, out, `"service":"safeballot"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestMasking(t *testing.T) {
	assert.Equal(t, "SAFE-B…", MaskKey("SAFE-BALLOT-ABC123-XYZ789"))
	assert.Equal(t, "***", MaskKey("abc"))
	assert.Equal(t, "j***@example.org", MaskEmail("jane@example.org"))
	assert.Equal(t, "***", MaskEmail("not-an-email"))
	assert.Equal(t, "", MaskEmail(""))
}
