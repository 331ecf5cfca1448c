package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWithoutInitDiscards(t *testing.T) {
	mu.Lock()
	globalLogger = nil
	mu.Unlock()

	log := NewLogger("test")
	require.NotNil(t, log)
	log.WithField("k", "v").Info("dropped")
}

func TestInitWritesModuleFieldAndFile(t *testing.T) {
	t.Cleanup(func() {
		mu.Lock()
		globalLogger = nil
		mu.Unlock()
	})

	var buf bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "goup.log")
	require.NoError(t, Init(Config{Level: "info", Format: "json", Output: &buf, File: logFile}))

	NewLogger("download").WithField("url", "https://example.com").Info("probe")

	assert.Contains(t, buf.String(), `"module":"download"`)
	assert.Contains(t, buf.String(), `"message":"probe"`)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "probe")
}

func TestInitRejectsBadLevel(t *testing.T) {
	require.Error(t, Init(Config{Level: "loud"}))
}
