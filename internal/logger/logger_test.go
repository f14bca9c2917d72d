package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONOutputWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	log, cleanup, err := New(&Config{Level: "debug", Output: &buf})
	require.NoError(t, err)
	defer cleanup()

	log.Info("gateway \x1b[36mready\x1b[0m", "port", 8080)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "gateway ready", record["msg"])
	assert.Contains(t, record, "timestamp")
	assert.EqualValues(t, 8080, record["port"])
}

func TestNew_FileOutputWritesRotatedLog(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer

	log, cleanup, err := New(&Config{
		Level:      "info",
		Output:     &buf,
		FileOutput: true,
		LogDir:     dir,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	})
	require.NoError(t, err)

	log.Warn("backend unreachable", "backend", "ollama")
	cleanup()

	data, err := os.ReadFile(filepath.Join(dir, DefaultLogOutputName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend unreachable")
	assert.Contains(t, buf.String(), "backend unreachable")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestStyledLogger_WithConnection(t *testing.T) {
	var buf bytes.Buffer
	log, _, err := New(&Config{Level: "info", Output: &buf})
	require.NoError(t, err)

	styled := NewStyledLogger(log, nil).WithConnection("c-1")
	styled.Info("accepted")

	assert.Contains(t, buf.String(), `"conn_id":"c-1"`)
}
