package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.Info("shown", slog.String("agency", "njt"))
	entry := decodeLine(t, &buf)
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "njt", entry["agency"])
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)

	LogError(logger, "build failed", errors.New("boom"), slog.String("agency", "njt"))
	entry := decodeLine(t, &buf)
	assert.Equal(t, "build failed", entry["msg"])
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "njt", entry["agency"])

	// A nil logger is a no-op, not a panic.
	LogError(nil, "ignored", errors.New("boom"))
}

func TestLogOperationSkipsZeroDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)

	LogOperation(logger, "feed built",
		slog.Duration("duration", 0),
		slog.Int("routes", 2))
	entry := decodeLine(t, &buf)
	assert.Equal(t, "feed built", entry["msg"])
	assert.NotContains(t, entry, "duration")
	assert.Equal(t, float64(2), entry["routes"])

	buf.Reset()
	LogOperation(logger, "feed built", slog.Duration("duration", 150*time.Millisecond))
	entry = decodeLine(t, &buf)
	assert.Contains(t, entry, "duration")

	LogOperation(nil, "ignored")
}

func TestLogHTTPRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(&buf, slog.LevelInfo)

	LogHTTPRequest(logger, "GET", "/api/health", 200, 1.5)
	entry := decodeLine(t, &buf)
	assert.Equal(t, "http_request", entry["msg"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/api/health", entry["path"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, 1.5, entry["duration_ms"])

	LogHTTPRequest(nil, "GET", "/", 200, 0)
}
