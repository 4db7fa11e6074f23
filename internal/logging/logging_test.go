package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	loc := time.FixedZone("CET", 3600)
	logger := New(&buf, loc, slog.LevelInfo)

	logger.Info("export ready", "component", "export", "event", "export_ready", "job_id", "j-1")
	logger.Debug("hidden")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "export ready", rec["msg"])
	assert.Equal(t, "export_ready", rec["event"])
	assert.Equal(t, "j-1", rec["job_id"])
	assert.NotContains(t, rec, "time")

	ts, err := time.Parse(time.RFC3339Nano, rec["ts"].(string))
	require.NoError(t, err)
	_, offset := ts.Zone()
	assert.Equal(t, 3600, offset)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}
