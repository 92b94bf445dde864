package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/fieldtask-mcp/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Debug("hidden")
	logger.Info("remote call", "procedure", "getTasks", "status", 200)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "remote call", rec["msg"])
	assert.Equal(t, "getTasks", rec["procedure"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNew_TextFormat(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "debug", Format: "text"}, &buf)

	logger.With("tool_name", "get_locations").WithGroup("rpc").Warn("slow", "ms", 900)

	out := buf.String()
	assert.Contains(t, out, "WRN slow")
	assert.Contains(t, out, "tool_name=get_locations")
	assert.Contains(t, out, "rpc.ms=900")
}

func TestNew_TextFormatGroupsQualifyBoundAttrs(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var buf bytes.Buffer
	logger := New(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	logger.With("tool_name", "get_tasks_today").
		WithGroup("rpc").With("procedure", "getTasks").
		WithGroup("http").Info("done", "status", 200)

	out := buf.String()
	assert.Contains(t, out, " tool_name=get_tasks_today")
	assert.Contains(t, out, " rpc.procedure=getTasks")
	assert.Contains(t, out, " rpc.http.status=200")
	assert.NotContains(t, out, " procedure=getTasks")
}
