package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", JSON: true, Output: &buf})

	logger.Debug("hidden")
	logger.Info("assist completed", "request_id", "abc", "model_calls", 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "assist completed", entry["msg"])
	require.Equal(t, "abc", entry["request_id"])
}

func TestNew_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "DEBUG", Output: &buf})

	logger.Debug("tool dispatched", "tool", "search_content")
	require.Contains(t, buf.String(), "tool dispatched")
	require.Contains(t, buf.String(), "search_content")
}

func TestNew_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "verbose", Output: &buf})

	logger.Debug("hidden")
	require.Empty(t, buf.String())
	logger.Warn("shown")
	require.Contains(t, buf.String(), "shown")
}
