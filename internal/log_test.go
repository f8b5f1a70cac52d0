package internal

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"ERROR":   slog.LevelError,
		"warn":    slog.LevelWarn,
		" Info ":  slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"TRACE":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLogLevel(in), "input %q", in)
	}
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, LogFormatText)

	logger.Debug("hidden")
	logger.Info("sweep complete", "scenario", "custom", "minimum_n", 21)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "sweep complete")
	assert.Contains(t, out, "minimum_n=21")
	assert.NotContains(t, out, "\x1b[", "non-terminal writers must not get ANSI colors")
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f), "regular files are not terminals")
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelDebug, LogFormatJSON)
	logger.Debug("row", "n", 30)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "row", entry["msg"])
	assert.Equal(t, float64(30), entry["n"])
}
