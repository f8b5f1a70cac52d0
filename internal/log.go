package internal

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogFormatText LogFormat = "text" // colored tint output for terminals
	LogFormatJSON LogFormat = "json"
)

// ParseLogLevel maps ERROR/WARN/INFO/DEBUG (any case) to a slog level.
// Unknown values fall back to INFO. TRACE is accepted as DEBUG.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return slog.LevelError
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "DEBUG", "TRACE":
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// NewLogger creates a leveled logger writing to w.
func NewLogger(w io.Writer, level slog.Level, format LogFormat) *slog.Logger {
	if format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isTerminal(w),
	}))
}

// NewDefaultLogger creates a stderr logger from LOG_LEVEL and LOG_FORMAT.
func NewDefaultLogger() *slog.Logger {
	return NewLogger(os.Stderr, ParseLogLevel(os.Getenv("LOG_LEVEL")), LogFormat(strings.ToLower(os.Getenv("LOG_FORMAT"))))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
