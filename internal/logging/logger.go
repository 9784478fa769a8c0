package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// New returns a structured logger with the given level and format.
// level: "debug", "info", "warn", "error" (default "info").
// format: "json", "text" or "auto" (default "auto"); auto picks text when w
// is a terminal and JSON otherwise.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var h slog.Handler
	if useText(w, format) {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	return slog.New(h)
}

// ParseLevel maps a level name onto slog.Level
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops every record
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func useText(w io.Writer, format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		return true
	case "json":
		return false
	default:
		return IsTerminal(w)
	}
}
