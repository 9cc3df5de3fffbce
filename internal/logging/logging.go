package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where and how chanlog's diagnostic log is written.
type Options struct {
	Level slog.Level
	// JSON selects the JSON handler. Used when transcript records are echoed
	// to stdout so the two streams are easy to tell apart.
	JSON bool
	// File, when set, receives the log instead of stderr and is rotated by size.
	File string
}

// Init creates and sets the package-level default slog logger. The returned
// function closes the log file, if any.
func Init(opts Options) func() {
	var w io.Writer = os.Stderr
	cleanup := func() {}
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
		}
		w = lj
		cleanup = func() { _ = lj.Close() }
	}
	slog.SetDefault(New(w, opts))
	return cleanup
}

// New builds a logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
