// Package log builds the process logger.
package log

import (
	"io"
	"log/slog"
	"os"
)

// New returns a text logger writing to w (stderr when nil). Verbose enables
// debug output such as per-request HTTP lines and browser lifecycle events.
func New(w io.Writer, verbose bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
