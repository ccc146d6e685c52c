package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates a slog logger configured at the provided level. Production
// deployments get JSON records; development gets human-readable text. If the
// level string is invalid it defaults to info.
func New(level string, jsonOutput bool) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if jsonOutput {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}
