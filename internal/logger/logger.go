package logger

import (
	"log/slog"
	"os"
)

// Init configures the process-wide slog default: JSON output, debug level
// and source locations in debug mode.
func Init(ginMode string) {
	level := slog.LevelInfo
	if ginMode == "debug" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: ginMode == "debug",
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	slog.SetDefault(slog.New(handler))

	slog.Info("structured logging initialized", "level", level.String())
}
