package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init installs the process-wide logger: a text handler on stderr, so log
// lines never land in the terminal the room view owns. The room runs quiet
// by default; LOG_LEVEL opens it up during development.
func Init() {
	level := slog.LevelError

	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug", "dev":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	}

	slog.SetDefault(slog.New(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	))
}
