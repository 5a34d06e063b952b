package telemetry

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"
)

// ConfigureLogging sets up the process-wide slog default at the given
// level and redirects stdlib log.Printf (used by some vendored
// dependencies) through it, so nothing is silenced by a stricter filter.
// Grounded on the teacher's daemon.ConfigureLogging; call this once at
// startup before Setup if OTel export is not configured, or as the
// pre-OTel fallback logger while exporters are still connecting.
func ConfigureLogging(level string) {
	lvl := parseLogLevel(level)
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))

	log.SetOutput(&slogWriter{level: lvl})
	log.SetFlags(0)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// slogWriter adapts log.Printf output to slog at a fixed level.
type slogWriter struct {
	level slog.Level
}

func (w *slogWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimRight(string(p), "\n")
	slog.Log(context.Background(), w.level, msg)
	return len(p), nil
}
