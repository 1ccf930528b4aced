package logging

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger creates a structured logger appropriate for the environment.
// Production uses JSON format at info level, development uses
// human-readable text at debug level. Every record carries the service
// name so the client's lines stay attributable in a shared stream.
func NewLogger(env string) *slog.Logger {
	return slog.New(newHandler(env, os.Stdout))
}

func newHandler(env string, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	var handler slog.Handler

	if env == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	}

	return handler.WithAttrs([]slog.Attr{slog.String("service", "talkx-client")})
}
