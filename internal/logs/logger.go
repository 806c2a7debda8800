package logs

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

type Logger = *slog.Logger

type Options struct {
	// Terminal receives human-readable text output. Nil disables it.
	Terminal io.Writer
	// File, when set, receives JSON records appended to it.
	File  io.Writer
	Level *slog.LevelVar
}

func New(opts Options) Logger {
	level := opts.Level
	if level == nil {
		level = new(slog.LevelVar)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	if opts.Terminal != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.Terminal, handlerOpts))
	}
	if opts.File != nil {
		handlers = append(handlers, slog.NewJSONHandler(opts.File, handlerOpts))
	}
	return slog.New(slogmulti.Fanout(handlers...))
}

// OpenFile opens path for appending JSON log records.
func OpenFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", name)
	}
}
