// Package logging wires the portal's slog loggers: a text handler on the
// console and a JSON handler on weekly rotating files.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configures Setup. Env is the config.Environment string form.
type Options struct {
	Dir            string
	Env            string
	Level          string
	Verbose        bool
	RetentionWeeks int
	MaxFileSize    int64
}

// parseLogLevel maps a LOG_LEVEL value to a slog.Level, defaulting to Info.
func parseLogLevel(level string) slog.Level {
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

// GetConsoleLogLevel decides the console level. Tests stay quiet unless
// verbose; an explicit level wins elsewhere; prod and staging default to
// Warn.
func GetConsoleLogLevel(env, levelStr string, verbose bool) slog.Level {
	if env == "test" {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if levelStr != "" {
		return parseLogLevel(levelStr)
	}

	switch env {
	case "prod", "staging":
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel is always Debug: files keep everything.
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

// Setup builds the console+file logger. The returned closer releases the
// rotating file; it is nil when file logging could not be started, in
// which case the logger writes to the console only.
func Setup(opts Options) (*slog.Logger, io.Closer) {
	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose),
	})

	if opts.Dir == "" {
		return slog.New(console), nil
	}

	rw, err := NewRotatingWriter(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "file logging disabled: %v\n", err)
		return slog.New(console), nil
	}

	file := slog.NewJSONHandler(rw, &slog.HandlerOptions{Level: GetFileLogLevel()})
	return slog.New(&multiHandler{handlers: []slog.Handler{console, file}}), rw
}

// multiHandler fans each record out to every handler enabled for it.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
