package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

type LoggingService struct {
	Logger *slog.Logger
	closer io.Closer
}

var (
	DefaultLoggingService *LoggingService
	serviceMu             sync.Mutex
)

// InitLogger initializes the global logger instance and makes it the slog
// default.
func InitLogger(opts Options) {
	logger, closer := Setup(opts)

	serviceMu.Lock()
	old := DefaultLoggingService
	DefaultLoggingService = &LoggingService{Logger: logger, closer: closer}
	serviceMu.Unlock()

	if old != nil && old.closer != nil {
		_ = old.closer.Close()
	}
	slog.SetDefault(logger)
}

// Close flushes and closes the rotating file, if any.
func Close() error {
	serviceMu.Lock()
	defer serviceMu.Unlock()

	if DefaultLoggingService == nil || DefaultLoggingService.closer == nil {
		return nil
	}
	err := DefaultLoggingService.closer.Close()
	DefaultLoggingService.closer = nil
	return err
}

func logger() *slog.Logger {
	serviceMu.Lock()
	defer serviceMu.Unlock()
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return nil
	}
	return DefaultLoggingService.Logger
}

// Current returns the global logger, or slog's default before InitLogger
// has run.
func Current() *slog.Logger {
	if l := logger(); l != nil {
		return l
	}
	return slog.Default()
}

// fallback is used before InitLogger has run.
func fallback(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	if l := logger(); l != nil {
		l.Info(msg, args...)
		return
	}
	fallback(slog.LevelInfo).Info(msg, args...)
}

func Error(msg string, args ...any) {
	if l := logger(); l != nil {
		l.Error(msg, args...)
		return
	}
	fallback(slog.LevelError).Error(msg, args...)
}

func Warn(msg string, args ...any) {
	if l := logger(); l != nil {
		l.Warn(msg, args...)
		return
	}
	fallback(slog.LevelWarn).Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	if l := logger(); l != nil {
		l.Debug(msg, args...)
		return
	}
	fallback(slog.LevelDebug).Debug(msg, args...)
}
