// Package log provides the structured logging interface used across gbdtcheck.
//
// The interface is slog-compatible. Components obtain a named logger and
// attach standard attribute keys (see attributes.go):
//
//	logger := log.GetLoggerWithName("consistency")
//	logger.Info("Check passed",
//	    log.FamilyKey, "binary",
//	    log.PredsKey, 500,
//	)
package log

import (
	"context"
	"log/slog"
	"sync"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
type Logger interface {
	// Debug logs a debug-level message with optional key-value fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional key-value fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional key-value fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message. If the first field is an error it
	// is attached under ErrAttrKey so its stack trace is extracted.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers. Tests swap the default provider to
// capture output.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}

var (
	providerMu sync.RWMutex
	provider   LoggerProvider = &slogProvider{}
)

// SetProvider replaces the process-wide provider and returns the previous one.
func SetProvider(p LoggerProvider) LoggerProvider {
	providerMu.Lock()
	defer providerMu.Unlock()
	prev := provider
	provider = p
	return prev
}

// GetLogger returns the default logger.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLogger()
}

// GetLoggerWithName returns a logger tagged with ComponentKey = name.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return provider.GetLoggerWithName(name)
}

// slogProvider hands out loggers backed by slog.Default at call time, so
// SetupLogger may run after package initialisation.
type slogProvider struct {
	level slog.LevelVar
	set   bool
}

func (p *slogProvider) GetLogger() Logger {
	return &slogLogger{logger: slog.Default(), min: p.minLevel()}
}

func (p *slogProvider) GetLoggerWithName(name string) Logger {
	return &slogLogger{logger: slog.Default().With(ComponentKey, name), min: p.minLevel()}
}

func (p *slogProvider) SetLevel(level Level) {
	p.level.Set(slog.Level(level))
	p.set = true
}

func (p *slogProvider) minLevel() *slog.LevelVar {
	if !p.set {
		return nil
	}
	return &p.level
}

type slogLogger struct {
	logger *slog.Logger
	min    *slog.LevelVar
}

func (s *slogLogger) log(level slog.Level, msg string, fields ...any) {
	if s.min != nil && level < s.min.Level() {
		return
	}
	s.logger.Log(context.Background(), level, msg, fields...)
}

func (s *slogLogger) Debug(msg string, fields ...any) { s.log(slog.LevelDebug, msg, fields...) }
func (s *slogLogger) Info(msg string, fields ...any)  { s.log(slog.LevelInfo, msg, fields...) }
func (s *slogLogger) Warn(msg string, fields ...any)  { s.log(slog.LevelWarn, msg, fields...) }

func (s *slogLogger) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			fields = append([]any{ErrAttr(err)}, fields[1:]...)
		}
	}
	s.log(slog.LevelError, msg, fields...)
}

func (s *slogLogger) With(fields ...any) Logger {
	return &slogLogger{logger: s.logger.With(fields...), min: s.min}
}

func (s *slogLogger) Enabled(ctx context.Context, level Level) bool {
	if s.min != nil && slog.Level(level) < s.min.Level() {
		return false
	}
	return s.logger.Enabled(ctx, slog.Level(level))
}
