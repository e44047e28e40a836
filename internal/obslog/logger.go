// Package obslog provides structured logging for the relay metrics pipeline.
package obslog

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode"
)

// Logger is the interface used by every component in the pipeline.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

type slogLogger struct {
	logger *slog.Logger
}

// NewLogger creates a new logger with the given configuration.
func NewLogger(config *Config) Logger {
	if config == nil {
		config = DefaultConfig()
	}

	opts := &slog.HandlerOptions{
		Level: config.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	switch config.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(config.Output, opts)
	default:
		handler = slog.NewTextHandler(config.Output, opts)
	}

	logger := slog.New(handler).With(
		"service", "allium",
		"version", config.Version,
	)

	return &slogLogger{logger: logger}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, sanitizeFields(args)...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, sanitizeFields(args)...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, sanitizeFields(args)...) }
func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, sanitizeFields(args)...) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(sanitizeFields(args)...)}
}

func (l *slogLogger) WithContext(ctx context.Context) Logger {
	attrs := make([]any, 0, 2)
	if runID := ctx.Value(runIDKey{}); runID != nil {
		attrs = append(attrs, "run_id", runID)
	}
	if len(attrs) > 0 {
		return l.With(attrs...)
	}
	return l
}

type runIDKey struct{}

// WithRunID attaches a run identifier to a context so it propagates into
// every log line emitted while the context is in scope.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// Config holds logger configuration.
type Config struct {
	Level   slog.Level
	Format  Format
	Output  *os.File
	Version string
}

// Format is the log output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// DefaultConfig returns sensible defaults: text output to stdout at info level.
func DefaultConfig() *Config {
	return &Config{
		Level:   slog.LevelInfo,
		Format:  FormatText,
		Output:  os.Stdout,
		Version: "dev",
	}
}

// sanitizeLogValue strips control characters from string values to prevent
// log injection via upstream-controlled strings (contact lines, nicknames).
func sanitizeLogValue(value any) any {
	str, ok := value.(string)
	if !ok {
		return value
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return ' '
		}
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, str)
}

func sanitizeFields(fields []any) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = sanitizeLogValue(f)
	}
	return out
}

// LogPhase returns a logger tagged with one of the pipeline's named phases
// (fetch, store-build, leaderboard, diagnostics, render). It logs nothing
// itself.
func LogPhase(logger Logger, phase string, fields ...any) Logger {
	base := []any{"phase", phase}
	return logger.With(append(base, fields...)...)
}

// LogSourceStatus logs the per-API status line required by --progress
// (spec §4.D, §7): fetched / cached / stale.
func LogSourceStatus(logger Logger, api, status string, elapsed time.Duration) {
	logger.Info("source status",
		"api", api,
		"status", status,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// LogDuration logs how long an operation took.
func LogDuration(logger Logger, start time.Time, operation string) {
	d := time.Since(start)
	logger.Info("operation completed", "operation", operation, "duration_ms", d.Milliseconds())
}

// LogError logs a non-nil error with its operation context.
func LogError(logger Logger, err error, operation string, fields ...any) {
	if err == nil {
		return
	}
	base := []any{"operation", operation, "error", err.Error()}
	logger.Error("operation failed", append(base, fields...)...)
}

// NoOpLogger discards everything; used for library callers and tests.
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, args ...any)          {}
func (NoOpLogger) Info(msg string, args ...any)           {}
func (NoOpLogger) Warn(msg string, args ...any)           {}
func (NoOpLogger) Error(msg string, args ...any)          {}
func (NoOpLogger) With(args ...any) Logger                { return NoOpLogger{} }
func (NoOpLogger) WithContext(ctx context.Context) Logger { return NoOpLogger{} }

// DefaultLogger is the package-level default, swappable via SetDefaultLogger.
var DefaultLogger = NewLogger(DefaultConfig())

// SetDefaultLogger replaces the package-level default logger.
func SetDefaultLogger(logger Logger) {
	DefaultLogger = logger
}
