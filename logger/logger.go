// Package logger provides the structured diagnostics interface used across the
// chat client, backed by zerolog. Diagnostics never go to stdout, which carries
// the conversation itself; they go to stderr or to a daily-rotated file.
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Field represents a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// Logger is an interface for structured logging at the usual levels, with
// derived loggers carrying extra fields.
type Logger interface {
	// Debug logs a message at debug level with optional structured fields.
	Debug(msg string, fields ...Field)

	// Info logs a message at info level with optional structured fields.
	Info(msg string, fields ...Field)

	// Warn logs a message at warn level with optional structured fields.
	Warn(msg string, fields ...Field)

	// Error logs a message at error level with optional structured fields.
	Error(msg string, fields ...Field)

	// With returns a Logger that adds fields to every entry. The receiver is
	// unchanged.
	With(fields ...Field) Logger

	// Close releases the sink owned by this logger, if any. Derived loggers
	// never own the sink. Safe to call multiple times.
	Close() error
}

type zerologLogger struct {
	logger zerolog.Logger
	sink   io.Closer
}

// NewConsoleLogger returns a Logger writing human-readable lines to w.
//
// Parameters:
//   - w: Destination, normally os.Stderr
//   - component: Added as the "component" field of every entry
//   - level: Minimum level to log
func NewConsoleLogger(w io.Writer, component string, level zerolog.Level) Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return &zerologLogger{
		logger: zerolog.New(out).With().Str("component", component).Timestamp().Logger().Level(level),
	}
}

// NewFileLogger returns a Logger writing JSON lines to {component}_{date}.log
// files in dir, rotating when the date changes. The directory is created if
// needed.
//
// Returns:
//   - The Logger, or an error if the directory or first file cannot be created
func NewFileLogger(component, dir string, level zerolog.Level) (Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	w, err := NewDailyFileWriter(component, dir)
	if err != nil {
		return nil, err
	}

	return &zerologLogger{
		logger: zerolog.New(w).With().Str("component", component).Timestamp().Logger().Level(level),
		sink:   w,
	}, nil
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger {
	return &zerologLogger{logger: zerolog.Nop()}
}

// ParseLevel maps a level name such as "debug" or "warn" to a zerolog level.
func ParseLevel(name string) (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q: %w", name, err)
	}

	if level == zerolog.NoLevel {
		return zerolog.InfoLevel, nil
	}

	return level, nil
}

func (z *zerologLogger) Debug(msg string, fields ...Field) {
	z.logger.Debug().Fields(toMap(fields)).Msg(msg)
}

func (z *zerologLogger) Info(msg string, fields ...Field) {
	z.logger.Info().Fields(toMap(fields)).Msg(msg)
}

func (z *zerologLogger) Warn(msg string, fields ...Field) {
	z.logger.Warn().Fields(toMap(fields)).Msg(msg)
}

func (z *zerologLogger) Error(msg string, fields ...Field) {
	z.logger.Error().Fields(toMap(fields)).Msg(msg)
}

func (z *zerologLogger) With(fields ...Field) Logger {
	return &zerologLogger{
		logger: z.logger.With().Fields(toMap(fields)).Logger(),
	}
}

func (z *zerologLogger) Close() error {
	if z.sink == nil {
		return nil
	}

	return z.sink.Close()
}

func toMap(fields []Field) map[string]any {
	if len(fields) == 0 {
		return nil
	}

	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}

	return m
}
