// Package log provides structured logging for the absenteeism scorer.
//
// Logger is a small slog-shaped interface with three backends: log/slog
// (the default, see SetupLogger), zerolog for console output, and an in-memory
// TestLogger for assertions in tests.
//
// Example usage:
//
//	logger := log.GetLogger().With(log.ComponentKey, "absenteeism")
//	logger.Info("Batch loaded",
//	    log.OperationKey, log.OperationTransform,
//	    log.SamplesKey, 40,
//	    log.FeaturesKey, 11,
//	)
package log

import (
	"context"
	"sync"
)

// Logger defines a structured logging interface compatible with log/slog.
type Logger interface {
	// Debug logs a debug-level message with optional key-value fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional key-value fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional key-value fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message. If the first field is an error it is
	// logged under the "error" key, with its stack trace when the backend
	// supports it.
	//
	// Example:
	//   logger.Error("Scoring failed", err, log.OperationKey, log.OperationPredict)
	Error(msg string, fields ...any)

	// With returns a Logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at level.
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

var (
	loggerMu      sync.RWMutex
	defaultLogger Logger
)

// GetLogger returns the package default logger. Until SetLogger or SetupLogger
// is called it writes through slog.Default().
func GetLogger() Logger {
	loggerMu.RLock()
	l := defaultLogger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	return NewSlogLogger(nil)
}

// SetLogger replaces the package default logger. Passing nil restores the
// slog.Default() backed logger.
func SetLogger(l Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	defaultLogger = l
}

// splitError pulls a leading error out of fields so backends can attach it
// under ErrAttrKey.
func splitError(fields []any) (error, []any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			return err, fields[1:]
		}
	}
	return nil, fields
}
