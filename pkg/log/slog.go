package log

import (
	"context"
	"log/slog"
)

type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger adapts l to Logger. A nil l logs through slog.Default().
func NewSlogLogger(l *slog.Logger) Logger {
	return &slogLogger{l: l}
}

func (s *slogLogger) logger() *slog.Logger {
	if s.l == nil {
		return slog.Default()
	}
	return s.l
}

func (s *slogLogger) Debug(msg string, fields ...any) {
	s.logger().Debug(msg, fields...)
}

func (s *slogLogger) Info(msg string, fields ...any) {
	s.logger().Info(msg, fields...)
}

func (s *slogLogger) Warn(msg string, fields ...any) {
	s.logger().Warn(msg, fields...)
}

func (s *slogLogger) Error(msg string, fields ...any) {
	err, rest := splitError(fields)
	if err != nil {
		rest = append([]any{ErrAttr(err)}, rest...)
	}
	s.logger().Error(msg, rest...)
}

func (s *slogLogger) With(fields ...any) Logger {
	return &slogLogger{l: s.logger().With(fields...)}
}

func (s *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return s.logger().Enabled(ctx, slog.Level(level))
}
