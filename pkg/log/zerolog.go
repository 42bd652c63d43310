package log

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/YuminosukeSato/absenteeism/pkg/errors"
	"github.com/rs/zerolog"
)

type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger adapts a zerolog.Logger to Logger.
func NewZerologLogger(zl zerolog.Logger) Logger {
	return &zerologLogger{zl: zl}
}

// NewConsoleLogger returns a human-readable zerolog logger writing to w.
func NewConsoleLogger(w io.Writer, level Level) Logger {
	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(toZerologLevel(level)).
		With().Timestamp().Logger()
	return NewZerologLogger(zl)
}

// SetupConsoleLogger installs a zerolog console logger on w as the package
// default and routes errors.Warn through it.
func SetupConsoleLogger(w io.Writer, loglevel string) error {
	level, err := ToLogLevel(loglevel)
	if err != nil {
		return err
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(toZerologLevel(Level(level))).
		With().Timestamp().Logger()
	SetLogger(NewZerologLogger(zl))
	UseZerologWarnings(zl)
	return nil
}

// UseZerologWarnings routes errors.Warn through zl. Warnings that implement
// zerolog.LogObjectMarshaler keep their structured fields.
func UseZerologWarnings(zl zerolog.Logger) {
	errors.SetZerologWarnFunc(func(w error) {
		ev := zl.Warn()
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			ev = ev.EmbedObject(m)
		}
		ev.Msg(w.Error())
	})
}

func (z *zerologLogger) Debug(msg string, fields ...any) {
	withFields(z.zl.Debug(), fields).Msg(msg)
}

func (z *zerologLogger) Info(msg string, fields ...any) {
	withFields(z.zl.Info(), fields).Msg(msg)
}

func (z *zerologLogger) Warn(msg string, fields ...any) {
	withFields(z.zl.Warn(), fields).Msg(msg)
}

func (z *zerologLogger) Error(msg string, fields ...any) {
	err, rest := splitError(fields)
	ev := z.zl.Error()
	if err != nil {
		ev = ev.Err(err)
	}
	withFields(ev, rest).Msg(msg)
}

func (z *zerologLogger) With(fields ...any) Logger {
	ctx := z.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		ctx = ctx.Interface(fmt.Sprint(fields[i]), fields[i+1])
	}
	return &zerologLogger{zl: ctx.Logger()}
}

func (z *zerologLogger) Enabled(ctx context.Context, level Level) bool {
	return z.zl.GetLevel() <= toZerologLevel(level)
}

func withFields(ev *zerolog.Event, fields []any) *zerolog.Event {
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			ev = ev.AnErr(key, err)
			continue
		}
		ev = ev.Interface(key, fields[i+1])
	}
	return ev
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
