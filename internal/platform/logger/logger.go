// Package logger provides structured logging for the colony server.
// Every automatic bill placement or removal should be traceable through this.
package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// Logger provides structured logging with context.
type Logger struct {
	z *zap.Logger
}

// Options controls how the logger is built.
type Options struct {
	Development bool
	Level       string // debug, info, warn, error
}

// New builds a logger from options.
func New(opts Options) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	if opts.Level != "" {
		lvl, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{z: z}, nil
}

// NewTestLogger routes output through t.Log.
func NewTestLogger(t testing.TB) *Logger {
	return &Logger{z: zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCallerSkip(1)))}
}

// NewObserved records entries at or above level in memory for assertions.
func NewObserved(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &Logger{z: zap.New(core)}, logs
}

// NewNop discards everything.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{z: l.z.With(fields...)}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.z.Debug(msg, fields...)
}

// Info logs informational messages.
func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.z.Info(msg, fields...)
}

// Warn logs warning messages.
func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.z.Warn(msg, fields...)
}

// Error logs error messages.
func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.z.Error(msg, fields...)
}

// Event logs a specific colony event for later auditing.
func (l *Logger) Event(eventType string, actorID string, details string, fields ...zap.Field) {
	l.z.Info("event", append([]zap.Field{
		zap.String("event_type", eventType),
		zap.String("actor", actorID),
		zap.String("details", details),
	}, fields...)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
