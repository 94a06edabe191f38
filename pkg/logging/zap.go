// Package logging provides a production Logger implementation for
// pkg/coordinator, backed by go.uber.org/zap.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a *zap.SugaredLogger to the coordinator.Logger interface.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger builds a ZapLogger at the given level ("debug", "info",
// "warn", "error"; defaults to "info" on an unrecognized value).
func NewZapLogger(level string) (*ZapLogger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: logger.Sugar()}, nil
}

func (l *ZapLogger) Debug(msg string, kv ...any) { l.sugar.Debugw(msg, kv...) }
func (l *ZapLogger) Info(msg string, kv ...any)  { l.sugar.Infow(msg, kv...) }
func (l *ZapLogger) Warn(msg string, kv ...any)  { l.sugar.Warnw(msg, kv...) }
func (l *ZapLogger) Error(msg string, kv ...any) { l.sugar.Errorw(msg, kv...) }

// Sync flushes any buffered log entries. Callers should defer it after
// construction.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}
