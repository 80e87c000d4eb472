package logger

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger atomic.Pointer[zap.Logger]

// SetGlobalLogger replaces the logger used by the package-level helpers.
// It should be built with AddCallerSkip(1) so callers are reported correctly.
func SetGlobalLogger(l *zap.Logger) {
	globalLogger.Store(l)
}

// GetGlobalLogger returns the global logger, building a default one on first
// use.
func GetGlobalLogger() *zap.Logger {
	if l := globalLogger.Load(); l != nil {
		return l
	}
	l, err := build(DefaultConfig(), zapcore.InfoLevel, 1)
	if err != nil {
		l = zap.NewNop()
	}
	// first writer wins so concurrent callers share one instance
	if globalLogger.CompareAndSwap(nil, l) {
		return l
	}
	return globalLogger.Load()
}

// Debug logs a message at debug level using the global logger.
func Debug(msg string, fields ...zap.Field) {
	GetGlobalLogger().Debug(msg, fields...)
}

// Info logs a message at info level using the global logger.
func Info(msg string, fields ...zap.Field) {
	GetGlobalLogger().Info(msg, fields...)
}

// Warn logs a message at warn level using the global logger.
func Warn(msg string, fields ...zap.Field) {
	GetGlobalLogger().Warn(msg, fields...)
}

// Error logs a message at error level using the global logger.
func Error(msg string, fields ...zap.Field) {
	GetGlobalLogger().Error(msg, fields...)
}

// Sync flushes any buffered log entries from the global logger.
func Sync() error {
	return GetGlobalLogger().Sync()
}
