// Package logger provides the zap-backed logging interface shared by every
// datakit component.
//
// Components accept a Logger explicitly; *zap.Logger satisfies it, so callers
// may pass their own zap instance. Package-level helpers log through a global
// logger that New installs.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface for logging operations
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Sync() error
}

var _ Logger = (*zap.Logger)(nil)

// New builds a logger from cfg and installs it as the global logger.
// A nil cfg uses DefaultConfig; empty fields are filled from the defaults.
func New(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := cfg.level()
	if err != nil {
		return nil, err
	}

	l, err := build(cfg, level, 0)
	if err != nil {
		return nil, ErrBuildLogger(err)
	}

	// package-level helpers add one frame
	SetGlobalLogger(l.WithOptions(zap.AddCallerSkip(1)))
	return l, nil
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return zap.NewNop()
}

// Named returns l scoped under name when l is a *zap.Logger, and l unchanged
// otherwise.
func Named(l Logger, name string) Logger {
	if zl, ok := l.(*zap.Logger); ok {
		return zl.Named(name)
	}
	return l
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNop()
	}
	return l
}

func build(cfg *Config, level zapcore.Level, callerSkip int) (*zap.Logger, error) {
	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Encoding == "console",
		Encoding:         cfg.Encoding,
		EncoderConfig:    encoderConfig(),
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: cfg.ErrorOutputPaths,
	}
	if cfg.Sampling {
		zc.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
	}
	return zc.Build(
		zap.AddCallerSkip(callerSkip),
		zap.AddStacktrace(zapcore.DPanicLevel),
	)
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}
