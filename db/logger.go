package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dailyyoga/datakit/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// gormLogger routes gorm output to zap. Lookups that find nothing and
// queries abandoned by a superseded fetch are normal outcomes for the
// catalog, so neither is logged as an sql error.
type gormLogger struct {
	log  logger.Logger
	min  glogger.LogLevel
	slow time.Duration
}

func newGormLogger(log logger.Logger, level glogger.LogLevel, slow time.Duration) *gormLogger {
	return &gormLogger{log: logger.OrNop(log), min: level, slow: slow}
}

func (g *gormLogger) LogMode(level glogger.LogLevel) glogger.Interface {
	clone := *g
	clone.min = level
	return &clone
}

func (g *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	g.emit(glogger.Info, fmt.Sprintf(msg, data...))
}

func (g *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	g.emit(glogger.Warn, fmt.Sprintf(msg, data...))
}

func (g *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	g.emit(glogger.Error, fmt.Sprintf(msg, data...))
}

// enabled reports whether messages at level pass the configured minimum.
// gorm orders levels Silent < Error < Warn < Info.
func (g *gormLogger) enabled(level glogger.LogLevel) bool {
	return g.min > glogger.Silent && g.min >= level
}

func (g *gormLogger) emit(level glogger.LogLevel, msg string, fields ...zap.Field) {
	if !g.enabled(level) {
		return
	}
	fields = append(fields, zap.String("component", "gorm"), zap.String("source", utils.FileWithLineNum()))
	switch level {
	case glogger.Error:
		g.log.Error(msg, fields...)
	case glogger.Warn:
		g.log.Warn(msg, fields...)
	default:
		g.log.Info(msg, fields...)
	}
}

func (g *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if g.min <= glogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}

	switch {
	case errors.Is(err, context.Canceled):
		g.log.Debug("sql cancelled", append(fields, zap.String("component", "gorm"))...)
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		g.emit(glogger.Error, "sql error", append(fields, zap.Error(err))...)
	case g.slow > 0 && elapsed > g.slow:
		g.emit(glogger.Warn, "slow sql", append(fields, zap.Duration("threshold", g.slow))...)
	default:
		g.emit(glogger.Info, "sql trace", fields...)
	}
}
