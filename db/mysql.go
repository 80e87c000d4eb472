package db

import (
	"context"
	"fmt"
	"time"

	"github.com/dailyyoga/datakit/logger"
	"github.com/dailyyoga/datakit/retry"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewMySQL opens the catalog database. The pool is configured from cfg and
// the server is pinged, with linear backoff, before the handle is returned.
func NewMySQL(ctx context.Context, log logger.Logger, cfg *Config) (Database, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		merged := *cfg
		cfg = merged.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logger.OrNop(log)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	policy := retry.Policy{
		MaxRetries:     cfg.ConnectRetries,
		BaseDelay:      cfg.ConnectRetryDelay,
		Backoff:        retry.Linear,
		AttemptTimeout: cfg.ReadTimeout,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			log.Warn("database connect failed, retrying",
				zap.String("addr", addr),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", cfg.ConnectRetries),
				zap.Duration("backoff", delay),
				zap.Error(err),
			)
		},
	}

	// Open queries the server version, so it fails like a ping on an
	// unreachable server.
	gdb, err := retry.Do(ctx, policy, func(ctx context.Context) (*gorm.DB, error) {
		// gorm.Open mutates its config, so each attempt gets a new one.
		gdb, err := gorm.Open(mysql.New(mysql.Config{DSN: cfg.DSN()}), &gorm.Config{
			Logger:                 newGormLogger(log, cfg.gormLevel(), cfg.SlowThreshold),
			PrepareStmt:            true,
			SkipDefaultTransaction: true,
			DisableAutomaticPing:   true,
		})
		if err != nil {
			return nil, ErrConnection(err)
		}
		if err := FromGorm(gdb).Ping(ctx); err != nil {
			_ = FromGorm(gdb).Close()
			return nil, ErrConnection(err)
		}
		return gdb, nil
	})
	if err != nil {
		return nil, ErrUnreachable(addr, err)
	}

	sqldb, err := gdb.DB()
	if err != nil {
		return nil, ErrConnection(err)
	}
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	log.Info("database connection established",
		zap.String("addr", addr),
		zap.String("database", cfg.Database),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
	)
	return FromGorm(gdb), nil
}
