package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing host", Config{User: "u", Database: "d"}, "host is required"},
		{"missing user", Config{Host: "h", Database: "d"}, "user is required"},
		{"missing database", Config{Host: "h", User: "u"}, "database is required"},
		{"bad log level", Config{Host: "h", User: "u", Database: "d", LogLevel: "loud"}, "log_level"},
		{"bad location", Config{Host: "h", User: "u", Database: "d", Loc: "Mars/Base"}, "loc"},
		{"valid", Config{Host: "h", User: "u", Database: "d"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.MergeDefaults().Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := (&Config{Host: "db.local", User: "reader", Password: "secret", Database: "catalog"}).MergeDefaults()
	dsn := cfg.DSN()
	for _, part := range []string{"reader:secret@tcp(db.local:3306)/catalog", "parseTime=true", "readTimeout=30s", "charset=utf8mb4"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("dsn %q missing %q", dsn, part)
		}
	}
}

func TestNewMySQL_InvalidConfig(t *testing.T) {
	if _, err := NewMySQL(context.Background(), nil, &Config{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestFromGorm_Nil(t *testing.T) {
	d := FromGorm(nil)
	if _, err := d.DB(); !errors.Is(err, ErrConnectionNotEstablished) {
		t.Errorf("expected ErrConnectionNotEstablished, got %v", err)
	}
	if err := d.Ping(context.Background()); !errors.Is(err, ErrConnectionNotEstablished) {
		t.Errorf("expected ErrConnectionNotEstablished, got %v", err)
	}
}

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	g := newGormLogger(zap.New(core), glogger.Warn, 100*time.Millisecond)
	sql := func() (string, int64) { return "SELECT 1", 1 }

	g.Trace(context.Background(), time.Now(), sql, errors.New("bad query"))
	g.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	g.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	g.Trace(context.Background(), time.Now(), sql, nil)

	if n := logs.FilterMessage("sql error").Len(); n != 1 {
		t.Errorf("expected 1 sql error, got %d", n)
	}
	if n := logs.FilterMessage("slow sql").Len(); n != 1 {
		t.Errorf("expected 1 slow sql, got %d", n)
	}
	if n := logs.FilterMessage("sql trace").Len(); n != 0 {
		t.Errorf("info traces must be suppressed at warn, got %d", n)
	}

	silent := g.LogMode(glogger.Silent)
	silent.Trace(context.Background(), time.Now(), sql, errors.New("ignored"))
	if n := logs.FilterMessage("sql error").Len(); n != 1 {
		t.Errorf("silent logger must not log, got %d errors", n)
	}
}

func TestNewMySQL_Unreachable(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := &Config{
		Host:              "127.0.0.1",
		Port:              1,
		User:              "reader",
		Database:          "catalog",
		ConnectRetries:    1,
		ConnectRetryDelay: time.Millisecond,
		ReadTimeout:       time.Second,
	}

	_, err := NewMySQL(context.Background(), zap.New(core), cfg)
	if err == nil || !strings.Contains(err.Error(), "127.0.0.1:1 unreachable") {
		t.Fatalf("expected unreachable error, got %v", err)
	}
	if n := logs.FilterMessage("database connect failed, retrying").Len(); n != 1 {
		t.Errorf("expected 1 retry log, got %d", n)
	}
}

func TestNewMySQL_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMySQL(ctx, nil, &Config{Host: "127.0.0.1", Port: 1, User: "u", Database: "d"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGormLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	g := newGormLogger(zap.New(core), glogger.Warn, 0)
	ctx := context.Background()

	g.Info(ctx, "opened %s", "catalog")
	g.Warn(ctx, "retrying %d", 2)
	g.Error(ctx, "failed: %v", "boom")

	if n := logs.FilterMessage("opened catalog").Len(); n != 0 {
		t.Errorf("info must be suppressed at warn, got %d", n)
	}
	if n := logs.FilterMessage("retrying 2").Len(); n != 1 {
		t.Errorf("expected warn entry, got %d", n)
	}
	entries := logs.FilterMessage("failed: boom").All()
	if len(entries) != 1 {
		t.Fatalf("expected error entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["component"] != "gorm" {
		t.Errorf("expected component field, got %v", entries[0].ContextMap())
	}

	verbose := g.LogMode(glogger.Info)
	verbose.Info(ctx, "opened %s", "catalog")
	if n := logs.FilterMessage("opened catalog").Len(); n != 1 {
		t.Errorf("expected info entry after LogMode(Info), got %d", n)
	}
	g.Info(ctx, "opened %s", "catalog")
	if n := logs.FilterMessage("opened catalog").Len(); n != 1 {
		t.Errorf("LogMode must not change the original logger, got %d", n)
	}
}

func TestGormLogger_CancelledQueryIsNotAnError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	g := newGormLogger(zap.New(core), glogger.Warn, 0)
	sql := func() (string, int64) { return "SELECT * FROM agents", 0 }

	g.Trace(context.Background(), time.Now(), sql, context.Canceled)
	g.Trace(context.Background(), time.Now(), sql, fmt.Errorf("query: %w", context.Canceled))

	if n := logs.FilterMessage("sql error").Len(); n != 0 {
		t.Errorf("cancelled queries must not log sql error, got %d", n)
	}
	if n := logs.FilterMessage("sql cancelled").Len(); n != 2 {
		t.Errorf("expected 2 sql cancelled entries, got %d", n)
	}
}
