package db

import (
	"fmt"
	"slices"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	glogger "gorm.io/gorm/logger"
)

// Config configures the catalog database connection pool and logging.
type Config struct {
	// Host is the host of the database
	Host string `mapstructure:"host"`
	// Port is the port of the database
	// default: 3306
	Port int `mapstructure:"port"`
	// User is the user of the database
	User string `mapstructure:"user"`
	// Password is the password of the database
	Password string `mapstructure:"password"`
	// Database is the name of the database
	Database string `mapstructure:"database"`
	// MaxOpenConns is the maximum number of open connections to the database
	// default: 25
	MaxOpenConns int `mapstructure:"max_open_conns"`
	// MaxIdleConns is the maximum number of idle connections to the database
	// default: 10
	MaxIdleConns int `mapstructure:"max_idle_conns"`
	// ConnMaxLifetime is the maximum lifetime of a connection
	// default: 30m
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	// ConnMaxIdleTime is the maximum idle time of a connection
	// default: 10m
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	// ReadTimeout bounds a single read on the wire; queries already carry
	// their own context deadline
	// default: 30s
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// LogLevel is the gorm log level: silent, error, warn or info
	// default: "warn"
	LogLevel string `mapstructure:"log_level"`
	// SlowThreshold is the threshold for slow queries
	// default: 1s
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
	// Loc is the time zone used to parse DATETIME columns
	// default: "UTC"
	Loc string `mapstructure:"loc"`
	// ConnectRetries is how many times the initial ping is retried
	// default: 2
	ConnectRetries int `mapstructure:"connect_retries"`
	// ConnectRetryDelay grows linearly between ping retries
	// default: 1s
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

// DSN formats the go-sql-driver data source name.
func (c *Config) DSN() string {
	dc := gomysql.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	dc.DBName = c.Database
	dc.ParseTime = true
	dc.ReadTimeout = c.ReadTimeout
	dc.Timeout = c.ReadTimeout
	if loc, err := time.LoadLocation(c.Loc); err == nil {
		dc.Loc = loc
	}
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc.FormatDSN()
}

// DefaultConfig returns the default configuration for the database
func DefaultConfig() *Config {
	return &Config{
		Port:            3306,
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
		ReadTimeout:     30 * time.Second,
		LogLevel:        "warn",
		SlowThreshold:   time.Second,
		Loc:             "UTC",
		ConnectRetries:    2,
		ConnectRetryDelay: time.Second,
	}
}

// Validate validates the configuration for the database
func (c *Config) Validate() error {
	if c.Host == "" {
		return ErrInvalidConfig("host is required")
	}
	if c.Port <= 0 {
		return ErrInvalidConfig("port is required")
	}
	if c.User == "" {
		return ErrInvalidConfig("user is required")
	}
	if c.Database == "" {
		return ErrInvalidConfig("database is required")
	}
	if c.ConnectRetries < 0 {
		return ErrInvalidConfig(fmt.Sprintf("connect_retries must not be negative, got %d", c.ConnectRetries))
	}
	if _, err := time.LoadLocation(c.Loc); err != nil {
		return ErrInvalidConfig(fmt.Sprintf("loc %q: %v", c.Loc, err))
	}

	validLogLevels := []string{"silent", "error", "warn", "info"}
	if !slices.ContainsFunc(validLogLevels, func(level string) bool {
		return strings.EqualFold(c.LogLevel, level)
	}) {
		return ErrInvalidConfig(fmt.Sprintf("log_level %q must be one of: %s", c.LogLevel, strings.Join(validLogLevels, ", ")))
	}
	return nil
}

// MergeDefaults fills zero fields from DefaultConfig and returns c.
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Port == 0 {
		c.Port = defaults.Port
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = defaults.MaxOpenConns
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = defaults.MaxIdleConns
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.SlowThreshold == 0 {
		c.SlowThreshold = defaults.SlowThreshold
	}
	if c.Loc == "" {
		c.Loc = defaults.Loc
	}
	if c.ConnectRetryDelay == 0 {
		c.ConnectRetryDelay = defaults.ConnectRetryDelay
	}
	return c
}

func (c *Config) gormLevel() glogger.LogLevel {
	switch strings.ToLower(c.LogLevel) {
	case "silent":
		return glogger.Silent
	case "error":
		return glogger.Error
	case "info":
		return glogger.Info
	default:
		return glogger.Warn
	}
}
