package query

import "time"

// Config holds the client-wide query defaults. Per-query options override
// everything except Name, LoadingTimeout and SweepSpec.
type Config struct {
	// Name prefixes cron chains and log fields
	// default: "datakit"
	Name string `mapstructure:"name"`

	// Retries is the number of retries after the first failed attempt
	// default: 3
	Retries int `mapstructure:"retries"`

	// RetryDelay is the base backoff delay
	// default: 1s
	RetryDelay time.Duration `mapstructure:"retry_delay"`

	// CacheTime is the hard threshold after which cached data is not served
	// default: 5m
	CacheTime time.Duration `mapstructure:"cache_time"`

	// StaleTime is the soft threshold after which cached data is served and
	// refreshed in the background
	// default: 30s
	StaleTime time.Duration `mapstructure:"stale_time"`

	// LoadingTimeout clears a blocking loading state that lasts this long.
	// The request itself keeps running.
	// default: 10s
	LoadingTimeout time.Duration `mapstructure:"loading_timeout"`

	// SweepSpec schedules removal of expired entries (six fields, with seconds)
	// default: "0 * * * * *"
	SweepSpec string `mapstructure:"sweep_spec"`
}

// DefaultConfig returns the default client configuration
func DefaultConfig() *Config {
	return &Config{
		Name:           "datakit",
		Retries:        3,
		RetryDelay:     time.Second,
		CacheTime:      5 * time.Minute,
		StaleTime:      30 * time.Second,
		LoadingTimeout: 10 * time.Second,
		SweepSpec:      "0 * * * * *",
	}
}

// MergeDefaults fills zero fields from DefaultConfig and returns c.
// Retries has no zero sentinel; zero retries is a valid setting.
func (c *Config) MergeDefaults() *Config {
	d := DefaultConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.CacheTime == 0 {
		c.CacheTime = d.CacheTime
	}
	if c.StaleTime == 0 {
		c.StaleTime = d.StaleTime
	}
	if c.LoadingTimeout == 0 {
		c.LoadingTimeout = d.LoadingTimeout
	}
	if c.SweepSpec == "" {
		c.SweepSpec = d.SweepSpec
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Retries < 0 {
		return ErrInvalidConfig("retries", c.Retries)
	}
	if c.RetryDelay < 0 {
		return ErrInvalidConfig("retry_delay", c.RetryDelay)
	}
	if c.CacheTime <= 0 {
		return ErrInvalidConfig("cache_time", c.CacheTime)
	}
	if c.StaleTime < 0 {
		return ErrInvalidConfig("stale_time", c.StaleTime)
	}
	if c.StaleTime > c.CacheTime {
		return ErrStaleExceedsCache(c.StaleTime, c.CacheTime)
	}
	if c.LoadingTimeout <= 0 {
		return ErrInvalidConfig("loading_timeout", c.LoadingTimeout)
	}
	return nil
}
