package cache

import "time"

// Config holds configuration for a Store
type Config struct {
	// Name identifies the store in logs
	// default: "query-cache"
	Name string `mapstructure:"name"`
	// DefaultCacheTime is the sweep threshold for entries written without one
	// default: 5 * time.Minute
	DefaultCacheTime time.Duration `mapstructure:"default_cache_time"`
}

// DefaultConfig returns the default Store configuration
func DefaultConfig() *Config {
	return &Config{
		Name:             "query-cache",
		DefaultCacheTime: 5 * time.Minute,
	}
}

// MergeDefaults fills zero fields from DefaultConfig and returns c.
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.Name == "" {
		c.Name = defaults.Name
	}
	if c.DefaultCacheTime == 0 {
		c.DefaultCacheTime = defaults.DefaultCacheTime
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DefaultCacheTime <= 0 {
		return ErrInvalidCacheTime(c.DefaultCacheTime)
	}
	return nil
}
