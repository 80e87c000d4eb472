package realtime

// Config is the configuration for the change dispatcher
type Config struct {
	// Name labels the dispatcher goroutine in logs
	// default: "realtime"
	Name string `mapstructure:"name"`

	// Initial capacity of the change queue; the queue grows past it
	// default: 64
	BufferSize int `mapstructure:"buffer_size"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:       "realtime",
		BufferSize: 64,
	}
}

// MergeDefaults fills zero-valued fields from DefaultConfig.
func (c *Config) MergeDefaults() *Config {
	d := DefaultConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.BufferSize == 0 {
		c.BufferSize = d.BufferSize
	}
	return c
}

func (c *Config) Validate() error {
	if c.BufferSize < 0 {
		return ErrInvalidConfig("buffer_size", c.BufferSize)
	}
	return nil
}
