package query

import (
	"time"

	"github.com/dailyyoga/datakit/logger"
	"github.com/dailyyoga/datakit/retry"
	"go.uber.org/zap"
)

// Option overrides a client default for one query.
type Option func(*options)

type options struct {
	retries        int
	retryDelay     time.Duration
	cacheTime      time.Duration
	staleTime      time.Duration
	attemptTimeout time.Duration
	enabled        bool
	noCache        bool
	scoped         bool
	backoff        retry.Backoff
	retryIf        func(error) bool
	deps           []any
}

// WithRetries sets the number of retries after the first attempt.
func WithRetries(n int) Option {
	return func(o *options) { o.retries = n }
}

// WithRetryDelay sets the base backoff delay.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) { o.retryDelay = d }
}

// WithCacheTime sets the hard threshold.
func WithCacheTime(d time.Duration) Option {
	return func(o *options) { o.cacheTime = d }
}

// WithStaleTime sets the soft threshold.
func WithStaleTime(d time.Duration) Option {
	return func(o *options) { o.staleTime = d }
}

// WithEnabled turns fetching on or off. A disabled query never fetches and
// keeps its initial loading state.
func WithEnabled(enabled bool) Option {
	return func(o *options) { o.enabled = enabled }
}

// WithoutCache bypasses the store: every mount fetches and nothing is written.
func WithoutCache() Option {
	return func(o *options) { o.noCache = true }
}

// IdentityScoped marks the query's data as belonging to the current
// identity. Its entries are dropped and it refetches when the identity
// changes.
func IdentityScoped() Option {
	return func(o *options) { o.scoped = true }
}

// WithBackoff replaces exponential backoff, e.g. with retry.Linear.
func WithBackoff(b retry.Backoff) Option {
	return func(o *options) { o.backoff = b }
}

// WithRetryIf limits retries to errors for which fn returns true, e.g.
// source.Retryable. By default every error is retried.
func WithRetryIf(fn func(error) bool) Option {
	return func(o *options) { o.retryIf = fn }
}

// WithAttemptTimeout bounds each fetch attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *options) { o.attemptTimeout = d }
}

// WithDeps sets the dependency list compared by Rebind.
func WithDeps(deps ...any) Option {
	return func(o *options) { o.deps = deps }
}

func resolveOptions(cfg *Config, log logger.Logger, key string, opts []Option) options {
	o := options{
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
		cacheTime:  cfg.CacheTime,
		staleTime:  cfg.StaleTime,
		enabled:    true,
		backoff:    retry.Exponential,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.retries < 0 {
		o.retries = 0
	}
	if o.retryDelay < 0 {
		o.retryDelay = 0
	}
	if o.cacheTime <= 0 {
		o.cacheTime = cfg.CacheTime
	}
	if o.staleTime < 0 {
		o.staleTime = 0
	}
	if o.staleTime > o.cacheTime {
		log.Warn("stale time exceeds cache time, clamping",
			zap.String("key", key),
			zap.Duration("stale_time", o.staleTime),
			zap.Duration("cache_time", o.cacheTime),
		)
		o.staleTime = o.cacheTime
	}
	return o
}

func (o options) policy() retry.Policy {
	return retry.Policy{
		MaxRetries:     o.retries,
		BaseDelay:      o.retryDelay,
		Backoff:        o.backoff,
		RetryIf:        o.retryIf,
		AttemptTimeout: o.attemptTimeout,
	}
}
