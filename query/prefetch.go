package query

import (
	"context"
	"errors"
	"time"

	"github.com/dailyyoga/datakit/cache"
	"github.com/dailyyoga/datakit/retry"
	"github.com/dailyyoga/datakit/source"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Prefetch fills the cache for key unless it already holds fresh data, so a
// later query mounts without loading. It retries like a query and returns
// the classified error on failure. Options that only affect mounted
// queries are ignored.
func Prefetch[T any](ctx context.Context, c *Client, key string, fn FetchFunc[T], opts ...Option) error {
	if key == "" {
		return ErrEmptyKey
	}
	if fn == nil {
		return ErrNilFetch
	}
	o := resolveOptions(c.cfg, c.logger, key, opts)
	if o.noCache || !o.enabled {
		return nil
	}

	if e, ok := c.store.Get(key); ok && e.Freshness(c.clock.Now(), o.cacheTime) == cache.Fresh {
		c.metrics.CacheHit(cache.Fresh)
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.ctx, cancel)
	defer stop()

	c.metrics.Fetch(ModePrefetch)
	policy := o.policy()
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.metrics.Retry(ModePrefetch)
		c.logger.Warn("prefetch failed, retrying",
			zap.String("key", key),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
	}

	v, err := retry.Do(ctx, policy, safeFetch(c.logger, key, fn))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		c.metrics.Failure(ModePrefetch)
		return source.Convert(err)
	}

	putOpts := []cache.PutOption{cache.WithCacheTime(o.cacheTime)}
	if o.scoped {
		putOpts = append(putOpts, cache.Scoped())
	}
	c.store.Put(key, v, o.staleTime, putOpts...)
	c.logger.Debug("prefetched", zap.String("key", key))
	return nil
}

// PrefetchTask binds Prefetch arguments for PrefetchAll.
func PrefetchTask[T any](c *Client, key string, fn FetchFunc[T], opts ...Option) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return Prefetch(ctx, c, key, fn, opts...)
	}
}

// PrefetchAll runs tasks concurrently. The first failure cancels the rest
// and is returned.
func PrefetchAll(ctx context.Context, tasks ...func(ctx context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			return task(ctx)
		})
	}
	return g.Wait()
}
