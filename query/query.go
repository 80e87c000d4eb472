package query

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/dailyyoga/datakit/cache"
	"github.com/dailyyoga/datakit/logger"
	"github.com/dailyyoga/datakit/retry"
	"github.com/dailyyoga/datakit/routine"
	"github.com/dailyyoga/datakit/source"
	"go.uber.org/zap"
)

// FetchFunc loads the data for a query. It is called again on retries and
// refreshes, so it must be safe to repeat, and it should return when ctx is
// done.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// State is the lifecycle state of a query.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateRetrying
	StateSuccess
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateRetrying:
		return "retrying"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Result is a snapshot of a query.
type Result[T any] struct {
	Key     string
	Data    T
	HasData bool
	// Loading is true while a blocking fetch runs. It starts true and is
	// cleared by data, by failure or by the loading timeout.
	Loading bool
	// Err is set after a foreground fetch exhausts its retries. It wraps
	// the last fetch error and is classified by the source package.
	Err     error
	IsStale bool
	State   State
	// RetryCount is the number of retries made by the current request.
	RetryCount int
	UpdatedAt  time.Time
	// Version increases with every published change.
	Version uint64
}

// request is one in-flight fetch. At most one exists per query.
type request struct {
	ctx    context.Context
	cancel context.CancelFunc
	mode   Mode
	timer  *time.Timer
	done   chan struct{}
	once   sync.Once
}

func (r *request) finish() {
	r.once.Do(func() {
		r.cancel()
		if r.timer != nil {
			r.timer.Stop()
		}
		close(r.done)
	})
}

// Query binds a cache key and fetch function to a reactive Result.
type Query[T any] struct {
	c  *Client
	id uint64

	mu         sync.Mutex
	key        string
	fetch      FetchFunc[T]
	opts       options
	result     Result[T]
	req        *request
	hasFirst   bool
	firstEpoch uint64
	subs       map[int]func(Result[T])
	nextSub    int
	closed     bool
}

// New creates a query and mounts it: the cache is consulted and a fetch is
// started when needed.
func New[T any](c *Client, key string, fn FetchFunc[T], opts ...Option) (*Query[T], error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if fn == nil {
		return nil, ErrNilFetch
	}

	q := &Query[T]{
		c:     c,
		key:   key,
		fetch: fn,
		opts:  resolveOptions(c.cfg, c.logger, key, opts),
		subs:  make(map[int]func(Result[T])),
		result: Result[T]{
			Key:     key,
			Loading: true,
			State:   StateIdle,
		},
	}
	id, err := c.register(q)
	if err != nil {
		return nil, err
	}
	q.id = id

	q.mu.Lock()
	changed := q.mountLocked()
	q.unlockAndPublish(changed)
	return q, nil
}

// Result returns the current snapshot.
func (q *Query[T]) Result() Result[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.result
}

// Key returns the current cache key.
func (q *Query[T]) Key() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.key
}

// Rebind changes the key, fetch function or dependencies. When key and
// deps are unchanged only the fetch function is replaced; otherwise the
// in-flight request is cancelled and the query mounts again.
func (q *Query[T]) Rebind(key string, fn FetchFunc[T], deps ...any) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if fn != nil {
		q.fetch = fn
	}
	if key == "" {
		key = q.key
	}
	if key == q.key && reflect.DeepEqual(deps, q.opts.deps) {
		q.mu.Unlock()
		return
	}
	q.key = key
	q.opts.deps = deps
	changed := q.mountLocked()
	q.unlockAndPublish(changed)
}

// Refetch bypasses the cache and starts a new foreground request with the
// retry count reset. It does nothing on a disabled query.
func (q *Query[T]) Refetch() {
	q.mu.Lock()
	if q.closed || !q.opts.enabled {
		q.mu.Unlock()
		return
	}
	q.startLocked(ModeForeground)
	q.unlockAndPublish(true)
}

// Wait blocks until no request is in flight or ctx is done.
func (q *Query[T]) Wait(ctx context.Context) error {
	for {
		q.mu.Lock()
		r := q.req
		q.mu.Unlock()
		if r == nil {
			return nil
		}
		select {
		case <-r.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Subscribe calls fn with every published change until the returned
// function is called. fn runs on the goroutine that made the change and
// must not block; snapshots may arrive out of order, use Version to drop
// older ones.
func (q *Query[T]) Subscribe(fn func(Result[T])) (unsubscribe func()) {
	q.mu.Lock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = fn
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		delete(q.subs, id)
		q.mu.Unlock()
	}
}

// Close cancels the in-flight request and detaches the query from the
// client. Its cached data stays in the store.
func (q *Query[T]) Close() {
	q.shutdown()
	q.c.unregister(q.id)
}

func (q *Query[T]) sessionKey() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.key
}

func (q *Query[T]) identityScoped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.opts.scoped
}

func (q *Query[T]) shutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	changed := q.req != nil
	if changed {
		q.cancelLocked()
		q.result.State = StateCancelled
		q.result.Loading = false
	}
	q.unlockAndPublish(changed)
}

func (q *Query[T]) revalidate(force bool) {
	q.mu.Lock()
	if q.closed || !q.opts.enabled {
		q.mu.Unlock()
		return
	}
	if q.req != nil && !force {
		q.mu.Unlock()
		return
	}
	if !force && q.freshLocked() {
		q.mu.Unlock()
		return
	}

	mode := ModeForeground
	switch {
	case q.req != nil:
		mode = q.req.mode
	case q.result.HasData:
		mode = ModeBackground
	}
	if q.result.HasData {
		q.result.IsStale = true
	}
	q.startLocked(mode)
	q.unlockAndPublish(true)
}

func (q *Query[T]) resetIdentity() {
	q.mu.Lock()
	if q.closed || !q.opts.enabled {
		q.mu.Unlock()
		return
	}
	q.cancelLocked()
	var zero T
	q.result.Data = zero
	q.result.HasData = false
	q.result.IsStale = false
	q.result.Err = nil
	q.hasFirst = false
	q.mountLocked()
	q.unlockAndPublish(true)
}

// mountLocked serves from the cache or starts a fetch. It reports whether
// the result changed.
func (q *Query[T]) mountLocked() bool {
	if q.closed || !q.opts.enabled {
		return false
	}

	if !q.opts.noCache {
		if e, ok := q.c.store.Get(q.key); ok {
			freshness := e.Freshness(q.c.clock.Now(), q.opts.cacheTime)
			if freshness != cache.Expired {
				if v, ok := e.Value.(T); ok {
					q.serveCachedLocked(v, e, freshness)
					return true
				}
				q.c.logger.Warn("cached value has unexpected type, refetching",
					zap.String("key", q.key),
					zap.String("type", fmt.Sprintf("%T", e.Value)),
				)
			}
		}
		q.c.metrics.CacheMiss()
	}

	q.startLocked(ModeForeground)
	return true
}

func (q *Query[T]) serveCachedLocked(v T, e cache.Entry, freshness cache.Freshness) {
	q.c.metrics.CacheHit(freshness)
	q.c.logger.Debug("cache hit",
		zap.String("key", q.key),
		zap.Stringer("freshness", freshness),
	)

	q.cancelLocked()
	q.result.Key = q.key
	q.result.Data = v
	q.result.HasData = true
	q.result.Loading = false
	q.result.Err = nil
	q.result.IsStale = freshness == cache.Stale
	q.result.State = StateSuccess
	q.result.RetryCount = 0
	q.result.UpdatedAt = e.WrittenAt
	q.markFirstLocked()

	if freshness == cache.Stale {
		q.startLocked(ModeBackground)
	}
}

// startLocked cancels any in-flight request and starts a new one.
func (q *Query[T]) startLocked(mode Mode) {
	q.cancelLocked()

	ctx, cancel := context.WithCancel(q.c.ctx)
	r := &request{
		ctx:    ctx,
		cancel: cancel,
		mode:   mode,
		done:   make(chan struct{}),
	}
	q.req = r
	q.result.Key = q.key
	q.result.RetryCount = 0
	q.c.metrics.Fetch(mode)

	if mode == ModeForeground {
		q.result.State = StateFetching
		q.result.Err = nil
		q.result.Loading = q.blockingLocked()
		if q.result.Loading {
			r.timer = time.AfterFunc(q.c.cfg.LoadingTimeout, func() { q.loadingTimedOut(r) })
		}
	}

	key, fetch, opts := q.key, q.fetch, q.opts
	q.c.runner.GoNamed("query:"+key, func() {
		q.run(r, key, fetch, opts)
	})
}

// blockingLocked reports whether a foreground fetch shows loading: only when
// no consumer has received data since the last gate reset.
func (q *Query[T]) blockingLocked() bool {
	opened, epoch := q.c.gate.State()
	if opened {
		return false
	}
	return !q.hasFirst || q.firstEpoch != epoch
}

func (q *Query[T]) markFirstLocked() {
	q.hasFirst = true
	q.firstEpoch = q.c.gate.Open()
}

func (q *Query[T]) cancelLocked() {
	if q.req == nil {
		return
	}
	q.req.finish()
	q.req = nil
	q.c.metrics.Cancelled()
}

func (q *Query[T]) freshLocked() bool {
	if !q.result.HasData || q.result.IsStale {
		return false
	}
	now := q.c.clock.Now()
	if q.opts.noCache {
		return now.Sub(q.result.UpdatedAt) <= q.opts.staleTime
	}
	e, ok := q.c.store.Get(q.key)
	if !ok {
		return false
	}
	return e.Freshness(now, q.opts.cacheTime) == cache.Fresh
}

func (q *Query[T]) run(r *request, key string, fetch FetchFunc[T], opts options) {
	defer r.finish()

	policy := opts.policy()
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		q.retrying(r, attempt, delay, err)
	}
	v, err := retry.Do(r.ctx, policy, safeFetch(q.c.logger, key, fetch))
	q.complete(r, key, opts, v, err)
}

func (q *Query[T]) retrying(r *request, attempt int, delay time.Duration, err error) {
	q.mu.Lock()
	if q.req != r {
		q.mu.Unlock()
		return
	}
	q.result.RetryCount = attempt
	if r.mode == ModeForeground {
		q.result.State = StateRetrying
	}
	q.c.metrics.Retry(r.mode)
	q.c.logger.Warn("query failed, retrying",
		zap.String("key", q.key),
		zap.String("mode", string(r.mode)),
		zap.Int("attempt", attempt),
		zap.Int("max_retries", q.opts.retries),
		zap.Duration("backoff", delay),
		zap.Error(err),
	)
	q.unlockAndPublish(true)
}

func (q *Query[T]) complete(r *request, key string, opts options, v T, err error) {
	q.mu.Lock()
	if q.req != r {
		// Superseded or closed; the result must not be observed.
		q.mu.Unlock()
		return
	}
	// finish cancels r.ctx, so cancellation must be read first.
	cancelled := err != nil && r.ctx.Err() != nil
	q.req = nil
	r.finish()

	if cancelled {
		q.c.metrics.Cancelled()
		q.result.State = StateCancelled
		q.result.Loading = false
		q.unlockAndPublish(true)
		return
	}

	if err == nil {
		now := q.c.clock.Now()
		if !opts.noCache {
			putOpts := []cache.PutOption{cache.WithCacheTime(opts.cacheTime)}
			if opts.scoped {
				putOpts = append(putOpts, cache.Scoped())
			}
			q.c.store.Put(key, v, opts.staleTime, putOpts...)
		}
		q.result = Result[T]{
			Key:       key,
			Data:      v,
			HasData:   true,
			State:     StateSuccess,
			UpdatedAt: now,
			Version:   q.result.Version,
		}
		q.markFirstLocked()
		q.c.logger.Debug("query succeeded",
			zap.String("key", key),
			zap.String("mode", string(r.mode)),
		)
		q.unlockAndPublish(true)
		return
	}

	q.c.metrics.Failure(r.mode)
	if r.mode == ModeBackground {
		// Stale data stays served; only a foreground failure clears it.
		q.c.logger.Warn("background refresh failed",
			zap.String("key", key),
			zap.Error(err),
		)
		q.unlockAndPublish(true)
		return
	}

	q.c.logger.Error("query failed after all retries",
		zap.String("key", key),
		zap.Int("retries", q.result.RetryCount),
		zap.Error(err),
	)
	var zero T
	q.result.Data = zero
	q.result.HasData = false
	q.result.Loading = false
	q.result.IsStale = false
	q.result.Err = source.Convert(err)
	q.result.State = StateFailed
	q.unlockAndPublish(true)
}

func (q *Query[T]) loadingTimedOut(r *request) {
	q.mu.Lock()
	if q.req != r || !q.result.Loading {
		q.mu.Unlock()
		return
	}
	q.result.Loading = false
	q.c.metrics.LoadingTimeout()
	q.c.logger.Warn("loading timed out, request still running",
		zap.String("key", q.key),
		zap.Duration("timeout", q.c.cfg.LoadingTimeout),
	)
	q.unlockAndPublish(true)
}

// unlockAndPublish releases q.mu and, if changed, delivers the new snapshot
// to subscribers outside the lock.
func (q *Query[T]) unlockAndPublish(changed bool) {
	if !changed {
		q.mu.Unlock()
		return
	}
	q.result.Version++
	res := q.result
	subs := make([]func(Result[T]), 0, len(q.subs))
	for _, fn := range q.subs {
		subs = append(subs, fn)
	}
	q.mu.Unlock()

	for _, fn := range subs {
		fn(res)
	}
}

// safeFetch turns a panic in fetch into a failed attempt.
func safeFetch[T any](log logger.Logger, key string, fetch FetchFunc[T]) func(context.Context) (T, error) {
	name := "query:" + key
	return func(ctx context.Context) (T, error) {
		var out T
		err := routine.Safe(log, name, func() error {
			var ferr error
			out, ferr = fetch(ctx)
			return ferr
		})
		return out, err
	}
}
