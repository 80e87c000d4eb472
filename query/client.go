// Package query is a stale-while-revalidate data fetching layer.
//
// A Client owns the shared cache store, the first-paint gate and the
// goroutines of every query created from it. A Query binds a cache key to a
// fetch function: on mount it serves fresh data from the cache, serves stale
// data while refreshing it in the background, or fetches with retry and
// backoff on a miss. Results are published to subscribers; errors never
// escape as panics or returns and live in Result.Err.
package query

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dailyyoga/datakit/cache"
	"github.com/dailyyoga/datakit/cron"
	"github.com/dailyyoga/datakit/gate"
	"github.com/dailyyoga/datakit/logger"
	"github.com/dailyyoga/datakit/routine"
	"go.uber.org/zap"
)

// session is the client's view of a live query.
type session interface {
	sessionKey() string
	identityScoped() bool
	// revalidate refreshes data that is not fresh; force refreshes regardless.
	revalidate(force bool)
	resetIdentity()
	shutdown()
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClock sets the time source for cache ages.
func WithClock(clk cache.Clock) ClientOption {
	return func(c *Client) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) ClientOption {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithStore replaces the default in-memory store.
func WithStore(s cache.Store) ClientOption {
	return func(c *Client) { c.store = s }
}

// WithGate shares a first-paint gate between clients.
func WithGate(g *gate.Gate) ClientOption {
	return func(c *Client) {
		if g != nil {
			c.gate = g
		}
	}
}

// Stats is a point-in-time snapshot of a client.
type Stats struct {
	Entries int
	Queries int
	Running int
}

// Client is constructed once and shared by every query of a process.
type Client struct {
	cfg     *Config
	logger  logger.Logger
	clock   cache.Clock
	store   cache.Store
	gate    *gate.Gate
	metrics Metrics
	runner  routine.Runner

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	cron     cron.Cron
	identity string
	sessions map[uint64]session
	nextID   uint64
	closed   bool
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// NewClient creates a client. A nil cfg uses DefaultConfig; cfg itself is
// never modified.
func NewClient(log logger.Logger, cfg *Config, opts ...ClientOption) (*Client, error) {
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
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cfg:      cfg,
		logger:   log,
		clock:    realClock{},
		gate:     gate.New(),
		metrics:  NoopMetrics{},
		runner:   routine.New(log),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[uint64]session),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.store == nil {
		store, err := cache.NewStore(
			&cache.Config{Name: cfg.Name, DefaultCacheTime: cfg.CacheTime},
			cache.WithClock(c.clock),
			cache.WithLogger(log),
		)
		if err != nil {
			cancel()
			return nil, err
		}
		c.store = store
	}
	return c, nil
}

// Start schedules the periodic sweep of expired entries. Calling it again
// is a no-op.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	if c.cron != nil {
		return nil
	}

	cr := cron.NewCron(c.logger)
	sweep := cache.NewSweepTask(c.store, func(removed int) {
		if removed > 0 {
			c.logger.Info("cache swept",
				zap.String("client", c.cfg.Name),
				zap.Int("removed", removed),
			)
		}
	})
	if err := cr.AddTasks(c.cfg.Name+"-cache-sweep", c.cfg.SweepSpec, sweep); err != nil {
		cr.Close()
		return ErrStartCron(err)
	}
	cr.Start()
	c.cron = cr
	return nil
}

// Close stops the sweep, cancels every in-flight request and waits for all
// query goroutines to return.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	cr := c.cron
	sessions := c.snapshotLocked()
	c.mu.Unlock()

	for _, s := range sessions {
		s.shutdown()
	}
	c.cancel()
	if cr != nil {
		cr.Close()
	}
	c.runner.Wait()
}

// Store returns the underlying cache store.
func (c *Client) Store() cache.Store { return c.store }

// Gate returns the first-paint gate.
func (c *Client) Gate() *gate.Gate { return c.gate }

// Invalidate marks key stale. Active queries on key refresh in the
// background and keep serving their data meanwhile.
func (c *Client) Invalidate(key string) bool {
	ok := c.store.Invalidate(key)
	c.revalidateWhere(func(k string) bool { return k == key })
	return ok
}

// InvalidatePrefix invalidates every key starting with prefix.
func (c *Client) InvalidatePrefix(prefix string) int {
	n := c.store.InvalidatePrefix(prefix)
	c.revalidateWhere(func(k string) bool { return strings.HasPrefix(k, prefix) })
	return n
}

// Clear deletes key from the store. Active queries keep their data.
func (c *Client) Clear(key string) bool {
	return c.store.Clear(key)
}

// ClearAll deletes every entry from the store.
func (c *Client) ClearAll() int {
	return c.store.ClearAll()
}

// Identity returns the current actor; the empty string is anonymous.
func (c *Client) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// SetIdentity records the current actor. On a change, including to or from
// anonymous, it drops identity-scoped entries, resets the first-paint gate
// and refetches active identity-scoped queries. It reports whether the
// identity changed.
func (c *Client) SetIdentity(id string) bool {
	c.mu.Lock()
	if c.closed || id == c.identity {
		c.mu.Unlock()
		return false
	}
	prev := c.identity
	c.identity = id
	sessions := c.snapshotLocked()
	c.mu.Unlock()

	removed := c.store.ClearScoped()
	epoch := c.gate.Reset()
	c.logger.Info("identity changed",
		zap.String("client", c.cfg.Name),
		zap.Bool("was_anonymous", prev == ""),
		zap.Bool("anonymous", id == ""),
		zap.Int("cleared", removed),
		zap.Uint64("epoch", epoch),
	)

	for _, s := range sessions {
		if s.identityScoped() {
			s.resetIdentity()
		}
	}
	return true
}

// NotifyVisible refreshes active queries whose data is not fresh. Call it
// when the consumer becomes visible again.
func (c *Client) NotifyVisible() {
	c.mu.Lock()
	sessions := c.snapshotLocked()
	c.mu.Unlock()
	for _, s := range sessions {
		s.revalidate(false)
	}
}

// Stats returns a snapshot of the client.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	n := len(c.sessions)
	c.mu.Unlock()
	return Stats{
		Entries: c.store.Len(),
		Queries: n,
		Running: c.runner.Running(),
	}
}

func (c *Client) register(s session) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClientClosed
	}
	c.nextID++
	c.sessions[c.nextID] = s
	return c.nextID, nil
}

func (c *Client) unregister(id uint64) {
	c.mu.Lock()
	delete(c.sessions, id)
	c.mu.Unlock()
}

func (c *Client) revalidateWhere(match func(key string) bool) {
	c.mu.Lock()
	sessions := c.snapshotLocked()
	c.mu.Unlock()
	for _, s := range sessions {
		if match(s.sessionKey()) {
			s.revalidate(true)
		}
	}
}

func (c *Client) snapshotLocked() []session {
	out := make([]session, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, s)
	}
	return out
}
