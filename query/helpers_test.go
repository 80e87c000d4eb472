package query

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dailyyoga/datakit/cache"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counts: make(map[string]int)}
}

func (m *recordingMetrics) inc(name string) {
	m.mu.Lock()
	m.counts[name]++
	m.mu.Unlock()
}

func (m *recordingMetrics) get(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

func (m *recordingMetrics) CacheHit(f cache.Freshness) { m.inc("hit_" + f.String()) }
func (m *recordingMetrics) CacheMiss()                 { m.inc("miss") }
func (m *recordingMetrics) Fetch(mode Mode)            { m.inc("fetch_" + string(mode)) }
func (m *recordingMetrics) Retry(mode Mode)            { m.inc("retry_" + string(mode)) }
func (m *recordingMetrics) Failure(mode Mode)          { m.inc("failure_" + string(mode)) }
func (m *recordingMetrics) Cancelled()                 { m.inc("cancelled") }
func (m *recordingMetrics) LoadingTimeout()            { m.inc("loading_timeout") }

type testEnv struct {
	client  *Client
	clock   *manualClock
	logs    *observer.ObservedLogs
	metrics *recordingMetrics
}

func newTestEnv(t *testing.T, cfg *Config) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = &Config{Retries: 3, RetryDelay: time.Millisecond}
	}
	core, logs := observer.New(zapcore.DebugLevel)
	clk := newManualClock()
	m := newRecordingMetrics()
	c, err := NewClient(zap.New(core), cfg, WithClock(clk), WithMetrics(m))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return &testEnv{client: c, clock: clk, logs: logs, metrics: m}
}

func waitIdle[T any](t *testing.T, q *Query[T]) Result[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Wait(ctx))
	return q.Result()
}

// gatedFetch blocks every call whose number is in block until release is
// closed, then returns value.
func gatedFetch[T any](calls *counter, value T, release <-chan struct{}, block ...int) FetchFunc[T] {
	return func(ctx context.Context) (T, error) {
		n := calls.inc()
		for _, b := range block {
			if b == n {
				<-release
			}
		}
		return value, nil
	}
}

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
