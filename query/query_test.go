package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dailyyoga/datakit/cache"
	"github.com/dailyyoga/datakit/retry"
	"github.com/dailyyoga/datakit/routine"
	"github.com/dailyyoga/datakit/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const agentsKey = "agents-All--trending"

func fiveAgents() []string {
	return []string{"a1", "a2", "a3", "a4", "a5"}
}

func TestConfig(t *testing.T) {
	cfg := (&Config{}).MergeDefaults()
	assert.Equal(t, "datakit", cfg.Name)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, 5*time.Minute, cfg.CacheTime)
	assert.Equal(t, 30*time.Second, cfg.StaleTime)
	assert.Equal(t, 10*time.Second, cfg.LoadingTimeout)
	assert.Equal(t, "0 * * * * *", cfg.SweepSpec)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 3, DefaultConfig().Retries)

	_, err := NewClient(nil, &Config{StaleTime: time.Hour, CacheTime: time.Minute})
	assert.Error(t, err, "stale time above cache time must be rejected")

	_, err = NewClient(nil, &Config{Retries: -1})
	assert.Error(t, err)
}

func TestNewClient_LeavesConfigUntouched(t *testing.T) {
	cfg := &Config{Retries: 1}
	c, err := NewClient(nil, cfg)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, Config{Retries: 1}, *cfg)

	other, err := NewClient(nil, cfg, WithStore(c.Store()))
	require.NoError(t, err)
	defer other.Close()
	assert.Equal(t, Config{Retries: 1}, *cfg)
}

func TestNew_InvalidArguments(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := New[int](env.client, "", func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, err = New[int](env.client, "k", nil)
	assert.ErrorIs(t, err, ErrNilFetch)
}

// Fresh reads are served without fetching; stale reads are served and
// refreshed once in the background.
func TestQuery_StaleWhileRevalidate(t *testing.T) {
	env := newTestEnv(t, &Config{Retries: 3, RetryDelay: time.Millisecond, StaleTime: 30 * time.Second})
	var calls counter
	release := make(chan struct{})
	fetch := gatedFetch(&calls, fiveAgents(), release, 2)

	q1, err := New(env.client, agentsKey, fetch)
	require.NoError(t, err)
	res := waitIdle(t, q1)
	require.Len(t, res.Data, 5)
	require.Equal(t, StateSuccess, res.State)
	require.Equal(t, 1, calls.get())
	q1.Close()

	env.clock.Advance(10 * time.Second)
	q2, err := New(env.client, agentsKey, fetch)
	require.NoError(t, err)
	res = q2.Result()
	assert.Len(t, res.Data, 5)
	assert.False(t, res.Loading)
	assert.False(t, res.IsStale)
	waitIdle(t, q2)
	assert.Equal(t, 1, calls.get(), "fresh hit must not fetch")
	q2.Close()

	env.clock.Advance(30 * time.Second)
	q3, err := New(env.client, agentsKey, fetch)
	require.NoError(t, err)
	res = q3.Result()
	assert.Len(t, res.Data, 5)
	assert.True(t, res.IsStale)
	assert.False(t, res.Loading, "background refresh must not show loading")

	close(release)
	res = waitIdle(t, q3)
	assert.Equal(t, 2, calls.get(), "stale hit must fetch exactly once")
	assert.False(t, res.IsStale)
	assert.Equal(t, 1, env.metrics.get("hit_fresh"))
	assert.Equal(t, 1, env.metrics.get("hit_stale"))
	assert.Equal(t, 1, env.metrics.get("fetch_background"))
}

func TestQuery_ExpiredIsMiss(t *testing.T) {
	env := newTestEnv(t, nil)
	env.client.Store().Put(agentsKey, fiveAgents(), 30*time.Second)
	env.clock.Advance(5*time.Minute + time.Millisecond)

	var calls counter
	release := make(chan struct{})
	q, err := New(env.client, agentsKey, gatedFetch(&calls, []string{"new"}, release, 1))
	require.NoError(t, err)

	res := q.Result()
	assert.False(t, res.HasData, "expired data must not be served")
	assert.True(t, res.Loading)
	assert.Equal(t, StateFetching, res.State)

	close(release)
	res = waitIdle(t, q)
	assert.Equal(t, []string{"new"}, res.Data)
	assert.False(t, res.Loading)
	assert.Equal(t, 1, env.metrics.get("miss"))
}

func TestQuery_RetryBound(t *testing.T) {
	env := newTestEnv(t, &Config{Retries: 3, RetryDelay: time.Millisecond})
	opErr := errors.New("connection reset")
	var calls counter

	q, err := New(env.client, agentsKey, func(context.Context) ([]string, error) {
		calls.inc()
		return nil, opErr
	})
	require.NoError(t, err)
	res := waitIdle(t, q)

	assert.Equal(t, 4, calls.get(), "initial attempt plus retries")
	assert.Equal(t, StateFailed, res.State)
	assert.False(t, res.Loading)
	assert.False(t, res.HasData)
	assert.Equal(t, 3, res.RetryCount)
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, opErr)
	assert.ErrorIs(t, res.Err, retry.ErrExhausted)
	assert.Equal(t, source.KindUnknown, source.KindOf(res.Err))

	retries := env.logs.FilterMessage("query failed, retrying").All()
	require.Len(t, retries, 3)
	var prev time.Duration
	for _, entry := range retries {
		backoff := entry.ContextMap()["backoff"].(time.Duration)
		assert.GreaterOrEqual(t, backoff, prev)
		prev = backoff
	}
	assert.Len(t, env.logs.FilterMessage("query failed after all retries").All(), 1)
	assert.Equal(t, 1, env.metrics.get("failure_foreground"))
}

func TestQuery_SucceedsOnFourthAttempt(t *testing.T) {
	env := newTestEnv(t, nil)
	var calls counter
	q, err := New(env.client, agentsKey, func(context.Context) (string, error) {
		if calls.inc() < 4 {
			return "", errors.New("temporary")
		}
		return "fourth", nil
	})
	require.NoError(t, err)

	res := waitIdle(t, q)
	assert.Equal(t, 4, calls.get())
	assert.NoError(t, res.Err)
	assert.Equal(t, "fourth", res.Data)
	assert.Equal(t, 0, res.RetryCount)
}

func TestQuery_Disabled(t *testing.T) {
	env := newTestEnv(t, nil)
	var calls counter
	q, err := New(env.client, agentsKey, func(context.Context) (int, error) {
		calls.inc()
		return 1, nil
	}, WithEnabled(false))
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	q.Refetch()
	env.client.NotifyVisible()
	env.client.Invalidate(agentsKey)
	q.Rebind("other", nil, "dep")

	res := waitIdle(t, q)
	assert.Equal(t, 0, calls.get())
	assert.True(t, res.Loading, "loading keeps its initial value")
	assert.Equal(t, StateIdle, res.State)
}

// A superseded request never updates state or the cache, even when its
// fetch resolves after the replacement.
func TestQuery_CancellationSafety(t *testing.T) {
	env := newTestEnv(t, nil)
	startedA := make(chan struct{})
	releaseA := make(chan struct{})
	finishedA := make(chan struct{})
	fetchA := func(context.Context) (string, error) {
		defer close(finishedA)
		close(startedA)
		<-releaseA
		return "A", nil
	}
	fetchB := func(context.Context) (string, error) { return "B", nil }

	q, err := New(env.client, "agents-A", fetchA)
	require.NoError(t, err)

	select {
	case <-startedA:
	case <-time.After(5 * time.Second):
		t.Fatal("fetch A never started")
	}
	q.Rebind("agents-B", fetchB)

	res := waitIdle(t, q)
	assert.Equal(t, "B", res.Data)
	version := res.Version

	close(releaseA)
	select {
	case <-finishedA:
	case <-time.After(5 * time.Second):
		t.Fatal("fetch A never returned")
	}
	require.Eventually(t, func() bool { return env.client.Stats().Running == 0 }, 2*time.Second, 5*time.Millisecond)

	res = q.Result()
	assert.Equal(t, "B", res.Data)
	assert.Equal(t, "agents-B", res.Key)
	assert.Equal(t, version, res.Version)
	_, ok := env.client.Store().Get("agents-A")
	assert.False(t, ok, "cancelled request must not write the cache")
	assert.GreaterOrEqual(t, env.metrics.get("cancelled"), 1)
}

// Exhausting retries in the foreground surfaces a classified error rather
// than a cancellation.
func TestQuery_ExhaustionSurfacesError(t *testing.T) {
	env := newTestEnv(t, &Config{Retries: 1, RetryDelay: time.Millisecond})
	var calls counter
	q, err := New(env.client, agentsKey, func(context.Context) (int, error) {
		calls.inc()
		return 0, errors.New("down")
	})
	require.NoError(t, err)

	res := waitIdle(t, q)
	assert.Equal(t, 2, calls.get())
	assert.Equal(t, StateFailed, res.State)
	require.Error(t, res.Err)
	assert.Equal(t, source.KindUnknown, source.KindOf(res.Err))
	assert.False(t, res.Loading)
	assert.False(t, res.HasData)
	assert.Equal(t, 1, env.metrics.get("failure_foreground"))
	assert.Equal(t, 0, env.metrics.get("cancelled"))
	assert.Equal(t, 1, env.logs.FilterMessage("query failed after all retries").Len())
}

func TestQuery_RebindUnchangedDeps(t *testing.T) {
	env := newTestEnv(t, nil)
	var calls counter
	fetch := func(context.Context) (int, error) { return calls.inc(), nil }

	q, err := New(env.client, agentsKey, fetch, WithDeps("All", ""))
	require.NoError(t, err)
	waitIdle(t, q)

	q.Rebind(agentsKey, fetch, "All", "")
	waitIdle(t, q)
	assert.Equal(t, 1, calls.get(), "same key and deps must not remount")

	env.clock.Advance(time.Minute)
	q.Rebind(agentsKey, fetch, "All", "search")
	res := waitIdle(t, q)
	assert.Equal(t, 2, calls.get(), "changed deps remount and refresh stale data")
	assert.Equal(t, 2, res.Data)
}

func TestQuery_RefetchResetsRetryCount(t *testing.T) {
	env := newTestEnv(t, &Config{Retries: 2, RetryDelay: time.Millisecond})
	q, err := New(env.client, agentsKey, func(context.Context) (int, error) {
		return 0, errors.New("down")
	})
	require.NoError(t, err)
	res := waitIdle(t, q)
	require.Equal(t, 2, res.RetryCount)

	release := make(chan struct{})
	var calls counter
	q.Rebind(agentsKey, gatedFetch(&calls, 7, release, 1))
	q.Refetch()

	res = q.Result()
	assert.Equal(t, 0, res.RetryCount)
	assert.Equal(t, StateFetching, res.State)
	assert.NoError(t, res.Err)

	close(release)
	res = waitIdle(t, q)
	assert.Equal(t, 7, res.Data)
	assert.Equal(t, 1, calls.get())
}

func TestQuery_RefetchBypassesCache(t *testing.T) {
	env := newTestEnv(t, nil)
	var calls counter
	q, err := New(env.client, agentsKey, func(context.Context) (int, error) { return calls.inc(), nil })
	require.NoError(t, err)
	waitIdle(t, q)

	q.Refetch()
	res := waitIdle(t, q)
	assert.Equal(t, 2, calls.get())
	assert.Equal(t, 2, res.Data)
}

func TestQuery_IdentityChange(t *testing.T) {
	env := newTestEnv(t, nil)
	env.client.SetIdentity("u1")

	var calls counter
	release := make(chan struct{})
	scoped, err := New(env.client, "user-agents-u1", gatedFetch(&calls, "mine", release, 2), IdentityScoped())
	require.NoError(t, err)
	waitIdle(t, scoped)
	require.True(t, env.client.Gate().Get())

	public, err := New(env.client, agentsKey, func(context.Context) (string, error) { return "public", nil })
	require.NoError(t, err)
	waitIdle(t, public)

	assert.False(t, env.client.SetIdentity("u1"), "same identity is not a change")
	assert.True(t, env.client.SetIdentity("u2"))
	assert.Equal(t, "u2", env.client.Identity())

	res := scoped.Result()
	assert.False(t, res.HasData, "previous identity's data must be dropped")
	assert.True(t, res.Loading, "identity change forces a blocking fetch")
	_, ok := env.client.Store().Get("user-agents-u1")
	assert.False(t, ok)
	_, ok = env.client.Store().Get(agentsKey)
	assert.True(t, ok, "unscoped entries survive")
	assert.Equal(t, "public", public.Result().Data)

	close(release)
	res = waitIdle(t, scoped)
	assert.Equal(t, "mine", res.Data)
	assert.Equal(t, 2, calls.get())
	assert.True(t, env.client.Gate().Get())

	assert.True(t, env.client.SetIdentity(""), "signing out is a change")
}

func TestQuery_BackgroundFailureKeepsData(t *testing.T) {
	env := newTestEnv(t, &Config{Retries: 1, RetryDelay: time.Millisecond})
	env.client.Store().Put(agentsKey, fiveAgents(), 30*time.Second)
	env.clock.Advance(time.Minute)

	q, err := New(env.client, agentsKey, func(context.Context) ([]string, error) {
		return nil, errors.New("refresh failed")
	})
	require.NoError(t, err)
	res := waitIdle(t, q)

	assert.Len(t, res.Data, 5)
	assert.True(t, res.HasData)
	assert.True(t, res.IsStale)
	assert.NoError(t, res.Err)
	assert.Equal(t, StateSuccess, res.State)
	assert.Len(t, env.logs.FilterMessage("background refresh failed").All(), 1)
	_, ok := env.client.Store().Get(agentsKey)
	assert.True(t, ok, "failures never delete cache entries")
}

func TestQuery_ForegroundFailureClearsData(t *testing.T) {
	env := newTestEnv(t, &Config{Retries: 0, RetryDelay: time.Millisecond})
	q, err := New(env.client, agentsKey, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	waitIdle(t, q)

	q.Rebind(agentsKey, func(context.Context) (int, error) {
		return 0, &source.RemoteError{Message: "permission denied", Code: "42501"}
	})
	q.Refetch()
	res := waitIdle(t, q)

	assert.False(t, res.HasData)
	assert.Equal(t, 0, res.Data)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, "permission denied", source.Message(res.Err))
}

func TestQuery_RetryIf(t *testing.T) {
	env := newTestEnv(t, nil)
	var calls counter
	q, err := New(env.client, agentsKey, func(context.Context) (int, error) {
		calls.inc()
		return 0, source.New(source.KindNotFound, "no agent")
	}, WithRetryIf(source.Retryable))
	require.NoError(t, err)

	res := waitIdle(t, q)
	assert.Equal(t, 1, calls.get())
	assert.ErrorIs(t, res.Err, source.ErrNotFound)
}

func TestQuery_LoadingTimeout(t *testing.T) {
	env := newTestEnv(t, &Config{LoadingTimeout: 20 * time.Millisecond})
	release := make(chan struct{})
	var calls counter
	q, err := New(env.client, agentsKey, gatedFetch(&calls, "late", release, 1))
	require.NoError(t, err)
	require.True(t, q.Result().Loading)

	require.Eventually(t, func() bool { return !q.Result().Loading }, 2*time.Second, 5*time.Millisecond)
	res := q.Result()
	assert.Equal(t, StateFetching, res.State, "timeout does not cancel the request")
	assert.NoError(t, res.Err)
	assert.Equal(t, 1, env.metrics.get("loading_timeout"))

	close(release)
	res = waitIdle(t, q)
	assert.Equal(t, "late", res.Data)
	_, ok := env.client.Store().Get(agentsKey)
	assert.True(t, ok)
}

func TestQuery_GateSuppressesLoading(t *testing.T) {
	env := newTestEnv(t, nil)
	first, err := New(env.client, "events", func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	waitIdle(t, first)

	release := make(chan struct{})
	var calls counter
	second, err := New(env.client, "mcp-servers", gatedFetch(&calls, 2, release, 1))
	require.NoError(t, err)

	res := second.Result()
	assert.False(t, res.Loading, "gate is open, so no blocking loading state")
	assert.Equal(t, StateFetching, res.State)
	close(release)
	waitIdle(t, second)
}

// Two sessions on one key keep their own results; the cache holds the
// last write.
func TestQuery_ConcurrentSessions(t *testing.T) {
	env := newTestEnv(t, nil)
	release1 := make(chan struct{})
	release2 := make(chan struct{})
	var c1, c2 counter

	q1, err := New(env.client, agentsKey, gatedFetch(&c1, "one", release1, 1))
	require.NoError(t, err)
	q2, err := New(env.client, agentsKey, gatedFetch(&c2, "two", release2, 1))
	require.NoError(t, err)

	close(release2)
	waitIdle(t, q2)
	close(release1)
	waitIdle(t, q1)

	assert.Equal(t, "one", q1.Result().Data)
	assert.Equal(t, "two", q2.Result().Data)
	e, ok := env.client.Store().Get(agentsKey)
	require.True(t, ok)
	assert.Equal(t, "one", e.Value)
}

func TestClient_Invalidate(t *testing.T) {
	env := newTestEnv(t, nil)
	var calls counter
	q, err := New(env.client, "comments-agent-1", func(context.Context) (int, error) { return calls.inc(), nil })
	require.NoError(t, err)
	waitIdle(t, q)

	assert.True(t, env.client.Invalidate("comments-agent-1"))
	res := q.Result()
	assert.True(t, res.HasData, "invalidated data keeps being served")
	res = waitIdle(t, q)
	assert.Equal(t, 2, calls.get())
	assert.Equal(t, 2, res.Data)
	assert.False(t, res.IsStale)

	assert.Equal(t, 1, env.client.InvalidatePrefix("comments-"))
	res = waitIdle(t, q)
	assert.Equal(t, 3, res.Data)

	assert.False(t, env.client.Invalidate("missing"))
}

func TestClient_NotifyVisible(t *testing.T) {
	env := newTestEnv(t, nil)
	var calls counter
	q, err := New(env.client, agentsKey, func(context.Context) (int, error) { return calls.inc(), nil })
	require.NoError(t, err)
	waitIdle(t, q)

	env.client.NotifyVisible()
	waitIdle(t, q)
	assert.Equal(t, 1, calls.get(), "fresh data is not refetched")

	env.clock.Advance(31 * time.Second)
	env.client.NotifyVisible()
	waitIdle(t, q)
	assert.Equal(t, 2, calls.get())
}

func TestQuery_WithoutCache(t *testing.T) {
	env := newTestEnv(t, nil)
	var calls counter
	var delays []time.Duration
	var mu sync.Mutex
	fetch := func(context.Context) (int, error) {
		if calls.inc() < 3 {
			return 0, errors.New("flaky")
		}
		return 1, nil
	}

	q, err := New(env.client, "events-upcoming", fetch, WithoutCache(), WithBackoff(func(base time.Duration, attempt int) time.Duration {
		d := retry.Linear(base, attempt)
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
		return d
	}))
	require.NoError(t, err)
	res := waitIdle(t, q)

	assert.Equal(t, 1, res.Data)
	assert.Equal(t, 0, env.client.Store().Len(), "uncached queries never write")
	mu.Lock()
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, delays)
	mu.Unlock()
}

func TestQuery_PanicIsFailedAttempt(t *testing.T) {
	env := newTestEnv(t, &Config{Retries: 1, RetryDelay: time.Millisecond})
	q, err := New(env.client, agentsKey, func(context.Context) (int, error) {
		panic("bad row")
	})
	require.NoError(t, err)

	res := waitIdle(t, q)
	assert.Equal(t, StateFailed, res.State)
	assert.ErrorIs(t, res.Err, routine.ErrPanicRecovered)
}

func TestQuery_TypeMismatchIsMiss(t *testing.T) {
	env := newTestEnv(t, nil)
	env.client.Store().Put(agentsKey, "not an int", time.Minute)

	q, err := New(env.client, agentsKey, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	res := waitIdle(t, q)
	assert.Equal(t, 42, res.Data)
	assert.Len(t, env.logs.FilterMessage("cached value has unexpected type, refetching").All(), 1)
}

func TestQuery_StaleTimeClamped(t *testing.T) {
	env := newTestEnv(t, nil)
	q, err := New(env.client, agentsKey, func(context.Context) (int, error) { return 1, nil },
		WithStaleTime(time.Hour), WithCacheTime(time.Minute))
	require.NoError(t, err)
	waitIdle(t, q)

	assert.Len(t, env.logs.FilterMessage("stale time exceeds cache time, clamping").All(), 1)
	e, ok := env.client.Store().Get(agentsKey)
	require.True(t, ok)
	assert.Equal(t, time.Minute, e.StaleAfter)
	assert.Equal(t, time.Minute, e.CacheTime)
}

func TestQuery_Subscribe(t *testing.T) {
	env := newTestEnv(t, nil)
	var mu sync.Mutex
	var seen []Result[int]

	q, err := New(env.client, agentsKey, func(context.Context) (int, error) { return 3, nil }, WithEnabled(false))
	require.NoError(t, err)
	unsubscribe := q.Subscribe(func(r Result[int]) {
		mu.Lock()
		seen = append(seen, r)
		mu.Unlock()
	})

	q.Rebind(agentsKey, nil, "x")
	waitIdle(t, q)
	mu.Lock()
	assert.Empty(t, seen, "disabled queries publish nothing")
	mu.Unlock()
	unsubscribe()

	q2, err := New(env.client, "events", func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	var last Result[int]
	done := make(chan struct{})
	var once sync.Once
	q2.Subscribe(func(r Result[int]) {
		mu.Lock()
		if r.Version > last.Version {
			last = r
		}
		mu.Unlock()
		if r.State == StateSuccess {
			once.Do(func() { close(done) })
		}
	})
	q2.Refetch()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("no success published")
	}
	mu.Lock()
	assert.Equal(t, 3, last.Data)
	mu.Unlock()
}

func TestClient_CloseCancelsRequests(t *testing.T) {
	env := newTestEnv(t, nil)
	q, err := New(env.client, agentsKey, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.NoError(t, err)
	require.NoError(t, env.client.Start())
	assert.Equal(t, 1, env.client.Stats().Queries)

	env.client.Close()
	res := q.Result()
	assert.Equal(t, StateCancelled, res.State)
	assert.NoError(t, res.Err, "cancellation is not an error")
	assert.Equal(t, 0, env.client.Stats().Running)

	_, err = New(env.client, "k", func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrClientClosed)
	assert.ErrorIs(t, env.client.Start(), ErrClientClosed)
}

func TestClient_ClearAndStats(t *testing.T) {
	env := newTestEnv(t, nil)
	env.client.Store().Put("a", 1, time.Minute)
	env.client.Store().Put("b", 2, time.Minute)

	assert.True(t, env.client.Clear("a"))
	assert.Equal(t, 1, env.client.Stats().Entries)
	assert.Equal(t, 1, env.client.ClearAll())

	q, err := New(env.client, "c", func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	waitIdle(t, q)
	q.Close()
	assert.Equal(t, 0, env.client.Stats().Queries)
}

func TestClient_SharedStoreAndGate(t *testing.T) {
	store, err := cache.NewStore(nil)
	require.NoError(t, err)
	env := newTestEnv(t, nil)
	other, err := NewClient(nil, nil, WithStore(store), WithGate(env.client.Gate()))
	require.NoError(t, err)
	defer other.Close()

	assert.Same(t, store, other.Store())
	assert.Same(t, env.client.Gate(), other.Gate())
}
