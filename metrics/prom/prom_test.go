package prom

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dailyyoga/datakit/cache"
	"github.com/dailyyoga/datakit/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAdapter(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg, "datakit", "query", prometheus.Labels{"app": "test"})

	a.CacheHit(cache.Fresh)
	a.CacheHit(cache.Stale)
	a.CacheHit(cache.Stale)
	a.CacheMiss()
	a.Fetch(query.ModeForeground)
	a.Retry(query.ModeBackground)
	a.Failure(query.ModePrefetch)
	a.Cancelled()
	a.LoadingTimeout()

	if got := testutil.ToFloat64(a.hits.WithLabelValues("stale")); got != 2 {
		t.Errorf("stale hits: got %v", got)
	}
	if got := testutil.ToFloat64(a.misses); got != 1 {
		t.Errorf("misses: got %v", got)
	}
	if got := testutil.ToFloat64(a.fetches.WithLabelValues("foreground")); got != 1 {
		t.Errorf("foreground fetches: got %v", got)
	}
	if got := testutil.ToFloat64(a.loadingTimeouts); got != 1 {
		t.Errorf("loading timeouts: got %v", got)
	}
	if n := testutil.CollectAndCount(reg); n != 8 {
		t.Errorf("expected 8 series, got %d", n)
	}
}

func TestAdapter_WithClient(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg, "", "", nil)
	c, err := query.NewClient(nil, &query.Config{Retries: 1, RetryDelay: time.Millisecond}, query.WithMetrics(a))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	q, err := query.New(c, "events", func(context.Context) (int, error) {
		return 0, errors.New("down")
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if got := testutil.ToFloat64(a.misses); got != 1 {
		t.Errorf("misses: got %v", got)
	}
	if got := testutil.ToFloat64(a.retries.WithLabelValues("foreground")); got != 1 {
		t.Errorf("retries: got %v", got)
	}
	if got := testutil.ToFloat64(a.failures.WithLabelValues("foreground")); got != 1 {
		t.Errorf("failures: got %v", got)
	}
}
