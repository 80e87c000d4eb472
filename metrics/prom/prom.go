// Package prom exports query metrics to Prometheus.
package prom

import (
	"github.com/dailyyoga/datakit/cache"
	"github.com/dailyyoga/datakit/query"
	"github.com/prometheus/client_golang/prometheus"
)

// Adapter implements query.Metrics with Prometheus counters.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits            *prometheus.CounterVec
	misses          prometheus.Counter
	fetches         *prometheus.CounterVec
	retries         *prometheus.CounterVec
	failures        *prometheus.CounterVec
	cancellations   prometheus.Counter
	loadingTimeouts prometheus.Counter
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	opts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		}
	}

	a := &Adapter{
		hits:            prometheus.NewCounterVec(opts("cache_hits_total", "Cache hits by freshness"), []string{"freshness"}),
		misses:          prometheus.NewCounter(opts("cache_misses_total", "Cache misses and expired reads")),
		fetches:         prometheus.NewCounterVec(opts("fetches_total", "Fetch requests started by mode"), []string{"mode"}),
		retries:         prometheus.NewCounterVec(opts("fetch_retries_total", "Fetch retries by mode"), []string{"mode"}),
		failures:        prometheus.NewCounterVec(opts("fetch_failures_total", "Requests that failed after all retries by mode"), []string{"mode"}),
		cancellations:   prometheus.NewCounter(opts("fetch_cancellations_total", "In-flight requests cancelled before completion")),
		loadingTimeouts: prometheus.NewCounter(opts("loading_timeouts_total", "Blocking loading states cleared by timeout")),
	}
	reg.MustRegister(a.hits, a.misses, a.fetches, a.retries, a.failures, a.cancellations, a.loadingTimeouts)
	return a
}

// CacheHit increments the hit counter for the entry's freshness.
func (a *Adapter) CacheHit(f cache.Freshness) { a.hits.WithLabelValues(f.String()).Inc() }

// CacheMiss increments the miss counter.
func (a *Adapter) CacheMiss() { a.misses.Inc() }

func (a *Adapter) Fetch(mode query.Mode)   { a.fetches.WithLabelValues(string(mode)).Inc() }
func (a *Adapter) Retry(mode query.Mode)   { a.retries.WithLabelValues(string(mode)).Inc() }
func (a *Adapter) Failure(mode query.Mode) { a.failures.WithLabelValues(string(mode)).Inc() }
func (a *Adapter) Cancelled()              { a.cancellations.Inc() }
func (a *Adapter) LoadingTimeout()         { a.loadingTimeouts.Inc() }

// Compile-time check: ensure Adapter implements query.Metrics.
var _ query.Metrics = (*Adapter)(nil)
