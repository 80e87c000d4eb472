package query

import "github.com/dailyyoga/datakit/cache"

// Mode tells why a fetch was started.
type Mode string

const (
	// ModeForeground fetches run on a miss or refetch and may block.
	ModeForeground Mode = "foreground"
	// ModeBackground fetches refresh stale data that is already served.
	ModeBackground Mode = "background"
	// ModePrefetch fetches warm the cache without a query.
	ModePrefetch Mode = "prefetch"
)

// Metrics receives query events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	CacheHit(freshness cache.Freshness)
	CacheMiss()
	Fetch(mode Mode)
	Retry(mode Mode)
	Failure(mode Mode)
	Cancelled()
	LoadingTimeout()
}

// NoopMetrics discards all events.
type NoopMetrics struct{}

func (NoopMetrics) CacheHit(cache.Freshness) {}
func (NoopMetrics) CacheMiss()               {}
func (NoopMetrics) Fetch(Mode)               {}
func (NoopMetrics) Retry(Mode)               {}
func (NoopMetrics) Failure(Mode)             {}
func (NoopMetrics) Cancelled()               {}
func (NoopMetrics) LoadingTimeout()          {}
