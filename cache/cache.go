// Package cache is the process-wide query result store.
//
// A Store maps composite query keys to the last successfully fetched value.
// Entries carry two thresholds: StaleAfter (served but due for a background
// refresh) and CacheTime (no longer served, removed by the sweep). Entries are
// never deleted because a fetch failed; stale data outlives failed refreshes.
//
// Values are opaque. For reference types (slice, map, pointer) Get returns
// the stored reference, and callers must treat it as read-only.
package cache

import (
	"time"
)

// Clock provides the current time. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Freshness classifies a cached entry at a point in time.
type Freshness int

const (
	// Fresh entries are served without fetching.
	Fresh Freshness = iota
	// Stale entries are served and refreshed in the background.
	Stale
	// Expired entries are treated as a miss.
	Expired
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "expired"
	}
}

// Entry is one cached query result. The Store owns entries; Get hands out
// copies.
type Entry struct {
	Key       string
	Value     any
	WrittenAt time.Time
	// StaleAfter is the soft threshold supplied by the writer.
	StaleAfter time.Duration
	// CacheTime is the hard threshold used by SweepExpired; zero means the
	// store default.
	CacheTime time.Duration
	// Scoped marks entries that belong to the current identity and are
	// dropped by ClearScoped.
	Scoped bool
	// Invalidated entries are stale regardless of age.
	Invalidated bool
}

// Age returns how long ago the entry was written.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.WrittenAt)
}

// Freshness classifies e for a reader whose hard threshold is cacheTime.
// An age exactly equal to a threshold is still inside it.
func (e Entry) Freshness(now time.Time, cacheTime time.Duration) Freshness {
	age := e.Age(now)
	switch {
	case age > cacheTime:
		return Expired
	case e.Invalidated || age > e.StaleAfter:
		return Stale
	default:
		return Fresh
	}
}

// PutOption customizes an entry at write time.
type PutOption func(*Entry)

// WithCacheTime records the writer's hard threshold on the entry.
func WithCacheTime(d time.Duration) PutOption {
	return func(e *Entry) {
		e.CacheTime = d
	}
}

// Scoped marks the entry as identity-scoped.
func Scoped() PutOption {
	return func(e *Entry) {
		e.Scoped = true
	}
}

// Store is the key to entry map shared by every query of a client.
// All methods are safe for concurrent use and each one is atomic.
type Store interface {
	// Get returns a copy of the entry for key.
	Get(key string) (Entry, bool)
	// Put writes or overwrites key unconditionally with WrittenAt = now.
	Put(key string, value any, staleAfter time.Duration, opts ...PutOption) Entry
	// Invalidate marks key stale without deleting its value, so the next read
	// serves it and refreshes in the background. Reports whether key existed.
	Invalidate(key string) bool
	// InvalidatePrefix invalidates every key starting with prefix.
	InvalidatePrefix(prefix string) int
	// Clear deletes key.
	Clear(key string) bool
	// ClearAll deletes every entry.
	ClearAll() int
	// ClearScoped deletes every identity-scoped entry.
	ClearScoped() int
	// Sweep deletes entries older than ttl.
	Sweep(ttl time.Duration) int
	// SweepExpired deletes entries older than their own CacheTime, or the
	// store default when they have none.
	SweepExpired() int
	// Len returns the number of entries.
	Len() int
	// Keys returns the current keys in unspecified order.
	Keys() []string
}
