package query

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrClientClosed is returned when creating queries on a closed client
	ErrClientClosed = errors.New("query: client closed")
	// ErrEmptyKey is returned for a query without a cache key
	ErrEmptyKey = errors.New("query: empty key")
	// ErrNilFetch is returned for a query without a fetch function
	ErrNilFetch = errors.New("query: nil fetch function")
)

// ErrInvalidConfig returns an error for an out-of-range config field
func ErrInvalidConfig(field string, value any) error {
	return fmt.Errorf("query: invalid %s: %v", field, value)
}

// ErrStaleExceedsCache returns an error for a stale time longer than the cache time
func ErrStaleExceedsCache(stale, cacheTime time.Duration) error {
	return fmt.Errorf("query: stale time %v exceeds cache time %v", stale, cacheTime)
}

// ErrStartCron returns an error when the sweep cannot be scheduled
func ErrStartCron(err error) error {
	return fmt.Errorf("query: failed to schedule cache sweep: %w", err)
}
