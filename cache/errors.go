package cache

import (
	"fmt"
	"time"
)

// ErrInvalidCacheTime returns an error for a non-positive cache time
func ErrInvalidCacheTime(d time.Duration) error {
	return fmt.Errorf("cache: invalid default cache time: %v (must be > 0)", d)
}
