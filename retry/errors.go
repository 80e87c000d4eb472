package retry

import (
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is wrapped by the error Do returns after the last retry fails.
var ErrExhausted = errors.New("retry: attempts exhausted")

// ErrAttemptsExhausted returns an error for an operation that failed attempts times
func ErrAttemptsExhausted(attempts int, err error) error {
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, err)
}

// ErrInvalidRetries returns an error for a negative retry count
func ErrInvalidRetries(n int) error {
	return fmt.Errorf("retry: invalid max retries: %d (must be >= 0)", n)
}

// ErrInvalidDelay returns an error for a negative base delay
func ErrInvalidDelay(d time.Duration) error {
	return fmt.Errorf("retry: invalid base delay: %v (must be >= 0)", d)
}
