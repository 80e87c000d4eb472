package db

import (
	"errors"
	"fmt"
)

// ErrConnectionNotEstablished is returned by a Database wrapping a nil handle.
var ErrConnectionNotEstablished = errors.New("db: database connection not established")

// ErrInvalidConfig invalid config
func ErrInvalidConfig(msg string) error {
	return fmt.Errorf("db: invalid config: %s", msg)
}

// ErrConnection database connection error
func ErrConnection(err error) error {
	return fmt.Errorf("db: connection failed: %w", err)
}

// ErrUnreachable is returned when the initial ping never succeeds.
func ErrUnreachable(addr string, err error) error {
	return fmt.Errorf("db: %s unreachable: %w", addr, err)
}
