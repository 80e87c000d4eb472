package realtime

import (
	"errors"
	"fmt"
)

var (
	// ErrDispatcherClosed is returned by Publish after Close.
	ErrDispatcherClosed = errors.New("realtime: dispatcher closed")
	// ErrMissingTable is wrapped by ErrDecode for changes without a table.
	ErrMissingTable = errors.New("realtime: change has no table")
	// ErrNilInvalidator is returned by NewDispatcher without a target.
	ErrNilInvalidator = errors.New("realtime: nil invalidator")
)

// ErrDecode wraps a malformed change payload.
func ErrDecode(err error) error {
	return fmt.Errorf("realtime: decode change: %w", err)
}

// ErrInvalidConfig is returned by Config.Validate.
func ErrInvalidConfig(field string, value any) error {
	return fmt.Errorf("realtime: invalid config: %s=%v", field, value)
}
