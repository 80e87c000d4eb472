package logger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is matched by every configuration error from this package.
var ErrInvalidConfig = errors.New("logger: invalid config")

// ErrBuildLogger wraps a zap build failure.
func ErrBuildLogger(err error) error {
	return fmt.Errorf("logger: failed to build logger: %w", err)
}

// ErrInvalidLevel reports an unknown level name.
func ErrInvalidLevel(level string, err error) error {
	return fmt.Errorf("%w: level %q: %w", ErrInvalidConfig, level, err)
}

// ErrInvalidEncoding reports an encoding other than json or console.
func ErrInvalidEncoding(encoding string) error {
	return fmt.Errorf("%w: encoding %q, must be one of: %s", ErrInvalidConfig, encoding, strings.Join(validEncodings, ", "))
}
