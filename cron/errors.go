package cron

import "fmt"

var (
	// ErrNoTasks is returned when attempting to add a chain job with no tasks
	ErrNoTasks = fmt.Errorf("cron: no tasks provided")

	// ErrCronClosed is returned when attempting to operate on a closed cron manager
	ErrCronClosed = fmt.Errorf("cron: cron manager is closed")
)

// ErrInvalidSpec wraps a spec parse failure.
func ErrInvalidSpec(name, spec string, err error) error {
	return fmt.Errorf("cron: invalid spec %q for chain %s: %w", spec, name, err)
}

// ErrTaskTimeout reports a task that exceeded its timeout.
func ErrTaskTimeout(task string, err error) error {
	return fmt.Errorf("cron: task %s timed out: %w", task, err)
}
