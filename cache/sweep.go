package cache

import (
	"context"

	"github.com/dailyyoga/datakit/cron"
)

// NewSweepTask returns a cron task that removes expired entries from s.
// onSwept, when non-nil, receives the number of removed entries.
func NewSweepTask(s Store, onSwept func(removed int)) cron.Task {
	return cron.TaskFunc{
		TaskName: "sweep",
		Fn: func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n := s.SweepExpired()
			if onSwept != nil {
				onSwept(n)
			}
			return nil
		},
	}
}
