package cron

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/dailyyoga/datakit/logger"
	"go.uber.org/zap"
)

// Middleware wraps a Task with additional behavior
type Middleware func(Task) Task

// applyMiddlewares wraps t so that mws[0] is outermost.
func applyMiddlewares(t Task, mws ...Middleware) Task {
	for i := len(mws) - 1; i >= 0; i-- {
		t = mws[i](t)
	}
	return t
}

// recoveryMiddleware converts a task panic into an error.
func recoveryMiddleware(log logger.Logger) Middleware {
	return func(next Task) Task {
		return TaskFunc{
			TaskName: next.Name(),
			Fn: func(ctx context.Context) (err error) {
				defer func() {
					if r := recover(); r != nil {
						log.Error("task panicked",
							zap.String("task", next.Name()),
							zap.Any("panic", r),
							zap.String("stack", string(debug.Stack())),
						)
						err = fmt.Errorf("panic recovered: %v", r)
					}
				}()
				return next.Run(ctx)
			},
		}
	}
}

// loggingMiddleware logs task duration at debug level and failures at error.
func loggingMiddleware(log logger.Logger) Middleware {
	return func(next Task) Task {
		return TaskFunc{
			TaskName: next.Name(),
			Fn: func(ctx context.Context) error {
				start := time.Now()
				err := next.Run(ctx)
				duration := time.Since(start)
				if err != nil {
					log.Error("task failed",
						zap.String("task", next.Name()),
						zap.Duration("duration", duration),
						zap.Error(err),
					)
					return err
				}
				log.Debug("task completed",
					zap.String("task", next.Name()),
					zap.Duration("duration", duration),
				)
				return nil
			},
		}
	}
}

// TimeoutMiddleware bounds each task run to d.
func TimeoutMiddleware(d time.Duration) Middleware {
	return func(next Task) Task {
		return TaskFunc{
			TaskName: next.Name(),
			Fn: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, d)
				defer cancel()
				err := next.Run(ctx)
				if err != nil && errors.Is(err, context.DeadlineExceeded) {
					return ErrTaskTimeout(next.Name(), err)
				}
				return err
			},
		}
	}
}
