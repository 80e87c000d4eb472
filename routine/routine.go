// Package routine runs goroutines with panic recovery.
//
// Fetch functions are caller-supplied code; a panic inside one must fail the
// request, not the process.
package routine

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/dailyyoga/datakit/logger"
	"go.uber.org/zap"
)

// Runner provides safe goroutine execution with panic recovery
type Runner interface {
	// Go executes a function in a new goroutine with panic recovery
	Go(fn func())

	// GoNamed executes a named function in a new goroutine with panic recovery.
	// The name is used for logging purposes
	GoNamed(name string, fn func())

	// GoNamedWithContext executes a named function with context in a new goroutine
	GoNamedWithContext(ctx context.Context, name string, fn func(ctx context.Context))

	// Running reports how many goroutines started by this runner have not returned
	Running() int

	// Wait waits for all goroutines started by this runner to complete
	Wait()
}

type defaultRunner struct {
	log     logger.Logger
	wg      sync.WaitGroup
	running atomic.Int64
}

// New creates a new Runner with the given logger
func New(log logger.Logger) Runner {
	return &defaultRunner{log: logger.OrNop(log)}
}

func (r *defaultRunner) Go(fn func()) {
	r.GoNamed("", fn)
}

func (r *defaultRunner) GoNamed(name string, fn func()) {
	r.start()
	go func() {
		defer r.done()
		defer recoverWithLog(r.log, name)
		fn()
	}()
}

func (r *defaultRunner) GoNamedWithContext(ctx context.Context, name string, fn func(ctx context.Context)) {
	r.start()
	go func() {
		defer r.done()
		defer recoverWithLog(r.log, name)
		fn(ctx)
	}()
}

func (r *defaultRunner) Running() int {
	return int(r.running.Load())
}

func (r *defaultRunner) Wait() {
	r.wg.Wait()
}

func (r *defaultRunner) start() {
	r.wg.Add(1)
	r.running.Add(1)
}

func (r *defaultRunner) done() {
	r.running.Add(-1)
	r.wg.Done()
}

// GoNamed is a convenience function that executes a named function in a new
// goroutine with panic recovery, without tracking it.
func GoNamed(log logger.Logger, name string, fn func()) {
	go func() {
		defer recoverWithLog(logger.OrNop(log), name)
		fn()
	}()
}

// Safe calls fn and converts a panic into an ErrPanic error. The panic and its
// stack are logged under name.
func Safe(log logger.Logger, name string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logPanic(logger.OrNop(log), name, rec)
			err = ErrPanic(rec)
		}
	}()
	return fn()
}

func recoverWithLog(log logger.Logger, name string) {
	if rec := recover(); rec != nil {
		logPanic(log, name, rec)
	}
}

func logPanic(log logger.Logger, name string, rec any) {
	fields := []zap.Field{
		zap.Any("panic", rec),
		zap.String("stack", string(debug.Stack())),
	}
	if name != "" {
		fields = append([]zap.Field{zap.String("routine", name)}, fields...)
	}
	log.Error("goroutine panicked", fields...)
}
