// Package cron schedules named chains of tasks on cron specs.
//
// datakit uses it to run periodic cache maintenance; any Task can be
// registered. Specs use the six-field format with a leading seconds column.
package cron

import (
	"context"

	"github.com/dailyyoga/datakit/logger"
)

// Task is one unit of scheduled work.
type Task interface {
	// Name returns the unique identifier for this task
	Name() string
	// Run executes the task. ctx is cancelled when the scheduler closes.
	Run(ctx context.Context) error
}

// TaskFunc adapts a function into a Task.
type TaskFunc struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

func (t TaskFunc) Name() string                  { return t.TaskName }
func (t TaskFunc) Run(ctx context.Context) error { return t.Fn(ctx) }

// Chain represents a chain of tasks that execute sequentially
type Chain struct {
	Name  string
	Spec  string
	Tasks []Task
}

// Cron manages scheduled chains.
type Cron interface {
	// Start begins the cron scheduler
	Start()
	// Close stops the scheduler, cancels running tasks and waits for them
	Close()
	// AddTasks schedules tasks to run sequentially on spec; a failing task
	// aborts the rest of the chain for that tick
	AddTasks(name string, spec string, tasks ...Task) error
	// AddChain is alias for AddTasks
	AddChain(chain Chain) error
	// Len returns the number of scheduled chains
	Len() int
}

// NewCron creates a cron manager. Recovery and logging middleware always wrap
// each task; mws are applied inside them, in order.
func NewCron(log logger.Logger, mws ...Middleware) Cron {
	log = logger.OrNop(log)
	defaultMws := []Middleware{
		recoveryMiddleware(log),
		loggingMiddleware(log),
	}
	return newCronManager(log, append(defaultMws, mws...)...)
}
