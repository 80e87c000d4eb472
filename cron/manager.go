package cron

import (
	"context"
	"fmt"
	"sync"

	"github.com/dailyyoga/datakit/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type chainJob struct {
	ctx    context.Context
	name   string
	tasks  []Task
	logger logger.Logger
}

// Run executes the chain's tasks in order and stops at the first failure.
func (j *chainJob) Run() {
	if j.ctx.Err() != nil {
		return
	}
	for _, task := range j.tasks {
		if err := task.Run(j.ctx); err != nil {
			j.logger.Warn("chain aborted",
				zap.String("chain_name", j.name),
				zap.String("task_name", task.Name()),
				zap.Error(err),
			)
			return
		}
	}
}

type cronManager struct {
	cron        *cron.Cron
	middlewares []Middleware
	logger      logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	chains int
	closed bool
}

func newCronManager(log logger.Logger, mws ...Middleware) *cronManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &cronManager{
		cron:        cron.New(cron.WithSeconds()),
		middlewares: mws,
		logger:      log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (m *cronManager) Start() {
	m.cron.Start()
}

func (m *cronManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	<-m.cron.Stop().Done()
}

// AddTasks schedules a chain. Example spec: "0 * * * * *" runs at second 0 of
// every minute.
func (m *cronManager) AddTasks(name, spec string, tasks ...Task) error {
	if len(tasks) == 0 {
		return ErrNoTasks
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrCronClosed
	}

	wrapped := make([]Task, len(tasks))
	for i, task := range tasks {
		named := TaskFunc{
			TaskName: fmt.Sprintf("%s:%s", name, task.Name()),
			Fn:       task.Run,
		}
		wrapped[i] = applyMiddlewares(named, m.middlewares...)
	}

	job := &chainJob{
		ctx:    m.ctx,
		name:   name,
		tasks:  wrapped,
		logger: m.logger,
	}
	if _, err := m.cron.AddJob(spec, job); err != nil {
		return ErrInvalidSpec(name, spec, err)
	}
	m.chains++

	m.logger.Info("chain added",
		zap.String("chain_name", name),
		zap.String("spec", spec),
		zap.Int("task_count", len(tasks)),
	)
	return nil
}

func (m *cronManager) AddChain(chain Chain) error {
	return m.AddTasks(chain.Name, chain.Spec, chain.Tasks...)
}

func (m *cronManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chains
}
