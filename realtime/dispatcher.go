package realtime

import (
	"context"
	"sync"

	"github.com/dailyyoga/datakit/logger"
	"github.com/dailyyoga/datakit/routine"
	"github.com/smallnest/chanx"
	"go.uber.org/zap"
)

// Invalidator is the cache surface a Dispatcher drives. *query.Client
// implements it.
type Invalidator interface {
	Invalidate(key string) bool
	InvalidatePrefix(prefix string) int
}

// Dispatcher applies changes to an Invalidator in arrival order.
type Dispatcher struct {
	cfg    *Config
	logger logger.Logger
	target Invalidator
	rules  map[string][]Rule
	runner routine.Runner

	ch *chanx.UnboundedChan[Change]

	// mu guards closed against sends on the closed input channel.
	mu      sync.RWMutex
	closed  bool
	started bool
}

// NewDispatcher creates a dispatcher for target. With no rules it uses
// DefaultRules.
func NewDispatcher(log logger.Logger, cfg *Config, target Invalidator, rules ...Rule) (*Dispatcher, error) {
	log = logger.OrNop(log)
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		merged := *cfg
		cfg = merged.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrNilInvalidator
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}

	byTable := make(map[string][]Rule, len(rules))
	for _, r := range rules {
		byTable[r.Table] = append(byTable[r.Table], r)
	}

	return &Dispatcher{
		cfg:    cfg,
		logger: log,
		target: target,
		rules:  byTable,
		runner: routine.New(log),
		ch:     chanx.NewUnboundedChan[Change](context.Background(), cfg.BufferSize),
	}, nil
}

// Start launches the apply loop. Changes published before Start are kept and
// applied once it runs. Calling Start twice is a no-op.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	d.runner.GoNamed(d.cfg.Name, d.loop)
	d.logger.Info("realtime dispatcher started",
		zap.String("name", d.cfg.Name),
		zap.Int("tables", len(d.rules)),
	)
}

// Publish queues c. It never blocks on the apply loop.
func (d *Dispatcher) Publish(c Change) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	d.ch.In <- c
	return nil
}

// Pending reports queued changes not yet applied.
func (d *Dispatcher) Pending() int {
	return d.ch.Len()
}

// Close stops accepting changes, drains the queue and waits for the apply
// loop. Changes still queued on a dispatcher that was never started are
// dropped.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	started := d.started
	close(d.ch.In)
	d.mu.Unlock()

	if !started {
		for range d.ch.Out {
		}
	}
	d.runner.Wait()
	d.logger.Info("realtime dispatcher closed", zap.String("name", d.cfg.Name))
}

func (d *Dispatcher) loop() {
	for c := range d.ch.Out {
		if err := routine.Safe(d.logger, d.cfg.Name, func() error {
			d.apply(c)
			return nil
		}); err != nil {
			d.logger.Error("realtime change dropped",
				zap.String("table", c.Table),
				zap.String("event", string(c.Event)),
				zap.Error(err),
			)
		}
	}
}

// apply runs every rule matching c.
func (d *Dispatcher) apply(c Change) {
	var keys, prefixes int
	for _, r := range d.rules[c.Table] {
		if !r.matches(c) {
			continue
		}
		var id string
		if r.Column != "" {
			v, ok := c.Value(r.Column)
			if !ok && r.needsID() {
				d.logger.Debug("realtime change missing rule column",
					zap.String("table", c.Table),
					zap.String("column", r.Column),
				)
				continue
			}
			id = v
		}

		ks, ps := r.expand(id)
		for _, k := range ks {
			d.target.Invalidate(k)
			keys++
		}
		for _, p := range ps {
			d.target.InvalidatePrefix(p)
			prefixes++
		}
	}

	d.logger.Debug("realtime change applied",
		zap.String("table", c.Table),
		zap.String("event", string(c.Event)),
		zap.Int("keys", keys),
		zap.Int("prefixes", prefixes),
	)
}
