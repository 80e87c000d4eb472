package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/dailyyoga/datakit/logger"
	"go.uber.org/zap"
)

// Option configures a Store.
type Option func(*memoryStore)

// WithClock sets the time source used for WrittenAt and sweeps.
func WithClock(clk Clock) Option {
	return func(s *memoryStore) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(s *memoryStore) {
		s.logger = logger.OrNop(log)
	}
}

type memoryStore struct {
	name             string
	defaultCacheTime time.Duration
	clock            Clock
	logger           logger.Logger

	mu      sync.RWMutex
	entries map[string]Entry
}

// NewStore creates an in-memory Store. A nil cfg uses DefaultConfig.
func NewStore(cfg *Config, opts ...Option) (Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &memoryStore{
		name:             cfg.Name,
		defaultCacheTime: cfg.DefaultCacheTime,
		clock:            realClock{},
		logger:           logger.NewNop(),
		entries:          make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *memoryStore) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

func (s *memoryStore) Put(key string, value any, staleAfter time.Duration, opts ...PutOption) Entry {
	e := Entry{
		Key:        key,
		Value:      value,
		WrittenAt:  s.clock.Now(),
		StaleAfter: staleAfter,
	}
	for _, opt := range opts {
		opt(&e)
	}

	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return e
}

func (s *memoryStore) Invalidate(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	e.Invalidated = true
	s.entries[key] = e
	return true
}

func (s *memoryStore) InvalidatePrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.entries {
		if strings.HasPrefix(k, prefix) {
			e.Invalidated = true
			s.entries[k] = e
			n++
		}
	}
	return n
}

func (s *memoryStore) Clear(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

func (s *memoryStore) ClearAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	clear(s.entries)
	return n
}

func (s *memoryStore) ClearScoped() int {
	return s.deleteWhere(func(e Entry, _ time.Time) bool { return e.Scoped })
}

func (s *memoryStore) Sweep(ttl time.Duration) int {
	return s.deleteWhere(func(e Entry, now time.Time) bool { return e.Age(now) > ttl })
}

func (s *memoryStore) SweepExpired() int {
	return s.deleteWhere(func(e Entry, now time.Time) bool {
		ttl := e.CacheTime
		if ttl <= 0 {
			ttl = s.defaultCacheTime
		}
		return e.Age(now) > ttl
	})
}

func (s *memoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *memoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys
}

func (s *memoryStore) deleteWhere(match func(Entry, time.Time) bool) int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, e := range s.entries {
		if match(e, now) {
			delete(s.entries, k)
			n++
		}
	}
	if n > 0 {
		s.logger.Debug("cache entries removed",
			zap.String("cache", s.name),
			zap.Int("removed", n),
			zap.Int("remaining", len(s.entries)),
		)
	}
	return n
}
