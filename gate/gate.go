// Package gate provides the first-paint gate: a single process-wide flag
// that is set once any consumer has received data for the current identity.
//
// The gate is deliberately not keyed per resource. Once it is open, every
// consumer suppresses its blocking loading state, including consumers of
// unrelated resources. Reset closes the gate and starts a new epoch, so
// sessions can tell first data received before the reset from after it.
package gate

import "sync"

// Gate is safe for concurrent use. The zero value is closed at epoch 0.
type Gate struct {
	mu     sync.RWMutex
	opened bool
	epoch  uint64
}

// New returns a closed gate.
func New() *Gate {
	return &Gate{}
}

// Get reports whether any consumer has received first data in this epoch.
func (g *Gate) Get() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.opened
}

// Set opens or closes the gate without changing the epoch.
func (g *Gate) Set(opened bool) {
	g.mu.Lock()
	g.opened = opened
	g.mu.Unlock()
}

// Open sets the gate and returns the epoch it was opened in.
func (g *Gate) Open() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.opened = true
	return g.epoch
}

// Reset closes the gate and starts a new epoch, which it returns.
func (g *Gate) Reset() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.opened = false
	g.epoch++
	return g.epoch
}

// Epoch returns the current epoch.
func (g *Gate) Epoch() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.epoch
}

// State returns the flag and the epoch as one consistent read.
func (g *Gate) State() (opened bool, epoch uint64) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.opened, g.epoch
}
