// Package cooldown enforces a minimum interval between repeated actions of the same key.
package cooldown

import (
	"context"
	"sync"
	"time"

	"github.com/eduresolve/support-platform/internal/lifecycle"
)

// DefaultWindow is the suggestion cooldown.
const DefaultWindow = 60 * time.Second

// Limiter admits at most one action per key per window.
type Limiter interface {
	// Acquire starts a new window for key, or returns a *lifecycle.CooldownError
	// carrying the remaining wait if one is still running.
	Acquire(ctx context.Context, key string) error
}

// Memory is an in-process Limiter.
type Memory struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

// NewMemory creates an in-process limiter.
func NewMemory(window time.Duration) *Memory {
	return NewMemoryWithClock(window, time.Now)
}

// NewMemoryWithClock creates an in-process limiter reading time from now.
func NewMemoryWithClock(window time.Duration, now func() time.Time) *Memory {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Memory{
		window: window,
		now:    now,
		last:   make(map[string]time.Time),
	}
}

// Acquire implements Limiter.
func (m *Memory) Acquire(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if last, ok := m.last[key]; ok {
		if elapsed := now.Sub(last); elapsed < m.window {
			return &lifecycle.CooldownError{RetryAfter: m.window - elapsed}
		}
	}
	m.last[key] = now

	// Drop expired entries so the map does not grow with every session ever seen.
	if len(m.last) > 1024 {
		for k, t := range m.last {
			if now.Sub(t) >= m.window {
				delete(m.last, k)
			}
		}
	}
	return nil
}

// Remaining reports how long key must still wait. Zero means Acquire would succeed.
func (m *Memory) Remaining(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	last, ok := m.last[key]
	if !ok {
		return 0
	}
	if elapsed := m.now().Sub(last); elapsed < m.window {
		return m.window - elapsed
	}
	return 0
}

// Release forgets the last acquisition of key so the next Acquire succeeds.
func (m *Memory) Release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.last, key)
}
