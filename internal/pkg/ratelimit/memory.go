package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/schoolhub/schoolhub/internal/pkg/clock"
)

type memoryCounter struct {
	count   int64
	resetAt time.Time
}

// MemoryStore implements CounterStore in process memory.
//
// Expired windows are pruned whenever a fresh window opens. Suitable for
// tests and single-instance deployments without Redis.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
	clock    clock.Clocker
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore(clk clock.Clocker) *MemoryStore {
	if clk == nil {
		clk = &clock.TimeClocker{}
	}

	return &MemoryStore{
		counters: make(map[string]*memoryCounter),
		clock:    clk,
	}
}

// Incr increments the counter for key and returns the new count and the time
// left until the window resets.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || !now.Before(c.resetAt) {
		s.prune(now)

		c = &memoryCounter{resetAt: now.Add(window)}
		s.counters[key] = c
	}

	c.count++

	return c.count, c.resetAt.Sub(now), nil
}

// prune drops counters whose window has already closed. Caller holds mu.
func (s *MemoryStore) prune(now time.Time) {
	for key, c := range s.counters {
		if !now.Before(c.resetAt) {
			delete(s.counters, key)
		}
	}
}
