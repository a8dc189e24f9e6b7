package ratelimit

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	count   int
	resetAt time.Time
}

// Memory is an in-process Store. Counts are not shared between instances.
type Memory struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	counters map[string]*counter

	stop chan struct{}
	once sync.Once
}

var _ Store = (*Memory)(nil)

// NewMemory starts a background sweeper that drops expired windows every
// window; call Close to stop it.
func NewMemory(limit int, window time.Duration) *Memory {
	m := &Memory{
		limit:    limit,
		window:   window,
		now:      time.Now,
		counters: make(map[string]*counter),
		stop:     make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.cleanup()
			case <-m.stop:
				return
			}
		}
	}()

	return m
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	c, ok := m.counters[key]
	if !ok || !now.Before(c.resetAt) {
		c = &counter{resetAt: now.Add(m.window)}
		m.counters[key] = c
	}
	c.count++
	return decide(c.count, m.limit, c.resetAt), nil
}

func (m *Memory) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, c := range m.counters {
		if !now.Before(c.resetAt) {
			delete(m.counters, key)
		}
	}
}

// Close stops the sweeper. Safe to call more than once.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.stop) })
}
