package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value   string
	expires time.Time
}

// Memory is a process-local Cache. Expired keys are dropped on read.
type Memory struct {
	mu     sync.Mutex
	items  map[string]entry
	closed bool
	now    func() time.Time
	ttl    time.Duration
}

func NewMemory(opts Options) *Memory {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultOptions().DefaultTTL
	}
	return &Memory{items: map[string]entry{}, now: time.Now, ttl: opts.DefaultTTL}
}

func (m *Memory) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.ttl
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.items[key] = entry{value: value, expires: m.now().Add(ttl)}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrClosed
	}
	e, ok := m.items[key]
	if !ok {
		return "", ErrNotFound
	}
	if !m.now().Before(e.expires) {
		delete(m.items, key)
		return "", ErrNotFound
	}
	return e.value, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.items = nil
	return nil
}
