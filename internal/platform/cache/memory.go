package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	val       []byte
	expiresAt time.Time
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory returns an in-process cache. Expired entries are evicted lazily on read.
func NewMemory() Cache {
	return NewMemoryWithClock(time.Now)
}

func NewMemoryWithClock(now func() time.Time) Cache {
	if now == nil {
		now = time.Now
	}
	return &memoryCache{entries: map[string]memoryEntry{}, now: now}
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false, ErrKeyRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	out := make([]byte, len(e.val))
	copy(out, e.val)
	return out, true, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrKeyRequired
	}
	e := memoryEntry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, strings.TrimSpace(key))
	m.mu.Unlock()
	return nil
}
