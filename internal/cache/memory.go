package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	val []byte
	exp time.Time
}

type MemoryStore struct {
	mu  sync.Mutex
	now func() time.Time
	m   map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now, m: make(map[string]memoryEntry)}
}

func (c *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ent, ok := c.m[key]
	if !ok {
		return nil, ErrMiss
	}
	if !ent.exp.IsZero() && c.now().After(ent.exp) {
		delete(c.m, key)
		return nil, ErrMiss
	}
	return ent.val, nil
}

// Set stores val; a ttl <= 0 never expires.
func (c *MemoryStore) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ent := memoryEntry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		ent.exp = c.now().Add(ttl)
	}
	c.m[key] = ent
	return nil
}

func (c *MemoryStore) Close() error { return nil }
