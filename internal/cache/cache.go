// Package cache provides a get-or-fetch cache for provider responses.
//
// The cache is purely a performance concern: a nil *Cache, an empty store or
// a failing store all fall back to calling the fetch function.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Store persists cached payloads with a time-to-live.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, payload []byte, ttl time.Duration) error
	Close() error
}

// FetchFunc produces the payload for a cache miss.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Cache wraps a Store with TTL handling and deduplication of concurrent misses.
type Cache struct {
	store  Store
	ttl    time.Duration
	flight singleflight.Group

	hits   int64
	misses int64
}

// New creates a cache over store. Entries live for ttl.
func New(store Store, ttl time.Duration) *Cache {
	return &Cache{store: store, ttl: ttl}
}

// GetOrFetch returns the cached payload for key or calls fetch and stores
// its result. Concurrent misses for the same key share one fetch.
// Fetch errors are never cached.
//
// The shared fetch runs on ctx stripped of its cancellation, so it must bound
// itself. A caller whose ctx ends stops waiting with ctx.Err() while the fetch
// carries on for the remaining waiters.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch FetchFunc) ([]byte, error) {
	if c == nil || c.store == nil {
		return fetch(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, ok, err := c.store.Get(key)
	if err != nil {
		logrus.WithField("key", key).Warnf("Cache read failed: %v", err)
	}
	if ok {
		atomic.AddInt64(&c.hits, 1)
		return payload, nil
	}
	atomic.AddInt64(&c.misses, 1)

	shared := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (interface{}, error) {
		payload, err := fetch(shared)
		if err != nil {
			return nil, err
		}
		if err := c.store.Put(key, payload, c.ttl); err != nil {
			logrus.WithField("key", key).Warnf("Cache write failed: %v", err)
		}
		return payload, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Stats returns the number of hits and misses so far
func (c *Cache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Close releases the underlying store
func (c *Cache) Close() error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.Close()
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the payload under key if it has not expired
func (m *MemoryStore) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if !m.now().Before(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false, nil
	}
	return e.payload, true, nil
}

// Put stores payload under key for ttl
func (m *MemoryStore) Put(key string, payload []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{payload: payload, expiresAt: m.now().Add(ttl)}
	return nil
}

// Len returns the number of entries, expired ones included
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close drops every entry
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry)
	return nil
}
