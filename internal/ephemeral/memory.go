package ephemeral

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process Store backed by go-cache. Suitable for a
// single instance and for tests.
type MemoryStore struct {
	prefix string
	c      *gocache.Cache
}

// NewMemoryStore creates a store that janitors expired items every minute.
func NewMemoryStore(prefix string) *MemoryStore {
	return &MemoryStore{prefix: prefix, c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(prefixed(m.prefix, key), value, ttl)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(prefixed(m.prefix, key))
	if !ok {
		return "", ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.c.Delete(prefixed(m.prefix, key))
	return nil
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.c.Get(prefixed(m.prefix, key))
	return ok, nil
}

// Len returns the number of live items.
func (m *MemoryStore) Len() int {
	m.c.DeleteExpired()
	return m.c.ItemCount()
}
