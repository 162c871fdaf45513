// Package memory implementa cache.Cache en proceso sobre go-cache. Es el
// backend para single-node y tests; con más de una réplica usar Redis.
package memory

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/passlane/internal/cache"
)

// Cache implementa cache.Cache en memoria.
type Cache struct {
	// mu serializa las operaciones compuestas (SetNX, TakeOnce): go-cache
	// protege cada llamada pero no pares check-then-act.
	mu sync.Mutex
	c  *gocache.Cache
}

// New crea el cache con limpieza de expirados cada minuto.
func New() *Cache {
	return &Cache{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (m *Cache) Get(_ context.Context, key string) (string, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", cache.ErrMiss
	}
	return v.(string), nil
}

func (m *Cache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.c.Set(key, value, ttl)
	return nil
}

func (m *Cache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.c.Get(key); ok {
		return false, nil
	}
	m.c.Set(key, value, ttl)
	return true, nil
}

func (m *Cache) Delete(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

func (m *Cache) TakeOnce(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.c.Get(key)
	if !ok {
		return "", cache.ErrMiss
	}
	m.c.Delete(key)
	return v.(string), nil
}
