// Package redis implementa cache.Cache sobre Redis para despliegues con más
// de una réplica.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/passlane/internal/cache"
)

// Cache implementa cache.Cache sobre un cliente Redis.
type Cache struct {
	rdb    *goredis.Client
	prefix string
}

// New crea el cache. El prefix separa las claves de otros usos del mismo
// Redis.
func New(rdb *goredis.Client, prefix string) *Cache {
	if prefix == "" {
		prefix = "passlane:cache:"
	}
	return &Cache{rdb: rdb, prefix: prefix}
}

func (r *Cache) key(k string) string { return r.prefix + k }

func (r *Cache) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, r.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", cache.ErrMiss
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (r *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.rdb.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *Cache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.rdb.SetNX(ctx, r.key(key), value, ttl).Result()
}

func (r *Cache) Delete(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.key(key)).Err()
}

func (r *Cache) TakeOnce(ctx context.Context, key string) (string, error) {
	// GETDEL es atómico: leer y consumir en un round-trip.
	v, err := r.rdb.GetDel(ctx, r.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", cache.ErrMiss
	}
	if err != nil {
		return "", err
	}
	return v, nil
}
