// Package cache expone un KV efímero con TTL para estado de corta vida:
// cooldowns de reenvío de passcodes y nonces one-shot del flujo social.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss indica que la clave no existe o ya expiró.
var ErrMiss = errors.New("cache: miss")

// Cache es un KV efímero. Las implementaciones deben ser seguras para uso
// concurrente.
type Cache interface {
	// Get devuelve el valor o ErrMiss.
	Get(ctx context.Context, key string) (string, error)
	// Set guarda el valor con el TTL dado.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX guarda solo si la clave no existe; devuelve true si escribió.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Delete borra la clave; borrar una clave inexistente no es error.
	Delete(ctx context.Context, key string) error
	// TakeOnce lee y borra atómicamente (consumo one-shot). ErrMiss si no hay.
	TakeOnce(ctx context.Context, key string) (string, error)
}
