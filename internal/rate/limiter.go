// Package rate implementa límites de tasa por clave con ventana fija. Se usa
// para acotar los envíos de passcode por destino y por IP.
package rate

import (
	"context"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Limiter decide si una operación identificada por key puede proceder.
type Limiter interface {
	// Allow consume un slot de la ventana. Devuelve false si se agotó.
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter es una ventana fija sobre Redis (INCR + EXPIRE): coordina
// réplicas sin estado compartido en proceso.
type RedisLimiter struct {
	rdb    *goredis.Client
	prefix string
	limit  int64
	window time.Duration
}

// NewRedis crea el limiter: limit operaciones por window.
func NewRedis(rdb *goredis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "passlane:rate:"
	}
	return &RedisLimiter{rdb: rdb, prefix: prefix, limit: int64(limit), window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + key
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		// Primera operación de la ventana: arranca el reloj.
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return false, err
		}
	}
	return n <= l.limit, nil
}

// MemoryLimiter es la ventana fija en proceso para single-node y tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	counts  map[string]int
	resets  map[string]time.Time
	nowFunc func() time.Time
}

// NewMemory crea el limiter en memoria.
func NewMemory(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		counts:  make(map[string]int),
		resets:  make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

// SetClock fija el reloj; solo para tests.
func (l *MemoryLimiter) SetClock(now func() time.Time) { l.nowFunc = now }

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	if reset, ok := l.resets[key]; !ok || now.After(reset) {
		l.counts[key] = 0
		l.resets[key] = now.Add(l.window)
	}
	l.counts[key]++
	return l.counts[key] <= l.limit, nil
}
