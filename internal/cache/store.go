package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// New returns a redis-backed store when redisURL is set and reachable, and an
// in-process store otherwise. The second return value names the backend.
func New(ctx context.Context, redisURL string) (Store, string) {
	redisURL = strings.TrimSpace(redisURL)
	if redisURL == "" {
		return NewMemoryStore(), "memory"
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return NewMemoryStore(), "memory"
	}
	store := NewRedisStore(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := store.Client.Ping(pingCtx).Err(); err != nil {
		_ = store.Client.Close()
		return NewMemoryStore(), "memory"
	}
	return store, "redis"
}
