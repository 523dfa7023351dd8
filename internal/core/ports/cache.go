package ports

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the subset of go-redis commands the core uses. *redis.Client
// satisfies it in production; tests inject an in-memory mock.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}
