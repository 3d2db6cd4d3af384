package weather

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryCache keeps the impact in process memory
type MemoryCache struct {
	mu        sync.RWMutex
	impact    float64
	expiresAt time.Time
	now       func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context) (float64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.expiresAt.IsZero() || !c.now().Before(c.expiresAt) {
		return 0, false, nil
	}
	return c.impact, true, nil
}

func (c *MemoryCache) Set(_ context.Context, impact float64, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.impact = impact
	c.expiresAt = c.now().Add(ttl)
	return nil
}

// RedisCache shares the impact between server replicas
type RedisCache struct {
	redis *redis.Client
	key   string
}

func NewRedisCache(redisClient *redis.Client, location string) *RedisCache {
	return &RedisCache{
		redis: redisClient,
		key:   fmt.Sprintf("weather_impact:%s", location),
	}
}

func (c *RedisCache) Get(ctx context.Context) (float64, bool, error) {
	impact, err := c.redis.Get(ctx, c.key).Float64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get weather impact from Redis: %w", err)
	}
	return impact, true, nil
}

func (c *RedisCache) Set(ctx context.Context, impact float64, ttl time.Duration) error {
	if err := c.redis.Set(ctx, c.key, impact, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set weather impact in Redis: %w", err)
	}
	return nil
}
