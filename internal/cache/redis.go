package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/grovehq/grove/internal/config"
)

// PendingCountTTL bounds how stale a cached pending-match badge can get.
const PendingCountTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForPendingMatches generates the Redis key for a user's pending-match count.
func (c *RedisCache) KeyForPendingMatches(userID uint64) string {
	return fmt.Sprintf("matches:pending:%d", userID)
}

// SetPendingMatchCount writes the pending-match counter with a fresh TTL.
func (c *RedisCache) SetPendingMatchCount(ctx context.Context, userID uint64, count int64) error {
	return c.Client.Set(ctx, c.KeyForPendingMatches(userID), count, PendingCountTTL).Err()
}

// GetPendingMatchCount reads the cached pending-match counter.
// A cache miss returns (0, false, nil) so callers can fall back to the DB.
func (c *RedisCache) GetPendingMatchCount(ctx context.Context, userID uint64) (int64, bool, error) {
	val, err := c.Client.Get(ctx, c.KeyForPendingMatches(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil // treat garbage as a miss
	}
	// refresh TTL on access, this user is active
	_ = c.Client.Expire(ctx, c.KeyForPendingMatches(userID), PendingCountTTL).Err()
	return n, true, nil
}

// InvalidatePendingMatchCount drops the counter after an accept/pass mutation.
func (c *RedisCache) InvalidatePendingMatchCount(ctx context.Context, userID uint64) error {
	return c.Del(ctx, c.KeyForPendingMatches(userID))
}
