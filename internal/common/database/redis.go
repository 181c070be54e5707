// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"rehmat-agent/internal/common/config"

	"github.com/redis/go-redis/v9"
)

const roomClaimPrefix = "rehmat-agent:room:"

// releaseScript deletes the claim only when it is still held by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClient wraps the Redis client
type RedisClient struct {
	Client *redis.Client
}

// NewRedis creates a new Redis client
func NewRedis(cfg config.RedisConfig) *RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return &RedisClient{Client: rdb}
}

// Ping tests the Redis connection
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	if c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// Claim takes the room for owner unless another worker already holds it.
func (c *RedisClient) Claim(ctx context.Context, room, owner string, ttl time.Duration) (bool, error) {
	ok, err := c.Client.SetNX(ctx, roomClaimPrefix+room, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim room %s: %w", room, err)
	}
	return ok, nil
}

// Release drops the claim if owner still holds it.
func (c *RedisClient) Release(ctx context.Context, room, owner string) error {
	if err := releaseScript.Run(ctx, c.Client, []string{roomClaimPrefix + room}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release room %s: %w", room, err)
	}
	return nil
}
