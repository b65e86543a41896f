package analyze

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

// Cache memoizes analysis results. A Get miss returns (nil, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CacheKey derives the cache key from transcript content. Keying on the
// content hash rather than the session identifier means duplicate uploads
// and reprocessing runs share one analysis, even across sessions.
func CacheKey(transcript []byte) string {
	sum := sha256.Sum256(transcript)
	return "analysis:" + hex.EncodeToString(sum[:])
}

// RedisCache implements Cache on a redigo pool with a fixed TTL. Entries
// are never invalidated: transcript content is immutable once produced,
// so staleness is acceptable.
type RedisCache struct {
	pool *redis.Pool
	ttl  time.Duration
}

// NewRedisCache builds the pool. Connections are established lazily; call
// Ping at startup to fail fast on bad configuration.
func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	pool := &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 240 * time.Second,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr)
		},
	}
	return &RedisCache{pool: pool, ttl: ttl}
}

// Ping verifies the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Get returns the cached value, or (nil, nil) when the key is absent.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	defer conn.Close()

	value, err := redis.Bytes(conn.Do("GET", key))
	if errors.Is(err, redis.ErrNil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

// Set stores the value with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	defer conn.Close()

	if _, err := conn.Do("SETEX", key, int64(c.ttl.Seconds()), value); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the pool.
func (c *RedisCache) Close() error {
	return c.pool.Close()
}
