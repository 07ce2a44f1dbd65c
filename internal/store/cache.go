// Package store is the read-path cache: Redis when available, in-memory
// otherwise. Only display data lives here. Solvency checks never read
// from it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/omnilend/omnilend-backend/pkg/kv"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache key prefixes
const (
	KeyOraclePrice  = "olnd:oracle:price"
	KeyUserPosition = "olnd:user:position"
	KeyAssetList    = "olnd:assets"
)

type Cache struct {
	// When Redis is available, client backs all operations.
	client *redis.Client
	// Otherwise an in-memory kv.Store takes over.
	kvStore kv.Store

	logger *zap.SugaredLogger
}

func NewCache(addr string, logger *zap.SugaredLogger) (*Cache, error) {
	if addr == "" {
		return &Cache{kvStore: kv.NewMemory(), logger: logger}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if logger != nil {
			logger.Warnw("Redis unavailable; using in-memory cache", "error", err)
		}
		return &Cache{kvStore: kv.NewMemory(), logger: logger}, nil
	}

	return &Cache{client: client, logger: logger}, nil
}

func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client != nil {
		val, err := c.client.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrCacheMiss
			}
			if c.logger != nil {
				c.logger.Errorw("Cache get error", "key", key, "error", err)
			}
			return fmt.Errorf("cache get error: %w", err)
		}
		if err := json.Unmarshal([]byte(val), dest); err != nil {
			return fmt.Errorf("cache unmarshal error: %w", err)
		}
		return nil
	}

	data, err := c.kvStore.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return ErrCacheMiss
		}
		return fmt.Errorf("cache get error: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache unmarshal error: %w", err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}
	if c.client != nil {
		if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
			if c.logger != nil {
				c.logger.Errorw("Cache set error", "key", key, "error", err)
			}
			return fmt.Errorf("cache set error: %w", err)
		}
		return nil
	}
	if err := c.kvStore.Set(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if c.client != nil {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("cache delete error: %w", err)
		}
		return nil
	}
	for _, key := range keys {
		if err := c.kvStore.Delete(ctx, key); err != nil {
			return fmt.Errorf("cache delete error: %w", err)
		}
	}
	return nil
}

// Specialized cache methods

func (c *Cache) GetOraclePrice(ctx context.Context, symbol string, dest interface{}) error {
	return c.Get(ctx, fmt.Sprintf("%s:%s", KeyOraclePrice, symbol), dest)
}

func (c *Cache) SetOraclePrice(ctx context.Context, symbol string, value interface{}, ttl time.Duration) error {
	return c.Set(ctx, fmt.Sprintf("%s:%s", KeyOraclePrice, symbol), value, ttl)
}

func (c *Cache) GetUserPosition(ctx context.Context, address string, dest interface{}) error {
	return c.Get(ctx, fmt.Sprintf("%s:%s", KeyUserPosition, address), dest)
}

func (c *Cache) SetUserPosition(ctx context.Context, address string, value interface{}) error {
	return c.Set(ctx, fmt.Sprintf("%s:%s", KeyUserPosition, address), value, 10*time.Second)
}

func (c *Cache) InvalidateUserPosition(ctx context.Context, address string) error {
	return c.Delete(ctx, fmt.Sprintf("%s:%s", KeyUserPosition, address))
}

func (c *Cache) GetAssetList(ctx context.Context, dest interface{}) error {
	return c.Get(ctx, KeyAssetList, dest)
}

func (c *Cache) SetAssetList(ctx context.Context, value interface{}) error {
	return c.Set(ctx, KeyAssetList, value, 3*time.Second)
}

// IsInMemoryMode reports whether the cache fell back to the in-memory
// store.
func (c *Cache) IsInMemoryMode() bool {
	return c.client == nil
}

func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return c.kvStore.Close()
}
