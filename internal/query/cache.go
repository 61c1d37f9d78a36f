package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/concord-index/concord/pkg/config"
	pkgredis "github.com/concord-index/concord/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "lookup:"

// LookupCache caches lookup results in Redis and collapses concurrent
// identical lookups with singleflight.
type LookupCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func NewLookupCache(client *pkgredis.Client, cfg config.RedisConfig) *LookupCache {
	return &LookupCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "lookup-cache"),
	}
}

func (c *LookupCache) Get(ctx context.Context, word string) (*LookupResult, bool) {
	key := keyPrefix + word
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if pkgredis.IsNilError(err) {
			c.misses.Add(1)
			return nil, false
		}
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	var result LookupResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "word", word)
	return &result, true
}

func (c *LookupCache) Set(ctx context.Context, word string, result *LookupResult) {
	key := keyPrefix + word
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for word, or computes, caches,
// and returns it. The bool reports whether the value came from cache.
func (c *LookupCache) GetOrCompute(
	ctx context.Context,
	word string,
	computeFn func() (*LookupResult, error),
) (*LookupResult, bool, error) {
	if result, ok := c.Get(ctx, word); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(keyPrefix+word, func() (interface{}, error) {
		if result, ok := c.Get(ctx, word); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, word, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*LookupResult), false, nil
}

// Invalidate removes all cached lookups, e.g. after new lines are indexed.
func (c *LookupCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating lookup cache: %w", err)
	}
	c.logger.Info("lookup cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *LookupCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
