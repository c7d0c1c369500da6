package terminology

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clindoc/normalizer/service"
)

// RedisCache implements service.TermCache on a shared Redis backend so
// several engine processes can pool their resolutions. A backend that is
// down is treated as empty: Get reports a miss, Set is dropped, and
// resolution proceeds against the store. Availability transitions are
// logged once, not per lookup.
type RedisCache struct {
	client    redis.UniversalClient
	keyPrefix string
	log       *zap.Logger
	down      atomic.Bool
}

// NewRedisCache wraps a Redis client. The prefix namespaces keys so one
// Redis instance can serve several catalogues.
func NewRedisCache(client redis.UniversalClient, keyPrefix string, log *zap.Logger) *RedisCache {
	if log == nil {
		log = zap.NewNop()
	}
	if keyPrefix == "" {
		keyPrefix = "term:"
	}
	return &RedisCache{
		client:    client,
		keyPrefix: keyPrefix,
		log:       log,
	}
}

// Get retrieves a cached term, reporting a miss when the backend is
// unreachable.
func (c *RedisCache) Get(ctx context.Context, key string) (service.CachedTerm, bool) {
	payload, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.markDown(err)
		}
		return service.CachedTerm{}, false
	}
	c.markUp()

	var term service.CachedTerm
	if err := json.Unmarshal(payload, &term); err != nil {
		// A corrupt entry is a miss; the fresh resolution overwrites it.
		c.log.Warn("terminology: discarding corrupt cache entry",
			zap.String("key", key), zap.Error(err))
		return service.CachedTerm{}, false
	}
	return term, true
}

// Set stores a term with the given TTL, silently dropping the write when
// the backend is unreachable.
func (c *RedisCache) Set(ctx context.Context, key string, term service.CachedTerm, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	payload, err := json.Marshal(term)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, payload, ttl).Err(); err != nil {
		c.markDown(err)
		return
	}
	c.markUp()
}

func (c *RedisCache) markDown(err error) {
	if c.down.CompareAndSwap(false, true) {
		c.log.Warn("terminology: cache backend unavailable, resolving directly against the store",
			zap.Error(err))
	}
}

func (c *RedisCache) markUp() {
	if c.down.CompareAndSwap(true, false) {
		c.log.Info("terminology: cache backend recovered")
	}
}

// Available reports whether the last backend interaction succeeded.
func (c *RedisCache) Available() bool {
	return !c.down.Load()
}

// Verify interface compliance
var _ service.TermCache = (*RedisCache)(nil)
