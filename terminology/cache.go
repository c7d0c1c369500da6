package terminology

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/clindoc/normalizer/service"
)

// DefaultShardCount is the default number of cache shards.
// Use a power of 2 for efficient modulo operation.
const DefaultShardCount = 64

// ShardedCache is a thread-safe, sharded TTL cache for resolved terms.
// Multiple shards reduce lock contention when many extractors resolve
// concurrently. Each entry carries its own TTL, so positive and negative
// resolutions can expire on different schedules.
type ShardedCache struct {
	shards    []*cacheShard
	shardMask uint32
}

// cacheShard represents a single shard of the cache.
type cacheShard struct {
	mu    sync.RWMutex
	terms map[string]*cachedTerm
}

// cachedTerm holds a cached resolution with expiration.
type cachedTerm struct {
	term      service.CachedTerm
	expiresAt time.Time
}

// NewShardedCache creates a sharded cache with the given shard count,
// rounded up to a power of 2.
func NewShardedCache(shardCount int) *ShardedCache {
	if shardCount <= 0 {
		shardCount = DefaultShardCount
	}
	shardCount = nextPowerOf2(shardCount)

	shards := make([]*cacheShard, shardCount)
	for i := range shards {
		shards[i] = &cacheShard{terms: make(map[string]*cachedTerm)}
	}
	return &ShardedCache{
		shards:    shards,
		shardMask: uint32(shardCount - 1),
	}
}

// getShard returns the shard for the given key.
func (c *ShardedCache) getShard(key string) *cacheShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()&c.shardMask]
}

// Get retrieves a cached term. Expired entries are removed lazily.
func (c *ShardedCache) Get(_ context.Context, key string) (service.CachedTerm, bool) {
	shard := c.getShard(key)
	shard.mu.RLock()
	cached, ok := shard.terms[key]
	shard.mu.RUnlock()

	if !ok {
		return service.CachedTerm{}, false
	}
	if time.Now().After(cached.expiresAt) {
		shard.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have
		// refreshed the entry.
		if cur, ok := shard.terms[key]; ok && time.Now().After(cur.expiresAt) {
			delete(shard.terms, key)
		}
		shard.mu.Unlock()
		return service.CachedTerm{}, false
	}
	return cached.term, true
}

// Set stores a term with the given TTL. A non-positive TTL stores nothing.
func (c *ShardedCache) Set(_ context.Context, key string, term service.CachedTerm, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	shard := c.getShard(key)
	shard.mu.Lock()
	shard.terms[key] = &cachedTerm{
		term:      term,
		expiresAt: time.Now().Add(ttl),
	}
	shard.mu.Unlock()
}

// Clear removes all entries. Intended for test isolation and catalogue
// reload events.
func (c *ShardedCache) Clear() {
	for _, shard := range c.shards {
		shard.mu.Lock()
		shard.terms = make(map[string]*cachedTerm)
		shard.mu.Unlock()
	}
}

// Cleanup removes expired entries eagerly. Optional; Get already removes
// them lazily.
func (c *ShardedCache) Cleanup() {
	now := time.Now()
	for _, shard := range c.shards {
		shard.mu.Lock()
		for key, cached := range shard.terms {
			if now.After(cached.expiresAt) {
				delete(shard.terms, key)
			}
		}
		shard.mu.Unlock()
	}
}

// Len returns the number of entries across all shards, counting entries
// that have expired but not yet been evicted.
func (c *ShardedCache) Len() int {
	var n int
	for _, shard := range c.shards {
		shard.mu.RLock()
		n += len(shard.terms)
		shard.mu.RUnlock()
	}
	return n
}

// MakeKey creates a cache key for a resolution lookup.
// The separator cannot appear in codes, OIDs or locale tags.
func MakeKey(systemOID, code, language, country string) string {
	return systemOID + "\x00" + code + "\x00" + language + "\x00" + country
}

// nextPowerOf2 returns the smallest power of 2 >= n.
func nextPowerOf2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

// Verify interface compliance
var _ service.TermCache = (*ShardedCache)(nil)
