package terminology

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	cn "github.com/clindoc/normalizer"
	"github.com/clindoc/normalizer/codesystem"
	"github.com/clindoc/normalizer/service"
)

// An unreachable backend must behave like an empty cache: misses and
// dropped writes, never errors, never blocking.
func TestRedisCache_UnavailableBackendDegrades(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1", // nothing listens here
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	cache := NewRedisCache(client, "test:", zap.NewNop())
	ctx := context.Background()

	if _, ok := cache.Get(ctx, "k"); ok {
		t.Error("unreachable backend must report a miss")
	}
	cache.Set(ctx, "k", service.CachedTerm{Display: "x"}, time.Minute) // must not panic or block
	if cache.Available() {
		t.Error("backend should be marked unavailable after a failed call")
	}
}

// Resolution correctness must not depend on the cache backend being up.
func TestResolver_ResolvesWithDeadCacheBackend(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	r := NewResolverWithCache(newTestStore(), NewRedisCache(client, "test:", zap.NewNop()),
		cn.WithTargetLanguage("en"))

	term := r.Resolve(context.Background(), "420134006", codesystem.OIDSnomedCT)
	if term.Display != "Propensity to adverse reactions" {
		t.Errorf("Display = %q; cache outage must not affect correctness", term.Display)
	}
	if term.Provenance != cn.ProvenanceTranslation {
		t.Errorf("Provenance = %q", term.Provenance)
	}
}
