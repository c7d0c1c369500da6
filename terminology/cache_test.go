package terminology

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/clindoc/normalizer/service"
)

func TestShardedCache_SetGet(t *testing.T) {
	cache := NewShardedCache(DefaultShardCount)
	ctx := context.Background()

	key := MakeKey("2.16.840.1.113883.6.96", "420134006", "en", "")
	term := service.CachedTerm{Display: "Propensity to adverse reactions", Provenance: "translation"}

	if _, ok := cache.Get(ctx, key); ok {
		t.Error("expected miss for unset key")
	}

	cache.Set(ctx, key, term, time.Minute)

	got, ok := cache.Get(ctx, key)
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if got != term {
		t.Errorf("got %+v; want %+v", got, term)
	}
}

func TestShardedCache_PerEntryTTL(t *testing.T) {
	cache := NewShardedCache(4)
	ctx := context.Background()

	cache.Set(ctx, "positive", service.CachedTerm{Display: "x"}, time.Minute)
	cache.Set(ctx, "negative", service.CachedTerm{Display: "y"}, 10*time.Millisecond)

	time.Sleep(20 * time.Millisecond)

	if _, ok := cache.Get(ctx, "negative"); ok {
		t.Error("negative entry should have expired")
	}
	if _, ok := cache.Get(ctx, "positive"); !ok {
		t.Error("positive entry should still be cached")
	}
}

func TestShardedCache_ZeroTTLNotStored(t *testing.T) {
	cache := NewShardedCache(4)
	ctx := context.Background()

	cache.Set(ctx, "k", service.CachedTerm{Display: "x"}, 0)
	if _, ok := cache.Get(ctx, "k"); ok {
		t.Error("zero TTL should not store")
	}
}

func TestShardedCache_Cleanup(t *testing.T) {
	cache := NewShardedCache(4)
	ctx := context.Background()

	cache.Set(ctx, "a", service.CachedTerm{Display: "x"}, 5*time.Millisecond)
	cache.Set(ctx, "b", service.CachedTerm{Display: "y"}, time.Minute)
	time.Sleep(10 * time.Millisecond)

	cache.Cleanup()
	if cache.Len() != 1 {
		t.Errorf("Len after Cleanup = %d; want 1", cache.Len())
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("Len after Clear = %d; want 0", cache.Len())
	}
}

func TestShardedCache_Concurrent(t *testing.T) {
	cache := NewShardedCache(8)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := MakeKey("2.16.840.1.113883.6.96", "code", "en", "")
			for j := 0; j < 200; j++ {
				cache.Set(ctx, key, service.CachedTerm{Display: "d"}, time.Minute)
				cache.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}

func TestMakeKey_Distinct(t *testing.T) {
	keys := map[string]struct{}{
		MakeKey("sys", "code", "en", ""):   {},
		MakeKey("sys", "code", "en", "IE"): {},
		MakeKey("sys", "code", "pt", ""):   {},
		MakeKey("sys2", "code", "en", ""):  {},
		MakeKey("sys", "code2", "en", ""):  {},
	}
	if len(keys) != 5 {
		t.Errorf("expected 5 distinct keys, got %d", len(keys))
	}
}

func TestNextPowerOf2(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {64, 64}, {65, 128},
	}
	for _, tt := range tests {
		if got := nextPowerOf2(tt.in); got != tt.want {
			t.Errorf("nextPowerOf2(%d) = %d; want %d", tt.in, got, tt.want)
		}
	}
}
