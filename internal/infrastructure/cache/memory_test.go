package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mpr131/whiskey-inventory-app-sub000/internal/domain"
)

// newTestCache returns a cache with a controllable clock
func newTestCache(t *testing.T, maxEntries int) (*MemoryCache, *time.Time) {
	t.Helper()
	cache := NewMemoryCache(maxEntries)
	t.Cleanup(cache.Close)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	return cache, &now
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache, clock := newTestCache(t, 0)
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		value   interface{}
		ttl     time.Duration
		advance time.Duration
		wantHit bool
	}{
		{
			name:    "resolved entry id",
			key:     "resolved:ext:iwine:12345",
			value:   "5f0c9a1e-entry",
			ttl:     time.Hour,
			wantHit: true,
		},
		{
			name:    "value kept as stored",
			key:     "resolved:key|weller 12|buffalo trace||",
			value:   42,
			ttl:     time.Hour,
			wantHit: true,
		},
		{
			name:    "expired after ttl",
			key:     "short",
			value:   "expires-soon",
			ttl:     time.Minute,
			advance: 2 * time.Minute,
			wantHit: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cache.Set(ctx, tt.key, tt.value, tt.ttl); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			*clock = clock.Add(tt.advance)

			got, err := cache.Get(ctx, tt.key)
			if !tt.wantHit {
				if !errors.Is(err, domain.ErrCacheMiss) {
					t.Errorf("Get() error = %v, want %v", err, domain.ErrCacheMiss)
				}
				return
			}
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != tt.value {
				t.Errorf("Get() = %v, want %v", got, tt.value)
			}
		})
	}
}

func TestMemoryCache_SetValidation(t *testing.T) {
	cache, _ := newTestCache(t, 0)
	ctx := context.Background()

	if err := cache.Set(ctx, "", "v", time.Minute); domain.Kind(err) != domain.KindValidation {
		t.Errorf("Set(empty key) error = %v, want validation error", err)
	}
	if err := cache.Set(ctx, "k", "v", 0); domain.Kind(err) != domain.KindValidation {
		t.Errorf("Set(zero ttl) error = %v, want validation error", err)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	cache, _ := newTestCache(t, 0)
	ctx := context.Background()

	key := "delete-test"
	if err := cache.Set(ctx, key, "value", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Delete(ctx, key); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if _, err := cache.Get(ctx, key); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() after delete error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_Exists(t *testing.T) {
	cache, clock := newTestCache(t, 0)
	ctx := context.Background()

	exists, err := cache.Exists(ctx, "k")
	if err != nil || exists {
		t.Errorf("Exists() = %v, %v; want false, nil", exists, err)
	}

	if err := cache.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if exists, _ := cache.Exists(ctx, "k"); !exists {
		t.Errorf("Exists() = false, want true after set")
	}

	*clock = clock.Add(time.Hour)
	if exists, _ := cache.Exists(ctx, "k"); exists {
		t.Errorf("Exists() = true, want false after expiration")
	}
}

func TestMemoryCache_Eviction(t *testing.T) {
	ctx := context.Background()

	t.Run("evicts entry nearest expiry", func(t *testing.T) {
		cache, _ := newTestCache(t, 2)
		_ = cache.Set(ctx, "long", 1, time.Hour)
		_ = cache.Set(ctx, "short", 2, time.Minute)
		_ = cache.Set(ctx, "new", 3, time.Hour)

		if size := cache.Size(); size != 2 {
			t.Errorf("Size() = %d, want 2", size)
		}
		if _, err := cache.Get(ctx, "short"); !errors.Is(err, domain.ErrCacheMiss) {
			t.Errorf("expected short-lived entry to be evicted, got %v", err)
		}
	})

	t.Run("prefers expired entries", func(t *testing.T) {
		cache, clock := newTestCache(t, 2)
		_ = cache.Set(ctx, "a", 1, time.Minute)
		_ = cache.Set(ctx, "b", 2, time.Hour)
		*clock = clock.Add(2 * time.Minute)
		_ = cache.Set(ctx, "c", 3, time.Minute)

		if _, err := cache.Get(ctx, "b"); err != nil {
			t.Errorf("Get(b) error = %v, want live entry kept", err)
		}
	})

	t.Run("overwrite does not evict", func(t *testing.T) {
		cache, _ := newTestCache(t, 1)
		_ = cache.Set(ctx, "a", 1, time.Minute)
		_ = cache.Set(ctx, "a", 2, time.Minute)
		if got, _ := cache.Get(ctx, "a"); got != 2 {
			t.Errorf("Get(a) = %v, want 2", got)
		}
	})
}

func TestMemoryCache_StatsAndClear(t *testing.T) {
	cache, _ := newTestCache(t, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := cache.Set(ctx, string(rune('a'+i)), i, time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	_, _ = cache.Get(ctx, "a")
	_, _ = cache.Get(ctx, "z")

	stats := cache.Stats()
	if stats.Entries != 5 || stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Stats() = %+v, want 5 entries, 1 hit, 1 miss", stats)
	}

	cache.Clear()
	if size := cache.Size(); size != 0 {
		t.Errorf("Size() = %d, want 0 after clear", size)
	}
	cache.Close()
	cache.Close()
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := NewMemoryCache(0)
	defer cache.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := string(rune('a' + id))
			if err := cache.Set(ctx, key, id, time.Minute); err != nil {
				t.Errorf("Concurrent Set() error = %v", err)
			}
			if _, err := cache.Get(ctx, key); err != nil {
				t.Errorf("Concurrent Get() error = %v", err)
			}
		}(i)
	}
	wg.Wait()
}
