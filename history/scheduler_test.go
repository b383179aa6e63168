package history

import (
	"context"
	"testing"
	"time"
)

// enumerableCache makes the in-memory cache visible to the scheduler's scan,
// which a real deployment only gets from the Redis tier.
type enumerableCache struct {
	*InMemoryCache
}

func (c *enumerableCache) Enumerable() bool { return true }

// age rewinds an entry's write time so its remaining TTL shrinks without
// sleeping.
func (c *enumerableCache) age(chatID string, by time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.entries[chatID]
	entry.storedAt = entry.storedAt.Add(-by)
	c.entries[chatID] = entry
}

func TestSchedulerInterval(t *testing.T) {
	tests := []struct {
		name     string
		cacheTTL int
		schedule string
		want     time.Duration
	}{
		{"capped at a minute", 3600, "ttl+300", 60 * time.Second},
		{"quarter of persist offset", 3600, "ttl+3500", 25 * time.Second},
		{"floor of one second", 8, "ttl+6", time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				Cache:       CacheConfig{TTL: tt.cacheTTL},
				Persistence: PersistenceConfig{Enabled: true, Schedule: tt.schedule},
			}
			m := NewManager(cfg, NewInMemoryCache(tt.cacheTTL), newFakeStore(), fakeAgent{})
			if got := m.scheduler.interval; got != tt.want {
				t.Errorf("interval = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSchedulerScanPersistsEntriesNearEviction(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	cache := &enumerableCache{NewInMemoryCache(3600)}
	m := NewManager(testConfig(), cache, store, fakeAgent{})

	cache.Set(ctx, "due", ThreadData{keyMessages: []any{msg("a", "t1")}}, 3600)
	cache.Set(ctx, "fresh", ThreadData{keyMessages: []any{msg("b", "t1")}}, 3600)
	cache.age("due", 3400*time.Second)

	m.scheduler.scan(ctx)

	if !store.Exists(ctx, "due") {
		t.Error("entry approaching eviction was not persisted")
	}
	if store.Exists(ctx, "fresh") {
		t.Error("fresh entry persisted too early")
	}

	stored := store.Get(ctx, "due")
	if !boolValue(stored, keyPersisted) {
		t.Error("scheduled persist did not mark the record persisted")
	}
}

func TestSchedulerScanSkipsNonEnumerableCache(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	cache := NewInMemoryCache(3600)
	m := NewManager(testConfig(), cache, store, fakeAgent{})

	cache.Set(ctx, "due", ThreadData{keyMessages: []any{msg("a", "t1")}}, 3600)
	cache.mu.Lock()
	entry := cache.entries["due"]
	entry.storedAt = entry.storedAt.Add(-3400 * time.Second)
	cache.entries["due"] = entry
	cache.mu.Unlock()

	m.scheduler.scan(ctx)

	if store.Exists(ctx, "due") {
		t.Error("scan must skip a cache that cannot be enumerated")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testConfig(), &enumerableCache{NewInMemoryCache(3600)}, newFakeStore(), fakeAgent{})

	m.StartBackgroundPersist(ctx)
	if !m.scheduler.IsRunning() {
		t.Fatal("scheduler not running after start")
	}

	// Repeat starts are no-ops while running.
	m.StartBackgroundPersist(ctx)
	if !m.scheduler.IsRunning() {
		t.Fatal("repeat start stopped the scheduler")
	}

	m.scheduler.Stop()
	if m.scheduler.IsRunning() {
		t.Error("scheduler still running after stop")
	}
	m.scheduler.Stop()
}

func TestStartBackgroundPersistNoopWithoutPersistence(t *testing.T) {
	cfg := testConfig()
	cfg.Persistence.Enabled = false
	m := NewManager(cfg, NewInMemoryCache(3600), nil, fakeAgent{})

	m.StartBackgroundPersist(context.Background())
	if m.scheduler.IsRunning() {
		t.Error("scheduler must not run when persistence is disabled")
	}
}

func TestManagerCloseStopsScheduler(t *testing.T) {
	ctx := context.Background()
	m := NewManager(testConfig(), &enumerableCache{NewInMemoryCache(3600)}, newFakeStore(), fakeAgent{})

	m.StartBackgroundPersist(ctx)
	if err := m.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if m.scheduler.IsRunning() {
		t.Error("scheduler still running after manager close")
	}
}
