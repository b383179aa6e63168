package history

import (
	"context"
	"sync"
	"time"
)

// InMemoryCache is the fallback cache tier for environments without a Redis
// backend. Entries self-expire lazily: each Get/ListKeys sweep compares stored
// timestamps against each entry's TTL rather than running a background sweep.
// Data is lost on process exit.
type InMemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]memEntry
	defaultTTL int
}

type memEntry struct {
	data     ThreadData
	storedAt time.Time
	ttl      int
}

// NewInMemoryCache creates an in-memory cache with the given default TTL in
// seconds (<= 0 falls back to one hour).
func NewInMemoryCache(ttl int) *InMemoryCache {
	if ttl <= 0 {
		ttl = 3600
	}
	return &InMemoryCache{
		entries:    make(map[string]memEntry),
		defaultTTL: ttl,
	}
}

// Get returns the entry if present and unexpired.
func (c *InMemoryCache) Get(ctx context.Context, chatID string) (ThreadData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireLocked()
	entry, ok := c.entries[chatID]
	if !ok {
		return nil, false
	}
	return entry.data, true
}

// Set stores or overwrites an entry. ttl <= 0 means the default.
func (c *InMemoryCache) Set(ctx context.Context, chatID string, data ThreadData, ttl int) bool {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[chatID] = memEntry{data: data, storedAt: time.Now(), ttl: ttl}
	return true
}

// Delete removes an entry; deleting an absent entry succeeds.
func (c *InMemoryCache) Delete(ctx context.Context, chatID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, chatID)
	return true
}

// TTL returns the remaining seconds before the entry would expire.
func (c *InMemoryCache) TTL(ctx context.Context, chatID string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[chatID]
	if !ok {
		return 0, false
	}
	remaining := entry.ttl - int(time.Since(entry.storedAt).Seconds())
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

// ListKeys returns all unexpired chat IDs. Pattern filtering is not supported;
// the fallback cache is not an enumeration source for listings.
func (c *InMemoryCache) ListKeys(ctx context.Context, pattern string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireLocked()
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	return ids
}

// RefreshTTL restarts the entry's expiry clock with the given TTL.
func (c *InMemoryCache) RefreshTTL(ctx context.Context, chatID string, ttl int) bool {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[chatID]
	if !ok {
		return false
	}
	entry.storedAt = time.Now()
	entry.ttl = ttl
	c.entries[chatID] = entry
	return true
}

// Metadata reports entry properties without returning the payload.
func (c *InMemoryCache) Metadata(ctx context.Context, chatID string) (ChatInfo, bool) {
	remaining, ok := c.TTL(ctx, chatID)
	if !ok {
		return ChatInfo{}, false
	}
	return ChatInfo{ChatID: chatID, Cached: true, TTLRemaining: remaining}, true
}

// Enumerable reports false: the fallback tier is never scanned by the
// background persist scheduler or used as a listing source.
func (c *InMemoryCache) Enumerable() bool {
	return false
}

// Close clears the store.
func (c *InMemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]memEntry)
	return nil
}

// expireLocked drops entries older than their TTL. Callers hold the write lock.
func (c *InMemoryCache) expireLocked() {
	now := time.Now()
	for id, entry := range c.entries {
		if now.Sub(entry.storedAt) > time.Duration(entry.ttl)*time.Second {
			delete(c.entries, id)
		}
	}
}

var _ Cache = (*InMemoryCache)(nil)
