package history

import "context"

// CacheConfig holds cache tier configuration.
type CacheConfig struct {
	Enabled  bool
	Host     string
	Port     int
	SSL      bool
	Password string
	DB       int
	// TTL is the default seconds-to-live for new cache entries.
	TTL int
	// Prefix namespaces every cache key.
	Prefix string
}

// DefaultCacheConfig returns the cache defaults: disabled, one hour TTL.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Port:   6380,
		SSL:    true,
		TTL:    3600,
		Prefix: "chat:",
	}
}

// Cache is the fast, TTL-bound tier in front of the durable store.
//
// Every operation is fail-open: a transport failure yields a negative result
// (nil data, false, empty slice) and a warning log, never an error the caller
// has to handle. Absence of an entry is a cache miss, not a failure.
type Cache interface {
	// Get returns the cached blob, or (nil, false) on miss or failure.
	Get(ctx context.Context, chatID string) (ThreadData, bool)

	// Set stores or overwrites an entry. ttl <= 0 means the configured default.
	Set(ctx context.Context, chatID string, data ThreadData, ttl int) bool

	// Delete removes an entry. Deleting an absent entry succeeds.
	Delete(ctx context.Context, chatID string) bool

	// TTL returns the remaining seconds before eviction, or (0, false) when
	// the entry is absent or the backend cannot answer.
	TTL(ctx context.Context, chatID string) (int, bool)

	// ListKeys enumerates cached chat IDs matching pattern, best effort.
	ListKeys(ctx context.Context, pattern string) []string

	// RefreshTTL extends an entry's expiry without rewriting its value.
	RefreshTTL(ctx context.Context, chatID string, ttl int) bool

	// Metadata returns entry properties without fetching the payload.
	Metadata(ctx context.Context, chatID string) (ChatInfo, bool)

	// Enumerable reports whether ListKeys is an efficient, meaningful
	// operation on this implementation. The background persist scheduler
	// skips its scan cycle when this is false.
	Enumerable() bool

	Close() error
}
