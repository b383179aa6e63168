// Redis-backed cache tier.
//
// Information Hiding:
// - Connection establishment and credential handling
// - Key namespacing via the configured prefix
// - Serialization of thread blobs to JSON strings

package history

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the durable remote-backed cache implementation.
//
// The connection is established lazily on the first operation and memoized.
// A connection failure disables the cache for the remainder of the process
// lifetime rather than retrying on every call: this bounds failure-handling
// cost, at the price that a transient outage during startup keeps caching
// off until restart.
type RedisCache struct {
	cfg    CacheConfig
	logger *slog.Logger

	mu          sync.Mutex
	client      *redis.Client
	initialized bool
}

// NewRedisCache creates a Redis cache from config. No connection is made yet.
// An enabled config without a host downgrades the cache to disabled.
func NewRedisCache(cfg CacheConfig) *RedisCache {
	logger := slog.Default().With(slog.String("component", "history.cache"))

	if cfg.Enabled && cfg.Host == "" {
		logger.Warn("cache enabled but no host configured, disabling")
		cfg.Enabled = false
	}

	return &RedisCache{cfg: cfg, logger: logger}
}

// ensureConnected establishes the client on first use. Returns false when the
// cache is disabled or the connection attempt failed.
func (c *RedisCache) ensureConnected(ctx context.Context) bool {
	if !c.cfg.Enabled {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return c.client != nil
	}
	c.initialized = true

	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port),
		Password: c.cfg.Password,
		DB:       c.cfg.DB,
	}
	if c.cfg.SSL {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		c.logger.Warn("redis connection failed, cache disabled for process lifetime",
			slog.String("host", c.cfg.Host),
			slog.String("error", err.Error()),
		)
		_ = client.Close()
		return false
	}

	c.client = client
	c.logger.Info("redis cache connected", slog.String("host", c.cfg.Host))
	return true
}

func (c *RedisCache) key(chatID string) string {
	return c.cfg.Prefix + chatID
}

// Get returns the cached blob for a chat, or (nil, false) on miss or failure.
func (c *RedisCache) Get(ctx context.Context, chatID string) (ThreadData, bool) {
	if !c.ensureConnected(ctx) {
		return nil, false
	}

	raw, err := c.client.Get(ctx, c.key(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("cache miss", slog.String("chat_id", chatID))
		return nil, false
	}
	if err != nil {
		c.logger.Warn("cache get failed", slog.String("chat_id", chatID), slog.String("error", err.Error()))
		return nil, false
	}

	var data ThreadData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		c.logger.Warn("cache entry unreadable", slog.String("chat_id", chatID), slog.String("error", err.Error()))
		return nil, false
	}

	c.logger.Debug("cache hit", slog.String("chat_id", chatID))
	return data, true
}

// Set stores or overwrites an entry with the given TTL (seconds; <= 0 means
// the configured default).
func (c *RedisCache) Set(ctx context.Context, chatID string, data ThreadData, ttl int) bool {
	if !c.ensureConnected(ctx) {
		return false
	}

	raw, err := json.Marshal(data)
	if err != nil {
		c.logger.Warn("cache set failed to serialize", slog.String("chat_id", chatID), slog.String("error", err.Error()))
		return false
	}

	if ttl <= 0 {
		ttl = c.cfg.TTL
	}

	if err := c.client.SetEx(ctx, c.key(chatID), raw, time.Duration(ttl)*time.Second).Err(); err != nil {
		c.logger.Warn("cache set failed", slog.String("chat_id", chatID), slog.String("error", err.Error()))
		return false
	}

	c.logger.Debug("cache set", slog.String("chat_id", chatID), slog.Int("ttl", ttl))
	return true
}

// Delete removes an entry. A disabled cache holds nothing, so deletion
// trivially succeeds.
func (c *RedisCache) Delete(ctx context.Context, chatID string) bool {
	if !c.ensureConnected(ctx) {
		return true
	}

	if err := c.client.Del(ctx, c.key(chatID)).Err(); err != nil {
		c.logger.Warn("cache delete failed", slog.String("chat_id", chatID), slog.String("error", err.Error()))
		return false
	}
	return true
}

// TTL returns the remaining seconds before eviction.
func (c *RedisCache) TTL(ctx context.Context, chatID string) (int, bool) {
	if !c.ensureConnected(ctx) {
		return 0, false
	}

	ttl, err := c.client.TTL(ctx, c.key(chatID)).Result()
	if err != nil || ttl <= 0 {
		return 0, false
	}
	return int(ttl.Seconds()), true
}

// ListKeys enumerates cached chat IDs matching pattern ("*" for all).
func (c *RedisCache) ListKeys(ctx context.Context, pattern string) []string {
	if !c.ensureConnected(ctx) {
		return nil
	}
	if pattern == "" {
		pattern = "*"
	}

	keys, err := c.client.Keys(ctx, c.cfg.Prefix+pattern).Result()
	if err != nil {
		c.logger.Warn("cache list failed", slog.String("error", err.Error()))
		return nil
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k[len(c.cfg.Prefix):])
	}
	return ids
}

// RefreshTTL extends an entry's expiry without rewriting the value. Used to
// keep hot conversations alive without a full save.
func (c *RedisCache) RefreshTTL(ctx context.Context, chatID string, ttl int) bool {
	if !c.ensureConnected(ctx) {
		return false
	}
	if ttl <= 0 {
		ttl = c.cfg.TTL
	}

	ok, err := c.client.Expire(ctx, c.key(chatID), time.Duration(ttl)*time.Second).Result()
	return err == nil && ok
}

// Metadata reports entry properties (existence, remaining TTL) without
// fetching the payload.
func (c *RedisCache) Metadata(ctx context.Context, chatID string) (ChatInfo, bool) {
	if !c.ensureConnected(ctx) {
		return ChatInfo{}, false
	}

	pipe := c.client.Pipeline()
	existsCmd := pipe.Exists(ctx, c.key(chatID))
	ttlCmd := pipe.TTL(ctx, c.key(chatID))
	if _, err := pipe.Exec(ctx); err != nil {
		return ChatInfo{}, false
	}

	if existsCmd.Val() == 0 {
		return ChatInfo{}, false
	}

	info := ChatInfo{ChatID: chatID, Cached: true}
	if ttl := ttlCmd.Val(); ttl > 0 {
		info.TTLRemaining = int(ttl.Seconds())
	}
	return info, true
}

// Enumerable reports that key listing is supported.
func (c *RedisCache) Enumerable() bool {
	return true
}

// Close releases the connection.
func (c *RedisCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}
	return nil
}

var _ Cache = (*RedisCache)(nil)
