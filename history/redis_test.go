package history

import (
	"context"
	"testing"
)

// These exercise the degraded paths only; they never reach a live server.

func TestRedisCacheDisabled(t *testing.T) {
	ctx := context.Background()
	c := NewRedisCache(CacheConfig{Enabled: false, TTL: 3600})

	if c.Set(ctx, "chat-1", ThreadData{"k": "v"}, 0) {
		t.Error("disabled cache must reject writes")
	}
	if _, ok := c.Get(ctx, "chat-1"); ok {
		t.Error("disabled cache must miss")
	}
	if !c.Delete(ctx, "chat-1") {
		t.Error("disabled cache holds nothing, delete must succeed")
	}
	if _, ok := c.TTL(ctx, "chat-1"); ok {
		t.Error("disabled cache must report no TTL")
	}
	if keys := c.ListKeys(ctx, "*"); keys != nil {
		t.Errorf("disabled cache must list nothing, got %v", keys)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestNewRedisCacheDowngradesWithoutHost(t *testing.T) {
	c := NewRedisCache(CacheConfig{Enabled: true, TTL: 3600})
	if c.Set(context.Background(), "chat-1", ThreadData{"k": "v"}, 0) {
		t.Error("enabled config without a host must downgrade to disabled")
	}
}
