// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Downgrading a storage tier to disabled when it is misconfigured

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/richinex/chatvault/history"
)

// Settings holds all application configuration.
type Settings struct {
	Cache       history.CacheConfig
	Persistence history.PersistenceConfig
	LLM         LLMConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	MaxTokens   uint32
	Temperature float32
}

// New loads settings from environment variables. Invalid numeric values are
// errors; an enabled cache tier without a host is downgraded to disabled with
// a warning rather than failing startup.
func New() (Settings, error) {
	cache := history.DefaultCacheConfig()
	persistence := history.DefaultPersistenceConfig()

	var err error
	if cache.Enabled, err = getEnvBool("CACHE_ENABLED", false); err != nil {
		return Settings{}, err
	}
	cache.Host = os.Getenv("CACHE_HOST")
	if cache.Port, err = getEnvInt("CACHE_PORT", cache.Port); err != nil {
		return Settings{}, err
	}
	if cache.SSL, err = getEnvBool("CACHE_SSL", cache.SSL); err != nil {
		return Settings{}, err
	}
	if cache.TTL, err = getEnvInt("CACHE_TTL", cache.TTL); err != nil {
		return Settings{}, err
	}
	if v := os.Getenv("CACHE_PREFIX"); v != "" {
		cache.Prefix = v
	}
	if cache.DB, err = getEnvInt("CACHE_DB", 0); err != nil {
		return Settings{}, err
	}
	cache.Password = os.Getenv("CACHE_PASSWORD")

	if cache.Enabled && cache.Host == "" {
		slog.Warn("cache enabled but CACHE_HOST not set, disabling cache tier")
		cache.Enabled = false
	}

	if persistence.Enabled, err = getEnvBool("PERSISTENCE_ENABLED", false); err != nil {
		return Settings{}, err
	}
	persistence.Path = os.Getenv("PERSISTENCE_PATH")
	if v := os.Getenv("PERSISTENCE_FOLDER"); v != "" {
		persistence.Folder = v
	}
	if v := os.Getenv("PERSISTENCE_SCHEDULE"); v != "" {
		persistence.Schedule = v
	}

	if persistence.Enabled && persistence.Path == "" {
		slog.Warn("persistence enabled but PERSISTENCE_PATH not set, disabling persistence tier")
		persistence.Enabled = false
	}

	maxTokens, err := getEnvInt("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}
	temperature, err := getEnvFloat32("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}

	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		provider = "openai"
	}

	return Settings{
		Cache:       cache,
		Persistence: persistence,
		LLM: LLMConfig{
			Provider:    provider,
			Model:       os.Getenv("LLM_MODEL"),
			MaxTokens:   uint32(maxTokens),
			Temperature: temperature,
		},
	}, nil
}

// MustNew loads settings, panicking on invalid values. Use only when
// configuration errors should be fatal.
func MustNew() Settings {
	settings, err := New()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return b, nil
}

func getEnvFloat32(key string, defaultVal float32) (float32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return float32(f), nil
}
