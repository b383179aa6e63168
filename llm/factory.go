// LLM Provider factory: string-keyed construction with per-provider defaults
// and API keys resolved from the environment.

package llm

import (
	"fmt"
	"os"
	"strings"
)

// providerInfo holds construction details for one provider.
type providerInfo struct {
	apiKeyEnv    string
	modelEnv     string
	defaultModel string
	construct    func(apiKey, model string, maxTokens uint32, temperature float32) Provider
}

var providers = map[string]providerInfo{
	"openai": {"OPENAI_API_KEY", "OPENAI_MODEL", "gpt-4o",
		func(k, m string, t uint32, temp float32) Provider { return NewOpenAIProvider(k, m, t, temp) }},
	"anthropic": {"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "claude-sonnet-4-20250514",
		func(k, m string, t uint32, temp float32) Provider { return NewAnthropicProvider(k, m, t, temp) }},
	"deepseek": {"DEEPSEEK_API_KEY", "DEEPSEEK_MODEL", "deepseek-chat",
		func(k, m string, t uint32, temp float32) Provider { return NewDeepSeekProvider(k, m, t, temp) }},
	"gemini": {"GEMINI_API_KEY", "GEMINI_MODEL", "gemini-2.5-flash",
		func(k, m string, t uint32, temp float32) Provider { return NewGeminiProvider(k, m, t, temp) }},
}

// Aliases map to canonical provider names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// NormalizeProvider converts aliases to canonical names (case-insensitive).
func NormalizeProvider(name string) string {
	name = strings.ToLower(name)
	if canonical, ok := providerAliases[name]; ok {
		return canonical
	}
	return name
}

// SupportedProviders returns the canonical provider names.
func SupportedProviders() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	return names
}

// NewProvider builds a provider by name, reading the API key (and an optional
// model override) from the environment. An empty model uses the environment
// override or the provider default.
func NewProvider(name, model string, maxTokens uint32, temperature float32) (Provider, error) {
	name = NormalizeProvider(name)
	info, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %q", name)
	}

	apiKey := os.Getenv(info.apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %s environment variable not set", name, info.apiKeyEnv)
	}

	if model == "" {
		model = os.Getenv(info.modelEnv)
	}
	if model == "" {
		model = info.defaultModel
	}

	if maxTokens == 0 {
		maxTokens = 4096
	}

	return info.construct(apiKey, model, maxTokens, temperature), nil
}
