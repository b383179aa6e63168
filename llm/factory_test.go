package llm

import (
	"strings"
	"testing"
)

func TestNormalizeProvider(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"openai", "openai"},
		{"OpenAI", "openai"},
		{"claude", "anthropic"},
		{"google", "gemini"},
		{"gpt", "openai"},
		{"deepseek", "deepseek"},
		{"unknown", "unknown"},
	}

	for _, tt := range tests {
		if got := NormalizeProvider(tt.in); got != tt.want {
			t.Errorf("NormalizeProvider(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewProviderUnknown(t *testing.T) {
	if _, err := NewProvider("no-such-provider", "", 0, 0); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewProviderMissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewProvider("openai", "", 0, 0)
	if err == nil {
		t.Fatal("expected error without API key")
	}
	if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("error should name the missing variable, got %v", err)
	}
}

func TestNewProviderModelResolution(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_MODEL", "")

	p, err := NewProvider("openai", "", 0, 0)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Model() != "gpt-4o" {
		t.Errorf("expected default model, got %q", p.Model())
	}
	if p.Name() != "openai" {
		t.Errorf("expected openai, got %q", p.Name())
	}

	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	p, err = NewProvider("openai", "", 0, 0)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Model() != "gpt-4o-mini" {
		t.Errorf("expected environment model override, got %q", p.Model())
	}

	p, err = NewProvider("openai", "gpt-4-turbo", 0, 0)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Model() != "gpt-4-turbo" {
		t.Errorf("expected explicit model to win, got %q", p.Model())
	}
}

func TestSupportedProviders(t *testing.T) {
	names := SupportedProviders()
	want := map[string]bool{"openai": false, "anthropic": false, "deepseek": false, "gemini": false}
	for _, name := range names {
		if _, ok := want[name]; !ok {
			t.Errorf("unexpected provider %q", name)
		}
		want[name] = true
	}
	for name, found := range want {
		if !found {
			t.Errorf("provider %q missing", name)
		}
	}
}

func TestMessageConstructors(t *testing.T) {
	tests := []struct {
		msg  ChatMessage
		role string
	}{
		{SystemMessage("a"), "system"},
		{UserMessage("b"), "user"},
		{AssistantMessage("c"), "assistant"},
	}

	for _, tt := range tests {
		if tt.msg.Role != tt.role {
			t.Errorf("role = %q, want %q", tt.msg.Role, tt.role)
		}
		if tt.msg.Timestamp == "" {
			t.Errorf("%s message missing timestamp", tt.role)
		}
	}
}
