// Package llm provides the chat completion abstraction and shared data models
// for the supported LLM providers.
package llm

import "time"

// ChatMessage represents one conversation entry. The timestamp is part of a
// message's identity when histories from different writers are reconciled.
type ChatMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// SystemMessage creates a timestamped system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content, Timestamp: now()}
}

// UserMessage creates a timestamped user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content, Timestamp: now()}
}

// AssistantMessage creates a timestamped assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content, Timestamp: now()}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// LLMResponse represents a response from an LLM provider.
type LLMResponse struct {
	Content string
	Usage   *TokenUsage
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}
