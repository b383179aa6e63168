// Package agent provides the conversational agent and its thread state,
// implementing the serialize/deserialize contract the history manager
// requires.
//
// Information Hiding:
// - Message accumulation and ordering hidden behind Thread
// - Serialization normalizes through JSON so in-memory and restored
//   threads are indistinguishable to the storage layers

package agent

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/richinex/chatvault/history"
	"github.com/richinex/chatvault/llm"
)

// Thread holds the ordered message history of one conversation.
// Thread-safe: the chat loop and the background persist sweep may touch the
// same thread.
type Thread struct {
	mu       sync.Mutex
	messages []llm.ChatMessage
}

// NewThread creates an empty thread.
func NewThread() *Thread {
	return &Thread{}
}

// Append adds a message to the end of the history.
func (t *Thread) Append(msg llm.ChatMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msg)
}

// Messages returns a copy of the ordered history.
func (t *Thread) Messages() []llm.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	copied := make([]llm.ChatMessage, len(t.messages))
	copy(copied, t.messages)
	return copied
}

// Len returns the number of messages.
func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// Serialize returns the thread's full accumulated state. The round-trip
// through JSON yields the same generic shape a restored blob has.
func (t *Thread) Serialize() (history.ThreadData, error) {
	t.mu.Lock()
	payload := struct {
		Messages []llm.ChatMessage `json:"messages"`
	}{Messages: t.messages}
	raw, err := json.Marshal(payload)
	t.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize thread: %w", err)
	}

	var data history.ThreadData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to serialize thread: %w", err)
	}
	return data, nil
}

// deserializeThread reconstructs a thread from serialized state.
func deserializeThread(data history.ThreadData) (*Thread, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize thread: %w", err)
	}

	var payload struct {
		Messages []llm.ChatMessage `json:"messages"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to deserialize thread: %w", err)
	}

	return &Thread{messages: payload.Messages}, nil
}

var _ history.Thread = (*Thread)(nil)
