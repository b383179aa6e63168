package agent

import (
	"context"
	"fmt"

	"github.com/richinex/chatvault/history"
	"github.com/richinex/chatvault/llm"
)

// ChatAgent answers questions over an LLM provider, accumulating the exchange
// on a Thread. It implements the history.Agent contract so the manager can
// create and restore threads without knowing about providers.
type ChatAgent struct {
	provider     llm.Provider
	systemPrompt string
}

// NewChatAgent creates an agent over the given provider. An empty system
// prompt omits the system message entirely.
func NewChatAgent(provider llm.Provider, systemPrompt string) *ChatAgent {
	return &ChatAgent{
		provider:     provider,
		systemPrompt: systemPrompt,
	}
}

// NewThread creates an empty thread, seeded with the system prompt if set.
func (a *ChatAgent) NewThread() history.Thread {
	t := NewThread()
	if a.systemPrompt != "" {
		t.Append(llm.SystemMessage(a.systemPrompt))
	}
	return t
}

// DeserializeThread reconstructs a thread from serialized state.
func (a *ChatAgent) DeserializeThread(data history.ThreadData) (history.Thread, error) {
	return deserializeThread(data)
}

// Respond appends the user's message to the thread, asks the provider for a
// completion over the full history, appends the reply, and returns it.
func (a *ChatAgent) Respond(ctx context.Context, thread history.Thread, input string) (string, error) {
	t, ok := thread.(*Thread)
	if !ok {
		return "", fmt.Errorf("unexpected thread type %T", thread)
	}

	t.Append(llm.UserMessage(input))

	resp, err := a.provider.Chat(ctx, t.Messages())
	if err != nil {
		return "", fmt.Errorf("agent response failed: %w", err)
	}

	t.Append(llm.AssistantMessage(resp.Content))
	return resp.Content, nil
}

// Provider returns the underlying provider.
func (a *ChatAgent) Provider() llm.Provider {
	return a.provider
}

var _ history.Agent = (*ChatAgent)(nil)
