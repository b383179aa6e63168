// Command execution for CLI commands.
//
// Information Hiding:
// - Manager/agent/storage wiring hidden
// - Interactive loop and output formatting hidden

package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/richinex/chatvault/agent"
	"github.com/richinex/chatvault/config"
	"github.com/richinex/chatvault/history"
	"github.com/richinex/chatvault/llm"
)

// Options holds CLI execution options.
type Options struct {
	Provider     string
	SystemPrompt string
}

// buildManager wires the storage tiers and the manager from settings. The
// tiers are constructed once here and injected; the manager owns their
// teardown through its Close.
func buildManager(settings config.Settings) (*history.Manager, error) {
	var cache history.Cache
	if settings.Cache.Enabled {
		cache = history.NewRedisCache(settings.Cache)
	} else {
		cache = history.NewInMemoryCache(settings.Cache.TTL)
	}

	var store history.Store
	if settings.Persistence.Enabled {
		var err error
		store, err = history.OpenSqliteStore(settings.Persistence)
		if err != nil {
			return nil, fmt.Errorf("failed to open durable store: %w", err)
		}
	}

	cfg := history.Config{Cache: settings.Cache, Persistence: settings.Persistence}
	return history.NewManager(cfg, cache, store, nil), nil
}

// Chat starts an interactive chat session, resuming chatID when given.
func Chat(ctx context.Context, chatID string, opts Options) error {
	settings, err := config.New()
	if err != nil {
		return err
	}
	if opts.Provider != "" {
		settings.LLM.Provider = opts.Provider
	}

	provider, err := llm.NewProvider(settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.MaxTokens, settings.LLM.Temperature)
	if err != nil {
		return err
	}

	manager, err := buildManager(settings)
	if err != nil {
		return err
	}
	defer func() { _ = manager.Close(ctx) }()

	chatAgent := agent.NewChatAgent(provider, opts.SystemPrompt)
	manager.SetAgent(chatAgent)
	manager.StartBackgroundPersist(ctx)

	chatID, thread, err := manager.GetOrCreateThread(ctx, chatID)
	if err != nil {
		return err
	}

	fmt.Printf("Chat %s (%s/%s). Type 'exit' to quit, '/persist' to force a durable save.\n\n",
		chatID, provider.Name(), provider.Model())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())

		switch {
		case input == "":
			continue
		case input == "exit" || input == "quit":
			return nil
		case input == "/persist":
			if manager.SaveThread(ctx, chatID, thread, true) {
				fmt.Println("persisted.")
			} else {
				fmt.Println("persist failed, see logs.")
			}
			continue
		}

		reply, err := chatAgent.Respond(ctx, thread, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Printf("%s\n\n", reply)

		// Save degrades rather than interrupting the conversation.
		manager.SaveThread(ctx, chatID, thread, false)
	}

	return scanner.Err()
}

// List prints known conversations from the requested source.
func List(ctx context.Context, source string, limit int) error {
	settings, err := config.New()
	if err != nil {
		return err
	}

	manager, err := buildManager(settings)
	if err != nil {
		return err
	}
	defer func() { _ = manager.Close(ctx) }()

	chats := manager.ListChats(ctx, source, limit)
	if len(chats) == 0 {
		fmt.Println("No chats found.")
		return nil
	}

	for _, info := range chats {
		var origin string
		switch {
		case info.Active:
			origin = "active"
		case info.Cached:
			origin = "cached"
		default:
			origin = "persisted"
		}
		fmt.Printf("%-36s  %-9s", info.ChatID, origin)
		if info.MessageCount > 0 {
			fmt.Printf("  %d msgs", info.MessageCount)
		}
		if !info.LastModified.IsZero() {
			fmt.Printf("  %s", info.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}
	return nil
}

// Delete removes a conversation from every storage tier.
func Delete(ctx context.Context, chatID string) error {
	settings, err := config.New()
	if err != nil {
		return err
	}

	manager, err := buildManager(settings)
	if err != nil {
		return err
	}
	defer func() { _ = manager.Close(ctx) }()

	if !manager.DeleteChat(ctx, chatID) {
		return fmt.Errorf("delete incomplete for chat %s", chatID)
	}
	fmt.Printf("Deleted %s\n", chatID)
	return nil
}
