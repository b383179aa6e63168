// Package main provides the chatvault CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/richinex/chatvault/cli"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	provider     string
	systemPrompt string
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "chatvault",
		Short: "Chat with an LLM over tiered conversation memory",
		Long: `chatvault keeps conversation history in a fast TTL-bound cache backed by a
durable store, persisting cached conversations before they would be evicted.

Configuration comes from the environment (CACHE_*, PERSISTENCE_*, LLM_*);
a .env file in the working directory is loaded automatically.`,
	}

	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().StringVar(&systemPrompt, "system", "", "System prompt for new conversations")

	rootCmd.AddCommand(chatCmd(ctx))
	rootCmd.AddCommand(listCmd(ctx))
	rootCmd.AddCommand(deleteCmd(ctx))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func chatCmd(ctx context.Context) *cobra.Command {
	var chatID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start or resume an interactive chat session",
		RunE: func(_ *cobra.Command, _ []string) error {
			opts := cli.Options{Provider: provider, SystemPrompt: systemPrompt}
			return cli.Chat(ctx, chatID, opts)
		},
	}
	cmd.Flags().StringVarP(&chatID, "chat-id", "c", "", "Resume an existing conversation")
	return cmd
}

func listCmd(ctx context.Context) *cobra.Command {
	var source string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known conversations",
		RunE: func(_ *cobra.Command, _ []string) error {
			return cli.List(ctx, source, limit)
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "all", "Source to list: all, cache, persistence")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum number of results")
	return cmd
}

func deleteCmd(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <chat-id>",
		Short: "Delete a conversation from every storage tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return cli.Delete(ctx, args[0])
		},
	}
}
