package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"promptops-hq/promptops/pkg/engine"
	"promptops-hq/promptops/pkg/providers"
)

var chatFlags struct {
	org         string
	project     string
	provider    string
	model       string
	system      string
	maxTokens   int
	temperature float64
	noCache     bool
	ttl         time.Duration
	reserve     bool
}

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send one chat request through the cache and budget pipeline",
	Long: `Send one chat request through the full pipeline: cache lookup, budget
admission, the provider call, spend recording, and cache fill.

A cache hit returns immediately, costs nothing, and records no spend.
A live call is only made when the budget (if one is set for the given
org/project scope) approves it.

Examples:
  # Simple request
  promptops chat --provider openai --model gpt-4o "Explain CRDTs"

  # Attribute spend to a budget scope
  promptops chat --org acme --project demo \
    --provider anthropic --model claude-sonnet-4-20250514 "Summarize this"

  # Bypass the cache
  promptops chat --no-cache --provider openai --model gpt-4o "Fresh answer"`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&chatFlags.org, "org", "", "organization for budget attribution")
	chatCmd.Flags().StringVar(&chatFlags.project, "project", "", "project for budget attribution")
	chatCmd.Flags().StringVar(&chatFlags.provider, "provider", "", "provider name (required)")
	chatCmd.Flags().StringVar(&chatFlags.model, "model", "", "model name (required)")
	chatCmd.Flags().StringVar(&chatFlags.system, "system", "", "system prompt")
	chatCmd.Flags().IntVar(&chatFlags.maxTokens, "max-tokens", 0, "completion token cap")
	chatCmd.Flags().Float64Var(&chatFlags.temperature, "temperature", 0, "sampling temperature")
	chatCmd.Flags().BoolVar(&chatFlags.noCache, "no-cache", false, "bypass the cache")
	chatCmd.Flags().DurationVar(&chatFlags.ttl, "ttl", 0, "cache lifetime for this response (0 uses config)")
	chatCmd.Flags().BoolVar(&chatFlags.reserve, "reserve", false, "reserve budget before the call")
	chatCmd.MarkFlagRequired("provider")
	chatCmd.MarkFlagRequired("model")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	cacheStore, err := openCacheStore(cfg)
	if err != nil {
		return err
	}
	defer cacheStore.Close()

	calc, err := newCalculator(cfg)
	if err != nil {
		return err
	}
	budgetStore, err := openBudgetStore(cfg, calc)
	if err != nil {
		return err
	}
	defer budgetStore.Close()

	eng := engine.New(engine.Config{
		Cache:      cacheStore,
		Budget:     budgetStore,
		Providers:  buildProviders(cfg),
		DefaultTTL: time.Duration(cfg.Cache.DefaultTTLHours) * time.Hour,
		Reserve:    chatFlags.reserve,
	})

	var messages []providers.Message
	if chatFlags.system != "" {
		messages = append(messages, providers.Message{Role: "system", Content: chatFlags.system})
	}
	messages = append(messages, providers.Message{Role: "user", Content: args[0]})

	result, err := eng.Execute(context.Background(), engine.Request{
		Org:      chatFlags.org,
		Project:  chatFlags.project,
		Provider: chatFlags.provider,
		Messages: messages,
		Options: providers.ChatOptions{
			Model:       chatFlags.model,
			MaxTokens:   chatFlags.maxTokens,
			Temperature: chatFlags.temperature,
		},
		SkipCache: chatFlags.noCache,
		TTL:       chatFlags.ttl,
	})
	if err != nil {
		if result != nil && result.Decision != nil && !result.Decision.Approved {
			fmt.Printf("Denied: %s (projected $%.4f against a $%.2f limit)\n",
				result.Decision.Reason,
				result.Decision.ProjectedSpendUSD,
				result.Decision.Status.MonthlyLimitUSD)
		}
		return err
	}

	fmt.Println(strings.TrimSpace(result.Response.Content))
	if verbose {
		if result.Cached {
			fmt.Printf("\n[cached, key %s]\n", result.CacheKey)
		} else {
			fmt.Printf("\n[%d in / %d out tokens, $%.6f]\n",
				result.Response.Usage.InputTokens,
				result.Response.Usage.OutputTokens,
				result.CostUSD)
		}
	}
	return nil
}
