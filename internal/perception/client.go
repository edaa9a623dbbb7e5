// Package perception turns text into actions. It holds the text-generation
// clients used to propose and repair plans, and the translator that maps a
// free-form step onto the action grammar.
package perception

import (
	"context"
	"fmt"

	"homeplan/internal/config"
)

// LLMClient defines the interface for text generation providers.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// NewClientFromConfig builds the configured client, wrapped with tracing and
// the minimum inter-call delay.
func NewClientFromConfig(ctx context.Context, cfg *config.Config) (LLMClient, error) {
	var base LLMClient
	switch cfg.LLM.Provider {
	case "gemini":
		c, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.GetLLMTimeout(),
		})
		if err != nil {
			return nil, err
		}
		base = c
	case "scripted":
		script, err := LoadScript(cfg.LLM.ScriptPath)
		if err != nil {
			return nil, err
		}
		base = NewScriptedClient(script)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}

	return NewRateLimited(NewTracingClient(base), cfg.GetMinDelay()), nil
}
