// Package llm provides completion providers for signal classification.
// Providers return the raw model output; callers are responsible for
// parsing whatever structure they asked the model for.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Provider sends a prompt to a completion endpoint and returns the raw
// response text.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewProvider creates a provider from config
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "groq", "openai":
		return NewGroqProvider(cfg), nil
	case "ollama":
		return NewOllamaProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
