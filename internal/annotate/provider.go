package annotate

import (
	"context"
	"fmt"
)

// Item is the part of a food record sent to a provider
type Item struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Calories    int    `json:"calories,omitempty"`
}

// Tagged is one provider verdict
type Tagged struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// Provider defines the interface for dietary tagging
type Provider interface {
	Tag(ctx context.Context, items []Item) ([]Tagged, error)
}

// NewProvider creates a new provider based on the provider name
func NewProvider(name, model string) (Provider, error) {
	switch name {
	case "claude", "anthropic":
		return NewClaudeProvider(model)
	case "openai", "gpt":
		return NewOpenAIProvider(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai)", name)
	}
}
