// Package llm abstracts chat-completion providers behind a single Client
// interface. DashScope and Kimi expose OpenAI-compatible endpoints, so both
// share the openAICompatibleClient with a provider-specific base URL.
package llm

import (
	"context"
	"fmt"

	"github.com/platformai/qa-agent/config"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// StreamClient is implemented by clients that can deliver the answer
// incrementally. Callers must be prepared for a Client that does not.
type StreamClient interface {
	Client
	GenerateStream(ctx context.Context, messages []Message, fn func(string) error) error
}

type Options struct {
	Provider string
	Model    string

	APIKey  string
	BaseURL string

	OllamaHost string
}

func NewClient(cfg config.Config) (Client, error) {
	opts := Options{
		Provider:   cfg.Provider,
		Model:      cfg.Model,
		OllamaHost: cfg.OllamaHost,
	}

	switch cfg.Provider {
	case config.ProviderDashScope:
		opts.APIKey = cfg.DashScopeAPIKey
		opts.BaseURL = cfg.DashScopeAPIBase
	case config.ProviderKimi:
		opts.APIKey = cfg.KimiAPIKey
		opts.BaseURL = cfg.KimiAPIBase
	case config.ProviderOpenAI:
		opts.APIKey = cfg.OpenAIAPIKey
		opts.BaseURL = cfg.OpenAIBaseURL
	case config.ProviderOllama:
		return NewOllamaClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}

	if opts.APIKey == "" {
		return nil, fmt.Errorf("provider %s selected but no API key configured", cfg.Provider)
	}

	return NewOpenAICompatibleClient(opts), nil
}
