// Package embeddings turns text into fixed-length vectors for similarity
// search. The DashScope and OpenAI providers share the same wire format.
package embeddings

import (
	"context"
	"fmt"

	"github.com/platformai/qa-agent/config"
)

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Options struct {
	Provider  string
	Model     string
	Dimension int

	APIKey  string
	BaseURL string

	OllamaHost string
}

func NewEmbedder(cfg config.Config) (Embedder, error) {
	opts := Options{
		Provider:   cfg.Embeddings.Provider,
		Model:      cfg.Embeddings.Model,
		Dimension:  cfg.Embeddings.Dimension,
		OllamaHost: cfg.OllamaHost,
	}

	switch opts.Provider {
	case config.ProviderDashScope:
		opts.APIKey = cfg.DashScopeAPIKey
		opts.BaseURL = cfg.DashScopeAPIBase
	case config.ProviderOpenAI:
		opts.APIKey = cfg.OpenAIAPIKey
		opts.BaseURL = cfg.OpenAIBaseURL
	case config.ProviderOllama:
		return NewOllamaEmbedder(opts), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", opts.Provider)
	}

	if opts.APIKey == "" {
		return nil, fmt.Errorf("embedding provider %s selected but no API key configured", opts.Provider)
	}

	return NewOpenAIEmbedder(opts), nil
}
