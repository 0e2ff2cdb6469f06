// Package config loads gateway configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderDashScope = "dashscope"
	ProviderKimi      = "kimi"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// defaultModelByProvider picks the chat model when MODEL is unset.
var defaultModelByProvider = map[string]string{
	ProviderDashScope: "qwen2.5-7b-instruct",
	ProviderKimi:      "kimi-k2-instruct",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderOllama:    "llama3.1:8b",
}

type EmbeddingConfig struct {
	Provider  string
	Model     string
	Dimension int
}

type RAGConfig struct {
	Enabled       bool
	TopK          int
	ContextBudget int
	// ExtraKeywords are additional topic variants appended to the built-in
	// PlatformAI/TokenAI list.
	ExtraKeywords []string
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

type Config struct {
	Provider string
	Model    string
	Port     int

	PostgresDSN string

	DashScopeAPIKey  string
	DashScopeAPIBase string
	KimiAPIKey       string
	KimiAPIBase      string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OllamaHost       string

	Embeddings EmbeddingConfig
	RAG        RAGConfig
	CORS       CORSConfig
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Provider:         strings.ToLower(getEnv("PROVIDER", ProviderDashScope)),
		Port:             getEnvInt("PORT", 8000),
		PostgresDSN:      getEnv("POSTGRES_DSN", "postgres://localhost:5432/qa-agent?sslmode=disable"),
		DashScopeAPIKey:  getEnv("DASHSCOPE_API_KEY", ""),
		DashScopeAPIBase: getEnv("DASHSCOPE_API_BASE", "https://dashscope.aliyuncs.com/compatible-mode/v1"),
		KimiAPIKey:       getEnv("KIMI_API_KEY", ""),
		KimiAPIBase:      getEnv("KIMI_API_BASE", "https://api.moonshot.cn/v1"),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		OllamaHost:       getEnv("OLLAMA_HOST", "http://localhost:11434"),
		Embeddings: EmbeddingConfig{
			Provider:  strings.ToLower(getEnv("EMBEDDING_PROVIDER", ProviderDashScope)),
			Model:     getEnv("EMBEDDING_MODEL", "text-embedding-v3"),
			Dimension: getEnvInt("EMBEDDING_DIMENSION", 1024),
		},
		RAG: RAGConfig{
			Enabled:       getEnvBool("RAG_ENABLED", true),
			TopK:          getEnvInt("RAG_TOP_K", 5),
			ContextBudget: getEnvInt("RAG_CONTEXT_BUDGET", 6000),
			ExtraKeywords: splitList(getEnv("RAG_EXTRA_KEYWORDS", "")),
		},
		CORS: CORSConfig{
			AllowedOrigins:   splitList(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173,http://localhost:3000")),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),
		},
	}

	cfg.Model = getEnv("MODEL", defaultModelByProvider[cfg.Provider])

	// A wildcard origin may not be combined with credentials per the CORS spec.
	if len(cfg.CORS.AllowedOrigins) == 1 && cfg.CORS.AllowedOrigins[0] == "*" {
		cfg.CORS.AllowCredentials = false
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.Provider {
	case ProviderDashScope:
		if c.DashScopeAPIKey == "" {
			return fmt.Errorf("DASHSCOPE_API_KEY is not set but provider is %q", c.Provider)
		}
	case ProviderKimi:
		if c.KimiAPIKey == "" {
			return fmt.Errorf("KIMI_API_KEY is not set but provider is %q", c.Provider)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is not set but provider is %q", c.Provider)
		}
	case ProviderOllama:
		// local provider, no key required
	default:
		return fmt.Errorf("unsupported provider: %q", c.Provider)
	}

	switch c.Embeddings.Provider {
	case ProviderDashScope:
		if c.DashScopeAPIKey == "" {
			return fmt.Errorf("DASHSCOPE_API_KEY is not set but embedding provider is %q", c.Embeddings.Provider)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is not set but embedding provider is %q", c.Embeddings.Provider)
		}
	case ProviderOllama:
	default:
		return fmt.Errorf("unsupported embedding provider: %q", c.Embeddings.Provider)
	}

	if c.Embeddings.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embeddings.Dimension)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
