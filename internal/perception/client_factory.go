package perception

import (
	"context"
	"fmt"
	"time"

	"lifecoach/internal/config"
)

// ConfigFromLLM converts the config file's llm section into a ClientConfig.
func ConfigFromLLM(cfg *config.Config) ClientConfig {
	return ClientConfig{
		Provider:    Provider(cfg.LLM.Provider),
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Timeout:     cfg.GetLLMTimeout(),
		Temperature: cfg.LLM.Temperature,
	}
}

// NewClient creates an LLM client for the configured provider.
func NewClient(ctx context.Context, cfg ClientConfig) (LLMClient, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	switch cfg.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg)
	case ProviderOllama:
		return NewOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
