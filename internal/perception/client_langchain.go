package perception

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lifecoach/internal/logging"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainClient implements LLMClient over any langchaingo model.
// Used for the OpenAI-compatible and Ollama providers.
type LangChainClient struct {
	llm          llms.Model
	name         string
	temperature  float64
	timeout      time.Duration
	systemPrompt string
}

// NewOpenAIClient creates an OpenAI-compatible client.
func NewOpenAIClient(config ClientConfig) (*LangChainClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if config.Model == "" {
		config.Model = DefaultModel(ProviderOpenAI)
	}

	opts := []openai.Option{
		openai.WithToken(config.APIKey),
		openai.WithModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return newLangChainClient(llm, "openai:"+config.Model, config), nil
}

// NewOllamaClient creates a client for a local Ollama server.
func NewOllamaClient(config ClientConfig) (*LangChainClient, error) {
	if config.Model == "" {
		config.Model = DefaultModel(ProviderOllama)
	}

	opts := []ollama.Option{ollama.WithModel(config.Model)}
	if config.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(config.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return newLangChainClient(llm, "ollama:"+config.Model, config), nil
}

func newLangChainClient(llm llms.Model, name string, config ClientConfig) *LangChainClient {
	sys := config.SystemPrompt
	if sys == "" {
		sys = defaultSystemPrompt
	}
	return &LangChainClient{
		llm:          llm,
		name:         name,
		temperature:  config.Temperature,
		timeout:      config.Timeout,
		systemPrompt: sys,
	}
}

// Complete sends a prompt with the default system prompt.
func (c *LangChainClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, c.systemPrompt, prompt)
}

// CompleteWithSystem sends a prompt with a system message.
func (c *LangChainClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msgs := make([]llms.MessageContent, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, userPrompt))

	start := time.Now()
	resp, err := c.llm.GenerateContent(ctx, msgs, llms.WithTemperature(c.temperature))
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", c.name, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", c.name)
	}

	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", fmt.Errorf("%s returned an empty response", c.name)
	}
	logging.APIDebug("%s: %d chars in %v", c.name, len(text), time.Since(start))
	return text, nil
}

// Name returns provider:model.
func (c *LangChainClient) Name() string {
	return c.name
}
