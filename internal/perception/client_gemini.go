package perception

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lifecoach/internal/logging"

	"google.golang.org/genai"
)

// GeminiClient implements LLMClient on the Google GenAI SDK.
type GeminiClient struct {
	client       *genai.Client
	model        string
	temperature  float32
	timeout      time.Duration
	systemPrompt string
}

// NewGeminiClient creates a Gemini client from config.
func NewGeminiClient(ctx context.Context, config ClientConfig) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if config.Model == "" {
		config.Model = DefaultModel(ProviderGemini)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	sys := config.SystemPrompt
	if sys == "" {
		sys = defaultSystemPrompt
	}

	return &GeminiClient{
		client:       client,
		model:        config.Model,
		temperature:  float32(config.Temperature),
		timeout:      config.Timeout,
		systemPrompt: sys,
	}, nil
}

// Complete sends a prompt with the default system prompt.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, c.systemPrompt, prompt)
}

// CompleteWithSystem sends a prompt with a system instruction.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	logging.APIDebug("gemini %s: %d chars in %v", c.model, len(text), time.Since(start))
	return text, nil
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.model
}
