// Package perception turns a raw user message into a routing decision.
// It owns the language model clients, the keyword tables, follow-up
// detection, reference parsing and the classifier itself.
package perception

import (
	"time"

	"lifecoach/internal/types"
)

const defaultSystemPrompt = "You are a concise, supportive life coach assistant. Follow the output format you are given exactly."

// LLMClient defines the interface for LLM providers.
// This is an alias to types.LLMClient so callers can stay within the perception package.
type LLMClient = types.LLMClient

// Provider represents an LLM provider.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// ClientConfig holds configuration for any LLM client.
type ClientConfig struct {
	Provider     Provider
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      time.Duration
	Temperature  float64
	SystemPrompt string
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderOllama:
		return "llama3.1"
	default:
		return "gemini-2.5-flash"
	}
}
