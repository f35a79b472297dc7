package types

import (
	"context"
	"errors"
)

// Sentinel errors shared across packages.
var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrRegistrySealed  = errors.New("handler registry is sealed")
	ErrNoHandlers      = errors.New("no handler could be started")
)

// LLMClient defines the interface for LLM interactions.
// Every model-backed step (classification, context, merge, importance) goes through it.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
