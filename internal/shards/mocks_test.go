package shards

import (
	"context"
	"sync"

	"lifecoach/internal/types"
)

// --- MockHandler ---

type MockHandler struct {
	Cat         types.Category
	ProcessFunc func(ctx context.Context, message string, history []types.Message, hint string) (types.HandlerReply, error)

	mu       sync.Mutex
	calls    int
	lastHint string
}

func (m *MockHandler) Category() types.Category { return m.Cat }

func (m *MockHandler) Process(ctx context.Context, message string, history []types.Message, hint string) (types.HandlerReply, error) {
	m.mu.Lock()
	m.calls++
	m.lastHint = hint
	m.mu.Unlock()
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, message, history, hint)
	}
	return types.HandlerReply{Category: m.Cat, Response: string(m.Cat) + " answer"}, nil
}

func (m *MockHandler) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockHandler) LastHint() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHint
}

// --- MockLLMClient ---

type MockLLMClient struct {
	CompleteWithSystemFunc func(ctx context.Context, sys, user string) (string, error)
}

func (m *MockLLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteWithSystem(ctx, "", prompt)
}

func (m *MockLLMClient) CompleteWithSystem(ctx context.Context, sys, user string) (string, error) {
	if m.CompleteWithSystemFunc != nil {
		return m.CompleteWithSystemFunc(ctx, sys, user)
	}
	return "", nil
}
