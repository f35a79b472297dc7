package contextbuild

import (
	"context"
	"sync"
)

type MockLLMClient struct {
	CompleteWithSystemFunc func(ctx context.Context, sys, user string) (string, error)

	mu       sync.Mutex
	calls    int
	lastUser string
}

func (m *MockLLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteWithSystem(ctx, "", prompt)
}

func (m *MockLLMClient) CompleteWithSystem(ctx context.Context, sys, user string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.lastUser = user
	m.mu.Unlock()
	if m.CompleteWithSystemFunc != nil {
		return m.CompleteWithSystemFunc(ctx, sys, user)
	}
	return "", nil
}

func (m *MockLLMClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockLLMClient) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUser
}

func replyWith(text string) *MockLLMClient {
	return &MockLLMClient{
		CompleteWithSystemFunc: func(ctx context.Context, sys, user string) (string, error) {
			return text, nil
		},
	}
}
