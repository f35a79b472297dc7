package store

import (
	"context"
	"sync"

	"lifecoach/internal/types"
)

// MockConversationStore implements ConversationStore with optional func fields.
type MockConversationStore struct {
	AppendTaggedFunc func(ctx context.Context, userID string, role types.Role, content string, cat types.Category) (bool, error)
	ReadFunc         func(ctx context.Context, userID string, limit int) ([]types.Message, error)
	ClearFunc        func(ctx context.Context, userID string) (bool, error)

	mu     sync.Mutex
	calls  int
	closed bool
}

func (m *MockConversationStore) count() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *MockConversationStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockConversationStore) Append(ctx context.Context, userID string, role types.Role, content string) (bool, error) {
	return m.AppendTagged(ctx, userID, role, content, "")
}

func (m *MockConversationStore) AppendTagged(ctx context.Context, userID string, role types.Role, content string, cat types.Category) (bool, error) {
	m.count()
	if m.AppendTaggedFunc != nil {
		return m.AppendTaggedFunc(ctx, userID, role, content, cat)
	}
	return true, nil
}

func (m *MockConversationStore) Read(ctx context.Context, userID string, limit int) ([]types.Message, error) {
	m.count()
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, userID, limit)
	}
	return nil, nil
}

func (m *MockConversationStore) Clear(ctx context.Context, userID string) (bool, error) {
	m.count()
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx, userID)
	}
	return false, nil
}

func (m *MockConversationStore) Backend() string { return "mock" }

func (m *MockConversationStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
