package session

import (
	"context"
	"errors"
	"sync"

	"lifecoach/internal/types"
	"lifecoach/internal/usage"
)

var errBroken = errors.New("backend unreachable")

// --- MockLLMClient ---

// MockLLMClient answers by the operation label on the context.
type MockLLMClient struct {
	Responses map[string]string
	Errors    map[string]error

	mu    sync.Mutex
	calls []string
}

func (m *MockLLMClient) Complete(ctx context.Context, prompt string) (string, error) {
	return m.CompleteWithSystem(ctx, "", prompt)
}

func (m *MockLLMClient) CompleteWithSystem(ctx context.Context, sys, user string) (string, error) {
	op := usage.OperationFromContext(ctx)
	m.mu.Lock()
	m.calls = append(m.calls, op)
	m.mu.Unlock()
	if err := m.Errors[op]; err != nil {
		return "", err
	}
	if raw, ok := m.Responses[op]; ok {
		return raw, nil
	}
	return "", context.DeadlineExceeded
}

func (m *MockLLMClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// --- MockHandler ---

type MockHandler struct {
	Cat         types.Category
	ProcessFunc func(ctx context.Context, message string, history []types.Message, hint string) (types.HandlerReply, error)

	mu    sync.Mutex
	hints []string
}

func (m *MockHandler) Category() types.Category { return m.Cat }

func (m *MockHandler) Process(ctx context.Context, message string, history []types.Message, hint string) (types.HandlerReply, error) {
	m.mu.Lock()
	m.hints = append(m.hints, hint)
	m.mu.Unlock()
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, message, history, hint)
	}
	return types.HandlerReply{Category: m.Cat, Response: string(m.Cat) + " advice"}, nil
}

func (m *MockHandler) Hints() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.hints...)
}

func replyHandler(cat types.Category, text string) *MockHandler {
	return &MockHandler{Cat: cat, ProcessFunc: func(ctx context.Context, message string, history []types.Message, hint string) (types.HandlerReply, error) {
		return types.HandlerReply{Category: cat, Response: text}, nil
	}}
}

// --- MockArchiver ---

type archiveCall struct {
	UserID, Message, Response string
	Category                  types.Category
}

type MockArchiver struct {
	ArchiveFunc func(ctx context.Context, userID, message, response string, cat types.Category) (bool, error)
	RecallFunc  func(ctx context.Context, userID, query string, limit int) ([]types.ScoredRecord, error)

	mu       sync.Mutex
	archived []archiveCall
	recalls  int
}

func (m *MockArchiver) ArchiveIfImportant(ctx context.Context, userID, message, response string, cat types.Category) (bool, error) {
	m.mu.Lock()
	m.archived = append(m.archived, archiveCall{userID, message, response, cat})
	m.mu.Unlock()
	if m.ArchiveFunc != nil {
		return m.ArchiveFunc(ctx, userID, message, response, cat)
	}
	return true, nil
}

func (m *MockArchiver) Recall(ctx context.Context, userID, query string, limit int) ([]types.ScoredRecord, error) {
	m.mu.Lock()
	m.recalls++
	m.mu.Unlock()
	if m.RecallFunc != nil {
		return m.RecallFunc(ctx, userID, query, limit)
	}
	return nil, nil
}

func (m *MockArchiver) Archived() []archiveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]archiveCall(nil), m.archived...)
}

// --- brokenStore ---

// brokenStore fails every call, like a backend that went away.
type brokenStore struct{}

func (brokenStore) Append(context.Context, string, types.Role, string) (bool, error) {
	return false, errBroken
}

func (brokenStore) AppendTagged(context.Context, string, types.Role, string, types.Category) (bool, error) {
	return false, errBroken
}

func (brokenStore) Read(context.Context, string, int) ([]types.Message, error) {
	return nil, errBroken
}

func (brokenStore) Clear(context.Context, string) (bool, error) { return false, errBroken }
func (brokenStore) Backend() string                             { return "broken" }
func (brokenStore) Close() error                                { return nil }
