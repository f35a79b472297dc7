package archival

import (
	"context"
	"sync"

	"lifecoach/internal/types"
)

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

func verdictLLM(raw string) *MockLLMClient {
	return &MockLLMClient{CompleteWithSystemFunc: func(ctx context.Context, sys, user string) (string, error) {
		return raw, nil
	}}
}

// --- MockEmbeddingEngine ---

type MockEmbeddingEngine struct {
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)

	mu    sync.Mutex
	texts []string
}

func (m *MockEmbeddingEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return []float32{0.1, 0.2, 0.3, 0.4}, nil
}

func (m *MockEmbeddingEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *MockEmbeddingEngine) Dimensions() int { return 4 }

func (m *MockEmbeddingEngine) Name() string { return "mock-embedding-engine" }

func (m *MockEmbeddingEngine) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// --- MockSemanticStore ---

type MockSemanticStore struct {
	UpsertFunc func(ctx context.Context, collection string, rec types.ArchiveRecord) error

	mu      sync.Mutex
	upserts []types.ArchiveRecord
}

func (m *MockSemanticStore) Upsert(ctx context.Context, collection string, rec types.ArchiveRecord) error {
	m.mu.Lock()
	m.upserts = append(m.upserts, rec)
	m.mu.Unlock()
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, collection, rec)
	}
	return nil
}

func (m *MockSemanticStore) Search(ctx context.Context, collection, userID string, query []float32, limit int) ([]types.ScoredRecord, error) {
	return nil, nil
}

func (m *MockSemanticStore) Close() error { return nil }

func (m *MockSemanticStore) Upserts() []types.ArchiveRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.ArchiveRecord(nil), m.upserts...)
}
