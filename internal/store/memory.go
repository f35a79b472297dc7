package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"lifecoach/internal/types"
)

// MemoryConversationStore keeps logs in a map keyed by user id.
// It is not persistent.
type MemoryConversationStore struct {
	mu         sync.RWMutex
	logs       map[string][]types.Message
	maxHistory int
	now        func() time.Time
}

// NewMemoryConversationStore creates an empty store capped at maxHistory per user.
func NewMemoryConversationStore(maxHistory int) *MemoryConversationStore {
	return &MemoryConversationStore{
		logs:       make(map[string][]types.Message),
		maxHistory: maxHistory,
		now:        time.Now,
	}
}

func (s *MemoryConversationStore) Append(ctx context.Context, userID string, role types.Role, content string) (bool, error) {
	return s.AppendTagged(ctx, userID, role, content, "")
}

func (s *MemoryConversationStore) AppendTagged(_ context.Context, userID string, role types.Role, content string, cat types.Category) (bool, error) {
	if err := validateAppend(userID, role); err != nil {
		return false, err
	}
	msg := types.Message{Role: role, Content: content, Timestamp: s.now().UTC(), Category: cat}

	s.mu.Lock()
	defer s.mu.Unlock()
	log := append(s.logs[userID], msg)
	if s.maxHistory > 0 && len(log) > s.maxHistory {
		// copy so evicted messages can be collected
		log = append([]types.Message(nil), log[len(log)-s.maxHistory:]...)
	}
	s.logs[userID] = log
	return true, nil
}

func (s *MemoryConversationStore) Read(_ context.Context, userID string, limit int) ([]types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := tail(s.logs[userID], limit)
	return append([]types.Message(nil), msgs...), nil
}

func (s *MemoryConversationStore) Clear(_ context.Context, userID string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.logs[userID]
	delete(s.logs, userID)
	return existed, nil
}

func (s *MemoryConversationStore) Backend() string { return BackendMemory }

func (s *MemoryConversationStore) Close() error { return nil }
