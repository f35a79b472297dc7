package store

import (
	"context"

	"lifecoach/internal/config"
	"lifecoach/internal/logging"
)

// NewConversationStore builds the configured backend behind a fallback store.
// A primary that cannot be reached at startup yields the memory store directly;
// this never fails.
func NewConversationStore(ctx context.Context, cfg *config.Config) ConversationStore {
	max := cfg.Store.MaxHistory

	var primary ConversationStore
	var err error
	switch cfg.Store.Backend {
	case BackendMemory:
		logging.Store("Using in-memory conversation store")
		return NewMemoryConversationStore(max)
	case BackendFirestore:
		primary, err = NewFirestoreConversationStore(ctx, cfg.Store.GCPProject, cfg.Store.FirestoreCollection, max)
	default:
		primary, err = NewSQLiteConversationStore(cfg.DatabasePath(), max)
	}
	if err != nil {
		logging.StoreError("Conversation store %q unavailable at startup, using memory: %v", cfg.Store.Backend, err)
		return NewMemoryConversationStore(max)
	}
	return NewFallbackConversationStore(primary, max)
}

// NewSemanticStore builds the archive store for the configured backend,
// falling back to memory when the backend cannot be opened.
func NewSemanticStore(ctx context.Context, cfg *config.Config) SemanticStore {
	var st SemanticStore
	var err error
	switch cfg.Store.Backend {
	case BackendMemory:
		return NewMemorySemanticStore()
	case BackendFirestore:
		st, err = NewFirestoreSemanticStore(ctx, cfg.Store.GCPProject)
	default:
		st, err = NewSQLiteSemanticStore(cfg.DatabasePath())
	}
	if err != nil {
		logging.StoreError("Semantic store %q unavailable at startup, using memory: %v", cfg.Store.Backend, err)
		return NewMemorySemanticStore()
	}
	return st
}
