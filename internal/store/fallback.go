package store

import (
	"context"
	"sync/atomic"
	"time"

	"lifecoach/internal/logging"
	"lifecoach/internal/types"
	"lifecoach/internal/usage"
)

// DefaultRetryAfter is how long the memory store serves calls after a
// primary failure before the primary is tried again.
const DefaultRetryAfter = 30 * time.Second

// FallbackConversationStore serves from primary and answers a failed
// operation from an in-memory store with the same cap. After a failure the
// memory store keeps serving until RetryAfter has passed; the next call then
// goes back to the primary, and a success there clears the degraded state.
//
// Callers never see the primary's availability errors; degradations are
// recorded in the request metrics carried by ctx. Cancellation and deadline
// errors belong to the caller and are returned unchanged.
type FallbackConversationStore struct {
	primary ConversationStore
	memory  *MemoryConversationStore

	// RetryAfter overrides DefaultRetryAfter when positive.
	RetryAfter time.Duration

	// failedAt is the UnixNano of the last primary failure, 0 while healthy.
	failedAt atomic.Int64
	now      func() time.Time
}

// NewFallbackConversationStore wraps primary.
func NewFallbackConversationStore(primary ConversationStore, maxHistory int) *FallbackConversationStore {
	return &FallbackConversationStore{
		primary: primary,
		memory:  NewMemoryConversationStore(maxHistory),
		now:     time.Now,
	}
}

// Degraded reports whether the primary has failed and not yet recovered.
func (s *FallbackConversationStore) Degraded() bool {
	return s.failedAt.Load() != 0
}

func (s *FallbackConversationStore) retryAfter() time.Duration {
	if s.RetryAfter > 0 {
		return s.RetryAfter
	}
	return DefaultRetryAfter
}

// use returns the store for the next call.
func (s *FallbackConversationStore) use(ctx context.Context) ConversationStore {
	at := s.failedAt.Load()
	if at != 0 && s.now().Sub(time.Unix(0, at)) < s.retryAfter() {
		usage.RequestFromContext(ctx).RecordStoreDegraded()
		return s.memory
	}
	return s.primary
}

// settle inspects the primary's result. It reports whether the operation
// should be answered from memory instead.
func (s *FallbackConversationStore) settle(ctx context.Context, op string, err error) bool {
	if err == nil {
		if at := s.failedAt.Load(); at != 0 && s.failedAt.CompareAndSwap(at, 0) {
			logging.Store("%s backend recovered during %s", s.primary.Backend(), op)
		}
		return false
	}
	if isValidationError(err) || isContextError(ctx, err) {
		return false
	}
	if s.failedAt.Swap(s.now().UnixNano()) == 0 {
		logging.StoreError("%s backend failed during %s, using memory for %s: %v", s.primary.Backend(), op, s.retryAfter(), err)
	}
	usage.RequestFromContext(ctx).RecordStoreDegraded()
	return true
}

func (s *FallbackConversationStore) Append(ctx context.Context, userID string, role types.Role, content string) (bool, error) {
	return s.AppendTagged(ctx, userID, role, content, "")
}

func (s *FallbackConversationStore) AppendTagged(ctx context.Context, userID string, role types.Role, content string, cat types.Category) (bool, error) {
	st := s.use(ctx)
	ok, err := st.AppendTagged(ctx, userID, role, content, cat)
	if st != s.memory && s.settle(ctx, "append", err) {
		return s.memory.AppendTagged(ctx, userID, role, content, cat)
	}
	return ok, err
}

func (s *FallbackConversationStore) Read(ctx context.Context, userID string, limit int) ([]types.Message, error) {
	st := s.use(ctx)
	msgs, err := st.Read(ctx, userID, limit)
	if st != s.memory && s.settle(ctx, "read", err) {
		return s.memory.Read(ctx, userID, limit)
	}
	return msgs, err
}

func (s *FallbackConversationStore) Clear(ctx context.Context, userID string) (bool, error) {
	st := s.use(ctx)
	ok, err := st.Clear(ctx, userID)
	if st != s.memory && s.settle(ctx, "clear", err) {
		return s.memory.Clear(ctx, userID)
	}
	return ok, err
}

// Backend names the store currently serving calls.
func (s *FallbackConversationStore) Backend() string {
	if s.Degraded() {
		return BackendMemory
	}
	return s.primary.Backend()
}

func (s *FallbackConversationStore) Close() error {
	return s.primary.Close()
}
