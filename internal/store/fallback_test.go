package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"lifecoach/internal/types"
	"lifecoach/internal/usage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func brokenStore() *MockConversationStore {
	down := unavailable("dial", errors.New("connection refused"))
	return &MockConversationStore{
		AppendTaggedFunc: func(ctx context.Context, userID string, role types.Role, content string, cat types.Category) (bool, error) {
			return false, down
		},
		ReadFunc: func(ctx context.Context, userID string, limit int) ([]types.Message, error) {
			return nil, down
		},
		ClearFunc: func(ctx context.Context, userID string) (bool, error) {
			return false, down
		},
	}
}

func TestFallback_SwitchesToMemoryOnFailure(t *testing.T) {
	primary := brokenStore()
	st := NewFallbackConversationStore(primary, 3)
	metrics := usage.NewRequestMetrics("r1")
	ctx := usage.WithRequest(context.Background(), metrics)

	msgs, err := st.Read(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.True(t, st.Degraded())
	assert.Equal(t, BackendMemory, st.Backend())

	for _, c := range []string{"a", "b", "c", "d"} {
		ok, err := st.Append(ctx, "u1", types.RoleUser, c)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	msgs, err = st.Read(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3, "memory fallback keeps the same cap")
	assert.Equal(t, "b", msgs[0].Content)

	assert.Equal(t, 1, primary.Calls(), "primary is not retried inside the retry window")
	assert.GreaterOrEqual(t, metrics.Snapshot().StoreDegradations, int64(1))
	assert.True(t, metrics.Snapshot().Degraded())
}

func TestFallback_AppendFailureIsInvisible(t *testing.T) {
	st := NewFallbackConversationStore(brokenStore(), 10)

	ok, err := st.AppendTagged(context.Background(), "u1", types.RoleAssistant, "hello", types.CategoryGeneral)
	require.NoError(t, err)
	assert.True(t, ok)

	msgs, err := st.Read(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, types.CategoryGeneral, msgs[0].Category)

	removed, err := st.Clear(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestFallback_HealthyPrimaryIsUsed(t *testing.T) {
	primary := &MockConversationStore{}
	st := NewFallbackConversationStore(primary, 10)

	_, err := st.Append(context.Background(), "u1", types.RoleUser, "hi")
	require.NoError(t, err)
	assert.False(t, st.Degraded())
	assert.Equal(t, "mock", st.Backend())
	assert.Equal(t, 1, primary.Calls())

	require.NoError(t, st.Close())
	assert.True(t, primary.closed)
}

func TestFallback_ValidationErrorsPassThrough(t *testing.T) {
	primary := &MockConversationStore{
		AppendTaggedFunc: func(ctx context.Context, userID string, role types.Role, content string, cat types.Category) (bool, error) {
			return false, validateAppend(userID, role)
		},
	}
	st := NewFallbackConversationStore(primary, 10)

	_, err := st.Append(context.Background(), "", types.RoleUser, "hi")
	assert.Error(t, err)
	assert.False(t, st.Degraded())
}

func TestFallback_CancelledContextDoesNotDegrade(t *testing.T) {
	sqlite, err := NewSQLiteConversationStore(filepath.Join(t.TempDir(), "coach.db"), 10)
	require.NoError(t, err)
	st := NewFallbackConversationStore(sqlite, 10)
	t.Cleanup(func() { st.Close() })

	_, err = st.Append(context.Background(), "u1", types.RoleUser, "hi")
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = st.Read(cancelled, "u1", 0)
	assert.Error(t, err)
	assert.False(t, st.Degraded())
	assert.Equal(t, BackendSQLite, st.Backend())

	msgs, err := st.Read(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Content)
}

func TestFallback_DeadlineErrorPassesThrough(t *testing.T) {
	primary := &MockConversationStore{
		ReadFunc: func(ctx context.Context, userID string, limit int) ([]types.Message, error) {
			return nil, unavailable("read", fmt.Errorf("query: %w", context.DeadlineExceeded))
		},
	}
	st := NewFallbackConversationStore(primary, 10)

	_, err := st.Read(context.Background(), "u1", 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.False(t, st.Degraded())
}

func TestFallback_RetriesPrimaryAfterWindow(t *testing.T) {
	var down bool
	primary := &MockConversationStore{
		ReadFunc: func(ctx context.Context, userID string, limit int) ([]types.Message, error) {
			if down {
				return nil, unavailable("read", errors.New("connection refused"))
			}
			return []types.Message{{Role: types.RoleUser, Content: "stored"}}, nil
		},
	}
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	st := NewFallbackConversationStore(primary, 10)
	st.RetryAfter = time.Minute
	st.now = func() time.Time { return clock }

	down = true
	msgs, err := st.Read(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	require.True(t, st.Degraded())

	down = false
	clock = clock.Add(30 * time.Second)
	_, err = st.Read(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, primary.Calls(), "memory serves inside the window")

	clock = clock.Add(31 * time.Second)
	msgs, err = st.Read(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "stored", msgs[0].Content)
	assert.Equal(t, 2, primary.Calls())
	assert.False(t, st.Degraded())
	assert.Equal(t, "mock", st.Backend())
}
