// Package store persists conversation logs and archived exchanges.
//
// Conversation logs are per-user, ordered, and capped at max_history entries with
// the oldest evicted first. Backends: SQLite (default), Firestore, and an
// in-memory map. FallbackConversationStore puts any primary behind the memory
// store so that callers keep working when the primary is unreachable.
//
// Archived exchanges live in a SemanticStore: a flat collection of records with
// an embedding each, searched by cosine similarity.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lifecoach/internal/types"
)

// ErrStoreUnavailable marks failures of the backing store itself, as opposed to
// bad input.
var ErrStoreUnavailable = errors.New("store unavailable")

// Backend names.
const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// ConversationStore is a per-user, capped, chronological message log.
type ConversationStore interface {
	// Append stores one message and evicts the oldest ones past the cap.
	Append(ctx context.Context, userID string, role types.Role, content string) (bool, error)

	// AppendTagged is Append with the response category recorded alongside.
	AppendTagged(ctx context.Context, userID string, role types.Role, content string, cat types.Category) (bool, error)

	// Read returns at most limit of the newest messages, oldest first.
	// A limit <= 0 returns everything kept for the user.
	Read(ctx context.Context, userID string, limit int) ([]types.Message, error)

	// Clear drops the user's log and reports whether anything was removed.
	Clear(ctx context.Context, userID string) (bool, error)

	// Backend names the live backend.
	Backend() string

	Close() error
}

// unavailable wraps err so callers can test for ErrStoreUnavailable. The
// cause stays in the chain so context errors remain detectable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// isContextError reports whether err came from the caller's own
// cancellation or deadline rather than the backend.
func isContextError(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// validationError rejects bad input; it never means the backend is down.
type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func isValidationError(err error) bool {
	var v *validationError
	return errors.As(err, &v)
}

func validateAppend(userID string, role types.Role) error {
	if strings.TrimSpace(userID) == "" {
		return &validationError{"append: empty user id"}
	}
	if role != types.RoleUser && role != types.RoleAssistant {
		return &validationError{fmt.Sprintf("append: unknown role %q", role)}
	}
	return nil
}

// tail keeps the last n messages of msgs (all when n <= 0).
func tail(msgs []types.Message, n int) []types.Message {
	if n <= 0 || len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
