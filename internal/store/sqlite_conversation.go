package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"lifecoach/internal/logging"
	"lifecoach/internal/types"
)

// SQLiteConversationStore keeps conversation logs in the messages table.
// Message ids are ULIDs; ordering uses the autoincrement seq column.
type SQLiteConversationStore struct {
	db         *sql.DB
	maxHistory int
	now        func() time.Time
}

// NewSQLiteConversationStore opens the database at path.
func NewSQLiteConversationStore(path string, maxHistory int) (*SQLiteConversationStore, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, unavailable("open sqlite", err)
	}
	return &SQLiteConversationStore{db: db, maxHistory: maxHistory, now: time.Now}, nil
}

func (s *SQLiteConversationStore) Append(ctx context.Context, userID string, role types.Role, content string) (bool, error) {
	return s.AppendTagged(ctx, userID, role, content, "")
}

// AppendTagged inserts the message and trims the user's log in one transaction.
func (s *SQLiteConversationStore) AppendTagged(ctx context.Context, userID string, role types.Role, content string, cat types.Category) (bool, error) {
	if err := validateAppend(userID, role); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, unavailable("append", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, user_id, role, content, category, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ulid.Make().String(), userID, string(role), content, string(cat), s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, unavailable("append", err)
	}

	if s.maxHistory > 0 {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM messages WHERE user_id = ? AND seq NOT IN (
				SELECT seq FROM messages WHERE user_id = ? ORDER BY seq DESC LIMIT ?
			)`,
			userID, userID, s.maxHistory,
		)
		if err != nil {
			return false, unavailable("evict", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			logging.StoreDebug("Evicted %d old messages for user %s", n, userID)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, unavailable("append commit", err)
	}
	return true, nil
}

func (s *SQLiteConversationStore) Read(ctx context.Context, userID string, limit int) ([]types.Message, error) {
	query := `SELECT role, content, category, created_at FROM messages WHERE user_id = ? ORDER BY seq DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("read", err)
	}
	defer rows.Close()

	var newestFirst []types.Message
	for rows.Next() {
		var role, content, cat, created string
		if err := rows.Scan(&role, &content, &cat, &created); err != nil {
			return nil, fmt.Errorf("read scan: %w", err)
		}
		ts, _ := time.Parse(time.RFC3339Nano, created)
		newestFirst = append(newestFirst, types.Message{
			Role:      types.Role(role),
			Content:   content,
			Timestamp: ts,
			Category:  types.Category(cat),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("read", err)
	}

	out := make([]types.Message, len(newestFirst))
	for i, m := range newestFirst {
		out[len(newestFirst)-1-i] = m
	}
	return out, nil
}

func (s *SQLiteConversationStore) Clear(ctx context.Context, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE user_id = ?`, userID)
	if err != nil {
		return false, unavailable("clear", err)
	}
	n, _ := res.RowsAffected()
	logging.Store("Cleared %d messages for user %s", n, userID)
	return n > 0, nil
}

func (s *SQLiteConversationStore) Backend() string { return BackendSQLite }

func (s *SQLiteConversationStore) Close() error {
	return s.db.Close()
}
