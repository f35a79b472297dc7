package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"lifecoach/internal/embedding"
	"lifecoach/internal/logging"
	"lifecoach/internal/types"
)

// SemanticStore holds archive records and ranks them against a query vector.
type SemanticStore interface {
	// Upsert writes rec into collection, replacing any record with the same id.
	Upsert(ctx context.Context, collection string, rec types.ArchiveRecord) error

	// Search returns up to limit records of collection owned by userID (all
	// users when empty). With a query vector the records are ranked by cosine
	// similarity; without one they come back newest first with a zero score.
	Search(ctx context.Context, collection, userID string, query []float32, limit int) ([]types.ScoredRecord, error)

	Close() error
}

func validateRecord(collection string, rec types.ArchiveRecord) error {
	if strings.TrimSpace(collection) == "" {
		return &validationError{"upsert: empty collection"}
	}
	if rec.ID == "" {
		return &validationError{"upsert: record has no id"}
	}
	if len(rec.Embedding) == 0 {
		return &validationError{fmt.Sprintf("upsert %s: record has no embedding", rec.ID)}
	}
	return nil
}

// rank scores candidates against query and keeps the best limit. Records whose
// dimensions differ from the query are skipped; ties keep candidate order.
func rank(candidates []types.ArchiveRecord, query []float32, limit int) []types.ScoredRecord {
	if len(query) == 0 {
		if limit > 0 && len(candidates) > limit {
			candidates = candidates[:limit]
		}
		out := make([]types.ScoredRecord, len(candidates))
		for i, rec := range candidates {
			out[i] = types.ScoredRecord{ArchiveRecord: rec}
		}
		return out
	}

	corpus := make([][]float32, len(candidates))
	for i, rec := range candidates {
		corpus[i] = rec.Embedding
	}
	top := embedding.FindTopK(query, corpus, limit)

	out := make([]types.ScoredRecord, len(top))
	for i, r := range top {
		out[i] = types.ScoredRecord{ArchiveRecord: candidates[r.Index], Score: r.Score}
	}
	return out
}

// =============================================================================
// SQLITE
// =============================================================================

// SQLiteSemanticStore keeps archive records in the archive_records table and
// ranks them in process.
type SQLiteSemanticStore struct {
	db *sql.DB
}

// NewSQLiteSemanticStore opens the database at path.
func NewSQLiteSemanticStore(path string) (*SQLiteSemanticStore, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, unavailable("open sqlite", err)
	}
	return &SQLiteSemanticStore{db: db}, nil
}

func (s *SQLiteSemanticStore) Upsert(ctx context.Context, collection string, rec types.ArchiveRecord) error {
	if err := validateRecord(collection, rec); err != nil {
		return err
	}
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("upsert %s: encode payload: %w", rec.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO archive_records (id, collection, user_id, embedding, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			collection = excluded.collection,
			user_id = excluded.user_id,
			embedding = excluded.embedding,
			payload = excluded.payload`,
		rec.ID, collection, rec.Payload.UserID, encodeVector(rec.Embedding), string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return unavailable("upsert", err)
	}
	logging.StoreDebug("Upserted archive record %s into %s", rec.ID, collection)
	return nil
}

func (s *SQLiteSemanticStore) Search(ctx context.Context, collection, userID string, query []float32, limit int) ([]types.ScoredRecord, error) {
	timer := logging.StartTimer(logging.CategoryStore, "SemanticSearch")
	defer timer.Stop()

	q := `SELECT id, embedding, payload FROM archive_records WHERE collection = ?`
	args := []interface{}{collection}
	if userID != "" {
		q += ` AND user_id = ?`
		args = append(args, userID)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, unavailable("search", err)
	}
	defer rows.Close()

	var candidates []types.ArchiveRecord
	for rows.Next() {
		var id, vec, payload string
		if err := rows.Scan(&id, &vec, &payload); err != nil {
			return nil, fmt.Errorf("search scan: %w", err)
		}
		rec := types.ArchiveRecord{ID: id}
		if rec.Embedding, err = decodeVector([]byte(vec), nil); err != nil {
			logging.StoreWarn("Archive record %s has a malformed embedding: %v", id, err)
			continue
		}
		if err := json.Unmarshal([]byte(payload), &rec.Payload); err != nil {
			logging.StoreWarn("Archive record %s has a malformed payload: %v", id, err)
			continue
		}
		candidates = append(candidates, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("search", err)
	}
	return rank(candidates, query, limit), nil
}

func (s *SQLiteSemanticStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// MEMORY
// =============================================================================

// MemorySemanticStore is a non-persistent SemanticStore.
type MemorySemanticStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]types.ArchiveRecord
}

// NewMemorySemanticStore creates an empty store.
func NewMemorySemanticStore() *MemorySemanticStore {
	return &MemorySemanticStore{collections: make(map[string]map[string]types.ArchiveRecord)}
}

func (s *MemorySemanticStore) Upsert(_ context.Context, collection string, rec types.ArchiveRecord) error {
	if err := validateRecord(collection, rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[collection]
	if !ok {
		col = make(map[string]types.ArchiveRecord)
		s.collections[collection] = col
	}
	rec.Embedding = append([]float32(nil), rec.Embedding...)
	col[rec.ID] = rec
	return nil
}

func (s *MemorySemanticStore) Search(_ context.Context, collection, userID string, query []float32, limit int) ([]types.ScoredRecord, error) {
	s.mu.RLock()
	var candidates []types.ArchiveRecord
	for _, rec := range s.collections[collection] {
		if userID == "" || rec.Payload.UserID == userID {
			candidates = append(candidates, rec)
		}
	}
	s.mu.RUnlock()

	// newest first, like the SQLite store
	sort.Slice(candidates, func(i, j int) bool {
		ti, tj := candidates[i].Payload.Timestamp, candidates[j].Payload.Timestamp
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return candidates[i].ID < candidates[j].ID
	})
	return rank(candidates, query, limit), nil
}

// Count returns the number of records in collection.
func (s *MemorySemanticStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func (s *MemorySemanticStore) Close() error { return nil }
