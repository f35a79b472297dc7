package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/oklog/ulid/v2"
	"google.golang.org/api/iterator"

	"lifecoach/internal/logging"
	"lifecoach/internal/types"
)

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type messageDoc struct {
	Seq       int64     `firestore:"seq"`
	Role      string    `firestore:"role"`
	Content   string    `firestore:"content"`
	Category  string    `firestore:"category"`
	CreatedAt time.Time `firestore:"created_at"`
}

func (d messageDoc) toMessage() types.Message {
	return types.Message{
		Role:      types.Role(d.Role),
		Content:   d.Content,
		Timestamp: d.CreatedAt,
		Category:  types.Category(d.Category),
	}
}

type archiveDoc struct {
	UserID    string    `firestore:"user_id"`
	Message   string    `firestore:"message"`
	Response  string    `firestore:"response"`
	Category  string    `firestore:"category"`
	Reason    string    `firestore:"reason"`
	Timestamp time.Time `firestore:"timestamp"`
	Embedding []float64 `firestore:"embedding"`
}

func newArchiveDoc(rec types.ArchiveRecord) archiveDoc {
	vec := make([]float64, len(rec.Embedding))
	for i, f := range rec.Embedding {
		vec[i] = float64(f)
	}
	p := rec.Payload
	return archiveDoc{
		UserID:    p.UserID,
		Message:   p.Message,
		Response:  p.Response,
		Category:  string(p.Category),
		Reason:    p.Reason,
		Timestamp: p.Timestamp,
		Embedding: vec,
	}
}

func (d archiveDoc) toRecord(id string) types.ArchiveRecord {
	vec := make([]float32, len(d.Embedding))
	for i, f := range d.Embedding {
		vec[i] = float32(f)
	}
	return types.ArchiveRecord{
		ID:        id,
		Embedding: vec,
		Payload: types.ArchivePayload{
			UserID:    d.UserID,
			Message:   d.Message,
			Response:  d.Response,
			Category:  types.Category(d.Category),
			Reason:    d.Reason,
			Timestamp: d.Timestamp,
		},
	}
}

// ─────────────────────────────────────────
// Conversation store
// ─────────────────────────────────────────

// FirestoreConversationStore keeps each user's log under
// <collection>/<user_id>/messages, ordered by a nanosecond seq field.
type FirestoreConversationStore struct {
	client     *firestore.Client
	collection string
	maxHistory int
	now        func() time.Time
	evict      func(ctx context.Context, userID string) (int, error)
}

// NewFirestoreConversationStore connects to projectID.
func NewFirestoreConversationStore(ctx context.Context, projectID, collection string, maxHistory int) (*FirestoreConversationStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, unavailable("creating firestore client", err)
	}
	if collection == "" {
		collection = "conversations"
	}
	logging.Store("Using Firestore conversation store (project=%s, collection=%s)", projectID, collection)
	s := &FirestoreConversationStore{client: client, collection: collection, maxHistory: maxHistory, now: time.Now}
	s.evict = s.evictOld
	return s, nil
}

// evictOld deletes the user's messages past maxHistory.
func (s *FirestoreConversationStore) evictOld(ctx context.Context, userID string) (int, error) {
	return s.deleteAll(ctx, s.messagesCol(userID).OrderBy("seq", firestore.Desc).Offset(s.maxHistory))
}

func (s *FirestoreConversationStore) messagesCol(userID string) *firestore.CollectionRef {
	return s.client.Collection(s.collection).Doc(userID).Collection("messages")
}

func (s *FirestoreConversationStore) Append(ctx context.Context, userID string, role types.Role, content string) (bool, error) {
	return s.AppendTagged(ctx, userID, role, content, "")
}

func (s *FirestoreConversationStore) AppendTagged(ctx context.Context, userID string, role types.Role, content string, cat types.Category) (bool, error) {
	if err := validateAppend(userID, role); err != nil {
		return false, err
	}
	now := s.now().UTC()
	doc := messageDoc{
		Seq:       now.UnixNano(),
		Role:      string(role),
		Content:   content,
		Category:  string(cat),
		CreatedAt: now,
	}
	if _, err := s.messagesCol(userID).Doc(ulid.Make().String()).Set(ctx, doc); err != nil {
		return false, unavailable("firestore append", err)
	}

	if s.maxHistory > 0 {
		evicted, err := s.evict(ctx, userID)
		if err != nil {
			// The message is stored; a later append retries the trim.
			logging.StoreWarn("Firestore eviction for user %s failed: %v", userID, err)
		} else if evicted > 0 {
			logging.StoreDebug("Evicted %d old Firestore messages for user %s", evicted, userID)
		}
	}
	return true, nil
}

func (s *FirestoreConversationStore) Read(ctx context.Context, userID string, limit int) ([]types.Message, error) {
	q := s.messagesCol(userID).OrderBy("seq", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var newestFirst []types.Message
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, unavailable("firestore read", err)
		}
		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}
		newestFirst = append(newestFirst, doc.toMessage())
	}

	out := make([]types.Message, len(newestFirst))
	for i, m := range newestFirst {
		out[len(newestFirst)-1-i] = m
	}
	return out, nil
}

func (s *FirestoreConversationStore) Clear(ctx context.Context, userID string) (bool, error) {
	n, err := s.deleteAll(ctx, s.messagesCol(userID).Query)
	if err != nil {
		return false, unavailable("firestore clear", err)
	}
	logging.Store("Cleared %d Firestore messages for user %s", n, userID)
	return n > 0, nil
}

func (s *FirestoreConversationStore) deleteAll(ctx context.Context, q firestore.Query) (int, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	n := 0
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return n, err
		}
		n++
	}
}

func (s *FirestoreConversationStore) Backend() string { return BackendFirestore }

func (s *FirestoreConversationStore) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Semantic store
// ─────────────────────────────────────────

// FirestoreSemanticStore keeps archive records as documents keyed by record id.
// Ranking happens in process after a user-filtered query.
type FirestoreSemanticStore struct {
	client *firestore.Client
}

// NewFirestoreSemanticStore connects to projectID.
func NewFirestoreSemanticStore(ctx context.Context, projectID string) (*FirestoreSemanticStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, unavailable("creating firestore client", err)
	}
	return &FirestoreSemanticStore{client: client}, nil
}

func (s *FirestoreSemanticStore) Upsert(ctx context.Context, collection string, rec types.ArchiveRecord) error {
	if err := validateRecord(collection, rec); err != nil {
		return err
	}
	if _, err := s.client.Collection(collection).Doc(rec.ID).Set(ctx, newArchiveDoc(rec)); err != nil {
		return unavailable("firestore upsert", err)
	}
	return nil
}

func (s *FirestoreSemanticStore) Search(ctx context.Context, collection, userID string, query []float32, limit int) ([]types.ScoredRecord, error) {
	q := s.client.Collection(collection).OrderBy("timestamp", firestore.Desc)
	if userID != "" {
		q = s.client.Collection(collection).Where("user_id", "==", userID).OrderBy("timestamp", firestore.Desc)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var candidates []types.ArchiveRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, unavailable("firestore search", err)
		}
		var doc archiveDoc
		if err := snap.DataTo(&doc); err != nil {
			logging.StoreWarn("Skipping archive document %s: %v", snap.Ref.ID, err)
			continue
		}
		candidates = append(candidates, doc.toRecord(snap.Ref.ID))
	}
	return rank(candidates, query, limit), nil
}

func (s *FirestoreSemanticStore) Close() error {
	return s.client.Close()
}
