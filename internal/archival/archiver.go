// Package archival keeps the exchanges worth remembering.
//
// After a reply has been sent, the archiver asks a model whether the exchange
// holds durable information (goals, preferences, concrete facts). Important
// exchanges are summarized, embedded, and written to the semantic store under
// a fresh id. Nothing here ever affects the reply itself.
package archival

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"lifecoach/internal/articulation"
	"lifecoach/internal/embedding"
	"lifecoach/internal/logging"
	"lifecoach/internal/store"
	"lifecoach/internal/types"
	"lifecoach/internal/usage"
)

// DefaultCollection is the semantic store collection for archived exchanges.
const DefaultCollection = "conversation_memories"

// Config tunes the archiver.
type Config struct {
	Collection      string
	SummaryMaxRunes int // per side of the exchange
}

// DefaultConfig returns the archiver defaults.
func DefaultConfig() Config {
	return Config{Collection: DefaultCollection, SummaryMaxRunes: 1500}
}

// Verdict is the model's judgement of one exchange.
type Verdict struct {
	Important bool
	Reason    string
	Category  types.Category
}

// Archiver decides, embeds, and stores.
type Archiver struct {
	llm      types.LLMClient
	engine   embedding.EmbeddingEngine
	semantic store.SemanticStore
	cfg      Config

	newID func() string
	now   func() time.Time
}

// NewArchiver wires an archiver. All three dependencies are required.
func NewArchiver(llm types.LLMClient, engine embedding.EmbeddingEngine, semantic store.SemanticStore, cfg Config) *Archiver {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.SummaryMaxRunes <= 0 {
		cfg.SummaryMaxRunes = DefaultConfig().SummaryMaxRunes
	}
	return &Archiver{
		llm:      llm,
		engine:   engine,
		semantic: semantic,
		cfg:      cfg,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// ArchiveIfImportant stores the exchange when the model judges it worth
// remembering. It reports whether a record was written. The outcome is also
// recorded in the request metrics carried by ctx.
func (a *Archiver) ArchiveIfImportant(ctx context.Context, userID, message, response string, cat types.Category) (stored bool, err error) {
	timer := logging.StartTimer(logging.CategoryArchive, "ArchiveIfImportant")
	defer timer.Stop()

	metrics := usage.RequestFromContext(ctx)
	defer func() {
		if r := recover(); r != nil {
			stored, err = false, fmt.Errorf("archive panic: %v", r)
		}
		switch {
		case err != nil:
			metrics.RecordArchive(usage.ArchiveFailed, err)
			logging.ArchiveWarn("Archiving failed for user %s: %v", userID, err)
		case stored:
			metrics.RecordArchive(usage.ArchiveStored, nil)
		default:
			metrics.RecordArchive(usage.ArchiveSkipped, nil)
		}
	}()

	if a.llm == nil || a.engine == nil || a.semantic == nil {
		return false, fmt.Errorf("archiver is not fully configured")
	}

	verdict, err := a.judge(ctx, message, response)
	if err != nil {
		return false, err
	}
	if !verdict.Important {
		logging.ArchiveDebug("Exchange not archived: %s", verdict.Reason)
		return false, nil
	}

	summary := a.Summary(message, response)
	vec, err := a.engine.Embed(usage.WithOperation(ctx, usage.OpEmbed), summary)
	if err != nil {
		return false, fmt.Errorf("embed summary: %w", err)
	}

	if verdict.Category.IsValid() {
		cat = verdict.Category
	}
	if !cat.IsValid() {
		cat = types.CategoryGeneral
	}
	rec := types.ArchiveRecord{
		ID:        a.newID(),
		Embedding: vec,
		Payload: types.ArchivePayload{
			UserID:    userID,
			Message:   message,
			Response:  response,
			Category:  cat,
			Reason:    verdict.Reason,
			Timestamp: a.now().UTC(),
		},
	}
	if err := a.semantic.Upsert(ctx, a.cfg.Collection, rec); err != nil {
		return false, fmt.Errorf("upsert archive record: %w", err)
	}

	logging.Archive("Archived exchange %s for user %s (%s): %s", rec.ID, userID, cat, verdict.Reason)
	return true, nil
}

// Recall returns the archived exchanges of userID closest to query.
func (a *Archiver) Recall(ctx context.Context, userID, query string, limit int) ([]types.ScoredRecord, error) {
	if a.engine == nil || a.semantic == nil {
		return nil, fmt.Errorf("archiver is not fully configured")
	}
	if strings.TrimSpace(query) == "" {
		return a.semantic.Search(ctx, a.cfg.Collection, userID, nil, limit)
	}
	vec, err := embedding.EmbedQuery(usage.WithOperation(ctx, usage.OpEmbed), a.engine, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return a.semantic.Search(ctx, a.cfg.Collection, userID, vec, limit)
}

// Summary composes the text that gets embedded for an exchange.
func (a *Archiver) Summary(message, response string) string {
	return "User: " + capRunes(strings.TrimSpace(message), a.cfg.SummaryMaxRunes) +
		"\nAssistant: " + capRunes(strings.TrimSpace(response), a.cfg.SummaryMaxRunes)
}

func capRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// =============================================================================
// VERDICT
// =============================================================================

const verdictSystemPrompt = `You decide whether a coaching exchange is worth remembering long term.
Important: stated goals, preferences, constraints, health facts, commitments, personal details that change future advice.
Not important: greetings, small talk, thanks, one-off questions with no personal information.
Reply with JSON only: {"important": true|false, "reason": "<short reason>", "category": "exercise|food|schedule|motivation|general"}`

func (a *Archiver) judge(ctx context.Context, message, response string) (Verdict, error) {
	prompt := "User: " + message + "\nAssistant: " + response
	raw, err := a.llm.CompleteWithSystem(usage.WithOperation(ctx, usage.OpImportance), verdictSystemPrompt, prompt)
	if err != nil {
		return Verdict{}, fmt.Errorf("importance call failed: %w", err)
	}
	v, err := ParseVerdict(raw)
	if err != nil {
		logging.ArchiveWarn("Unparseable importance verdict treated as not important: %v", err)
		return Verdict{Reason: "unparseable verdict"}, nil
	}
	return v, nil
}

// ParseVerdict reads the importance verdict. "important" may be a boolean or a
// yes/no style string; an unknown category is left empty.
func ParseVerdict(raw string) (Verdict, error) {
	var parsed struct {
		Important interface{} `json:"important"`
		Reason    string      `json:"reason"`
		Category  string      `json:"category"`
	}
	if _, err := articulation.ExtractJSONObject(raw, &parsed); err != nil {
		return Verdict{}, fmt.Errorf("parse failure: %w", err)
	}

	v := Verdict{Reason: strings.TrimSpace(parsed.Reason)}
	switch val := parsed.Important.(type) {
	case bool:
		v.Important = val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "yes", "y", "important":
			v.Important = true
		case "false", "no", "n", "", "not important":
		default:
			return Verdict{}, fmt.Errorf("parse failure: unexpected importance %q", val)
		}
	case nil:
		return Verdict{}, fmt.Errorf("parse failure: verdict has no importance field")
	default:
		return Verdict{}, fmt.Errorf("parse failure: unexpected importance type %T", val)
	}
	if cat, err := types.ParseCategory(parsed.Category); err == nil {
		v.Category = cat
	}
	return v, nil
}
