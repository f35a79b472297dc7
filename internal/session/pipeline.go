// Package session runs one user message through the coaching pipeline:
// classify, build per-category context, dispatch the handlers, combine their
// replies, persist the exchange, and archive it when it matters.
//
// Process never fails. Every component recovers its own errors, and the worst
// a caller can get back is the combiner's safe default reply.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lifecoach/internal/articulation"
	"lifecoach/internal/config"
	"lifecoach/internal/contextbuild"
	"lifecoach/internal/logging"
	"lifecoach/internal/perception"
	"lifecoach/internal/shards"
	"lifecoach/internal/store"
	"lifecoach/internal/types"
	"lifecoach/internal/usage"
)

// Archiver is the long-term memory the pipeline feeds and reads from.
type Archiver interface {
	ArchiveIfImportant(ctx context.Context, userID, message, response string, cat types.Category) (bool, error)
	Recall(ctx context.Context, userID, query string, limit int) ([]types.ScoredRecord, error)
}

// Config bounds one request.
type Config struct {
	MaxCategories    int
	HistoryLimit     int
	HistoryWindow    int
	MaxResponseChars int
	RecallLimit      int

	HandlerTimeout time.Duration
	RequestTimeout time.Duration // zero means no deadline beyond the caller's
	ArchiveTimeout time.Duration
}

// DefaultConfig mirrors config.DefaultConfig's pipeline section.
func DefaultConfig() Config {
	return ConfigFrom(config.DefaultConfig())
}

// ConfigFrom reads the pipeline section of cfg.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		MaxCategories:    cfg.Pipeline.MaxCategories,
		HistoryLimit:     cfg.Pipeline.HistoryLimit,
		HistoryWindow:    cfg.Pipeline.HistoryWindow,
		MaxResponseChars: cfg.Pipeline.MaxResponseChars,
		RecallLimit:      cfg.Pipeline.RecallLimit,
		HandlerTimeout:   cfg.GetHandlerTimeout(),
		RequestTimeout:   cfg.GetRequestTimeout(),
		ArchiveTimeout:   cfg.GetArchiveTimeout(),
	}
}

// Deps are the collaborators a pipeline runs with. LLM and Registry and Store
// are required; Archiver and Tracker may be nil.
type Deps struct {
	LLM      types.LLMClient
	Registry *shards.Registry
	Store    store.ConversationStore
	Archiver Archiver
	Tracker  *usage.Tracker
}

// Pipeline processes messages. It is safe for concurrent use.
type Pipeline struct {
	classifier *perception.Classifier
	builder    *contextbuild.Builder
	dispatcher *shards.Dispatcher
	combiner   *articulation.Combiner

	store    store.ConversationStore
	archiver Archiver
	tracker  *usage.Tracker
	cfg      Config

	// background archive runs
	wg sync.WaitGroup
}

// New builds a pipeline. The registry is sealed if it is not already.
func New(deps Deps, cfg Config) *Pipeline {
	if cfg.ArchiveTimeout <= 0 {
		cfg.ArchiveTimeout = 30 * time.Second
	}
	if !deps.Registry.Sealed() {
		deps.Registry.Seal()
	}

	logging.Session("Creating pipeline: handlers=%v store=%s archiver=%v", deps.Registry.Categories(), deps.Store.Backend(), deps.Archiver != nil)
	return &Pipeline{
		classifier: perception.NewClassifier(deps.LLM, perception.ClassifierConfig{
			MaxCategories: cfg.MaxCategories,
			HistoryWindow: cfg.HistoryWindow,
		}),
		builder:    contextbuild.NewBuilder(deps.LLM, contextbuild.Config{HistoryWindow: cfg.HistoryWindow}),
		dispatcher: shards.NewDispatcher(deps.Registry, shards.DispatcherConfig{HandlerTimeout: cfg.HandlerTimeout}),
		combiner:   articulation.NewCombiner(deps.LLM, articulation.CombinerConfig{MaxResponseChars: cfg.MaxResponseChars}),
		store:      deps.Store,
		archiver:   deps.Archiver,
		tracker:    deps.Tracker,
		cfg:        cfg,
	}
}

// Process answers message for userID. It always returns a populated response.
func (p *Pipeline) Process(ctx context.Context, userID, message string) (resp types.PipelineResponse) {
	start := time.Now()
	requestID := uuid.NewString()
	metrics := usage.NewRequestMetrics(requestID)
	ctx = usage.WithRequest(ctx, metrics)
	rlog := logging.WithRequestID(logging.CategorySession, requestID).WithField("user", userID)

	defer func() {
		if r := recover(); r != nil {
			rlog.Error("Pipeline panic recovered: %v", r)
			resp = types.PipelineResponse{
				Text:      articulation.SafeDefaultResponse,
				Category:  types.CategoryGeneral,
				Method:    types.CombineDefault,
				RequestID: requestID,
			}
		}
		resp.Duration = time.Since(start)
		p.tracker.Commit(metrics)
		rlog.Info("Processed in %v: categories=%v method=%s", resp.Duration, resp.Categories, resp.Method)
	}()

	// persistence and archiving outlive the request deadline
	detached := context.WithoutCancel(ctx)
	if p.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
	}

	history, err := p.store.Read(ctx, userID, p.cfg.HistoryLimit)
	if err != nil {
		rlog.Warn("History unavailable, continuing without it: %v", err)
		history = nil
	}

	classification := p.classifier.Classify(ctx, message, history)
	rlog.Debug("Classified as %v (follow-up=%v): %s", classification.Categories, classification.IsFollowUp, classification.Explanation)

	bundle, categories := p.builder.Plan(ctx, message, classification.Categories, history, p.recallTraits(ctx, userID, message))

	results := p.dispatcher.Dispatch(ctx, categories, bundle, message, history)
	combined := p.combiner.Combine(ctx, results)

	primary := combined.PrimaryCategory()
	p.persist(detached, rlog, userID, message, combined.Text, primary)
	if combined.Method != types.CombineDefault {
		p.archiveAsync(detached, requestID, userID, message, combined.Text, primary)
	}

	return types.PipelineResponse{
		Text:           combined.Text,
		Category:       primary,
		Categories:     combined.Categories,
		Classification: classification,
		Results:        results,
		Method:         combined.Method,
		RequestID:      requestID,
	}
}

func (p *Pipeline) persist(ctx context.Context, rlog *logging.RequestLogger, userID, message, reply string, cat types.Category) {
	if _, err := p.store.Append(ctx, userID, types.RoleUser, message); err != nil {
		rlog.Warn("Failed to store user message: %v", err)
	}
	if _, err := p.store.AppendTagged(ctx, userID, types.RoleAssistant, reply, cat); err != nil {
		rlog.Warn("Failed to store reply: %v", err)
	}
}

// archiveAsync runs the archiver after the reply is returned. The request's
// metrics are already committed by then, so the run gets its own holder.
func (p *Pipeline) archiveAsync(ctx context.Context, requestID, userID, message, reply string, cat types.Category) {
	if p.archiver == nil {
		return
	}
	metrics := usage.NewRequestMetrics(requestID)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		actx, cancel := context.WithTimeout(usage.WithRequest(ctx, metrics), p.cfg.ArchiveTimeout)
		defer cancel()

		stored, err := p.archiver.ArchiveIfImportant(actx, userID, message, reply, cat)
		if err != nil {
			logging.SessionWarn("Archive step failed for user %s: %v", userID, err)
		} else if stored {
			logging.SessionDebug("Exchange archived for user %s", userID)
		}
		p.tracker.RecordArchive(metrics.Snapshot().ArchiveOutcome)
	}()
}

// recallTraits turns the user's closest archived exchanges into traits for the
// context builder. Failures only cost the enrichment.
func (p *Pipeline) recallTraits(ctx context.Context, userID, message string) *types.UserTraits {
	if p.archiver == nil || p.cfg.RecallLimit <= 0 {
		return nil
	}
	recs, err := p.archiver.Recall(ctx, userID, message, p.cfg.RecallLimit)
	if err != nil {
		logging.SessionDebug("Recall skipped: %v", err)
		return nil
	}
	if len(recs) == 0 {
		return nil
	}
	notes := make([]string, 0, len(recs))
	for _, r := range recs {
		note := strings.TrimSpace(r.Payload.Message)
		if reason := strings.TrimSpace(r.Payload.Reason); reason != "" {
			note = reason + ": " + note
		}
		notes = append(notes, "- "+note)
	}
	return &types.UserTraits{Notes: "Remembered from earlier conversations:\n" + strings.Join(notes, "\n")}
}

// History returns the stored conversation for userID.
func (p *Pipeline) History(ctx context.Context, userID string, limit int) ([]types.Message, error) {
	return p.store.Read(ctx, userID, limit)
}

// Clear drops the stored conversation for userID.
func (p *Pipeline) Clear(ctx context.Context, userID string) (bool, error) {
	return p.store.Clear(ctx, userID)
}

// Wait blocks until background archive runs finish.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
