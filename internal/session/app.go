package session

import (
	"context"
	"fmt"

	"lifecoach/internal/archival"
	"lifecoach/internal/config"
	"lifecoach/internal/embedding"
	"lifecoach/internal/logging"
	"lifecoach/internal/perception"
	"lifecoach/internal/shards"
	"lifecoach/internal/store"
	"lifecoach/internal/usage"
)

// =============================================================================
// APP WIRING
// =============================================================================

// App owns a pipeline and everything it was built from.
type App struct {
	*Pipeline

	Config   *config.Config
	Tracker  *usage.Tracker
	Archiver *archival.Archiver // nil when no embedding engine is available

	conversations store.ConversationStore
	semantic      store.SemanticStore
}

// NewApp builds the full pipeline from cfg. Only an unusable LLM provider is
// fatal; storage and embedding problems degrade to memory or disable archiving.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "NewApp")
	defer timer.Stop()

	client, err := perception.NewClient(ctx, perception.ConfigFromLLM(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	llm := perception.NewTracingLLMClient(client)

	registry := shards.NewRegistry()
	if err := shards.RegisterSpecialists(registry, llm, cfg.Pipeline.HistoryWindow); err != nil {
		return nil, fmt.Errorf("failed to register handlers: %w", err)
	}

	tracker, err := usage.NewTracker(cfg.DataDir)
	if err != nil {
		logging.BootWarn("Usage tracking disabled: %v", err)
		tracker = nil
	}

	app := &App{
		Config:        cfg,
		Tracker:       tracker,
		conversations: store.NewConversationStore(ctx, cfg),
	}

	var archiver Archiver
	engine, err := embedding.NewEngine(ctx, embedding.ConfigFrom(cfg, embedding.PurposeArchive))
	if err != nil {
		logging.BootWarn("Archiving disabled, no embedding engine: %v", err)
	} else {
		app.semantic = store.NewSemanticStore(ctx, cfg)
		app.Archiver = archival.NewArchiver(llm, engine, app.semantic, archival.Config{
			Collection:      cfg.Store.ArchiveCollection,
			SummaryMaxRunes: archival.DefaultConfig().SummaryMaxRunes,
		})
		archiver = app.Archiver
	}

	app.Pipeline = New(Deps{
		LLM:      llm,
		Registry: registry,
		Store:    app.conversations,
		Archiver: archiver,
		Tracker:  tracker,
	}, ConfigFrom(cfg))

	logging.Boot("App ready: provider=%s store=%s archiving=%v", cfg.LLM.Provider, app.conversations.Backend(), app.Archiver != nil)
	return app, nil
}

// Close waits for pending archive runs, then flushes usage and closes storage.
func (a *App) Close() error {
	a.Wait()

	var firstErr error
	if a.Tracker != nil {
		if err := a.Tracker.Save(); err != nil {
			firstErr = err
		}
	}
	if a.semantic != nil {
		if err := a.semantic.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := a.conversations.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
