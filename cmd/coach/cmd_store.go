package main

import (
	"fmt"
	"strings"

	"lifecoach/internal/archival"
	"lifecoach/internal/embedding"
	"lifecoach/internal/store"
	"lifecoach/internal/types"
	"lifecoach/internal/usage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	historyLimit int
	recallLimit  int
)

// historyCmd prints the stored conversation
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the stored conversation for --user",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

// clearCmd drops the stored conversation
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the stored conversation for --user",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

// recallCmd searches archived exchanges
var recallCmd = &cobra.Command{
	Use:   "recall [query]",
	Short: "Search the archived exchanges for --user",
	Long: `Lists archived exchanges closest to the query. Without a query the
most recent archives are listed.`,
	RunE: runRecall,
}

// statsCmd prints aggregated pipeline usage
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated pipeline usage",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Most recent messages to show (0 = all)")
	recallCmd.Flags().IntVarP(&recallLimit, "limit", "n", 5, "Maximum records")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	st := store.NewConversationStore(ctx, cfg)
	defer st.Close()

	msgs, err := st.Read(ctx, userID, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	logger.Debug("History read", zap.String("user", userID), zap.Int("messages", len(msgs)), zap.String("backend", st.Backend()))
	newRenderer(cmd.OutOrStdout(), plain).Messages(msgs)
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	st := store.NewConversationStore(ctx, cfg)
	defer st.Close()

	cleared, err := st.Clear(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	newRenderer(cmd.OutOrStdout(), plain).Notice(clearedNotice(cleared))
	return nil
}

func runRecall(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	query := joinArgs(args)
	collection := cfg.Store.ArchiveCollection
	if collection == "" {
		collection = archival.DefaultCollection
	}

	semantic := store.NewSemanticStore(ctx, cfg)
	defer semantic.Close()

	var recs []types.ScoredRecord
	var err error
	if query == "" {
		recs, err = semantic.Search(ctx, collection, userID, nil, recallLimit)
	} else {
		engine, engineErr := embedding.NewEngine(ctx, embedding.ConfigFrom(cfg, embedding.PurposeRecall))
		if engineErr != nil {
			return fmt.Errorf("recall needs an embedding engine: %w", engineErr)
		}
		archiver := archival.NewArchiver(nil, engine, semantic, archival.Config{Collection: collection})
		recs, err = archiver.Recall(ctx, userID, query, recallLimit)
	}
	if err != nil {
		return fmt.Errorf("recall failed: %w", err)
	}
	newRenderer(cmd.OutOrStdout(), plain).Records(recs)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	tracker, err := usage.NewTracker(cfg.DataDir)
	if err != nil {
		return err
	}
	stats := tracker.Stats()

	var sb strings.Builder
	fmt.Fprintf(&sb, "requests: %d\n", stats.Requests)
	fmt.Fprintf(&sb, "follow-ups: %d\n", stats.FollowUps)
	fmt.Fprintf(&sb, "store degradations: %d\n", stats.StoreDegradations)
	writeCounts(&sb, "llm calls", stats.LLMCalls)
	writeCounts(&sb, "llm failures", stats.LLMFailures)
	writeCounts(&sb, "handler failures", stats.HandlerFailures)
	writeCounts(&sb, "combine methods", stats.CombineMethods)
	writeCounts(&sb, "archive outcomes", stats.ArchiveOutcomes)
	fmt.Fprint(cmd.OutOrStdout(), sb.String())
	return nil
}
