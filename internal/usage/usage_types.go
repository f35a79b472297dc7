package usage

import "time"

// UsageData represents the root structure stored in persistence.
type UsageData struct {
	Version   string          `json:"version"`
	UpdatedAt time.Time       `json:"updated_at"`
	Aggregate AggregatedStats `json:"aggregate"`
}

// AggregatedStats holds pipeline counters summed across requests.
type AggregatedStats struct {
	Requests          int64            `json:"requests"`
	LLMCalls          map[string]int64 `json:"llm_calls"`           // by operation: classify, context, merge, importance, handler
	LLMFailures       map[string]int64 `json:"llm_failures"`        // by operation
	HandlerFailures   map[string]int64 `json:"handler_failures"`    // by category
	CombineMethods    map[string]int64 `json:"combine_methods"`     // single, pair, merged, priority, default
	ArchiveOutcomes   map[string]int64 `json:"archive_outcomes"`    // stored, skipped, failed
	StoreDegradations int64            `json:"store_degradations"`  // primary store errors served from memory
	FollowUps         int64            `json:"follow_ups"`
}

func newAggregatedStats() AggregatedStats {
	return AggregatedStats{
		LLMCalls:        make(map[string]int64),
		LLMFailures:     make(map[string]int64),
		HandlerFailures: make(map[string]int64),
		CombineMethods:  make(map[string]int64),
		ArchiveOutcomes: make(map[string]int64),
	}
}

// ensureMaps fills nil maps left by an empty or partial file.
func (s *AggregatedStats) ensureMaps() {
	if s.LLMCalls == nil {
		s.LLMCalls = make(map[string]int64)
	}
	if s.LLMFailures == nil {
		s.LLMFailures = make(map[string]int64)
	}
	if s.HandlerFailures == nil {
		s.HandlerFailures = make(map[string]int64)
	}
	if s.CombineMethods == nil {
		s.CombineMethods = make(map[string]int64)
	}
	if s.ArchiveOutcomes == nil {
		s.ArchiveOutcomes = make(map[string]int64)
	}
}

// Archive outcomes.
const (
	ArchiveStored  = "stored"
	ArchiveSkipped = "skipped"
	ArchiveFailed  = "failed"
)
