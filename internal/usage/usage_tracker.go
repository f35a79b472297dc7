package usage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lifecoach/internal/logging"
)

// Tracker aggregates request metrics across runs and persists them.
type Tracker struct {
	mu       sync.Mutex
	data     UsageData
	filePath string
	dirty    bool
	saveWait time.Duration
}

// NewTracker creates a tracker persisting to <dataDir>/usage.json.
func NewTracker(dataDir string) (*Tracker, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	t := &Tracker{
		filePath: filepath.Join(dataDir, "usage.json"),
		saveWait: 5 * time.Second,
		data: UsageData{
			Version:   "1.0",
			Aggregate: newAggregatedStats(),
		},
	}

	if err := t.Load(); err != nil {
		logging.Get(logging.CategorySession).Warn("Usage file unreadable, starting fresh: %v", err)
	}

	return t, nil
}

// Load reads the usage data from disk.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var loaded UsageData
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}
	loaded.Aggregate.ensureMaps()
	t.data = loaded
	return nil
}

// Save writes the usage data to disk.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	t.data.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(t.filePath, data, 0644)
}

// Commit folds one request's counters into the aggregate.
func (t *Tracker) Commit(m *RequestMetrics) {
	if t == nil || m == nil {
		return
	}
	snap := m.Snapshot()

	t.mu.Lock()
	defer t.mu.Unlock()

	agg := &t.data.Aggregate
	agg.Requests++
	addCounts(agg.LLMCalls, snap.LLMCalls)
	addCounts(agg.LLMFailures, snap.LLMFailures)
	addCounts(agg.HandlerFailures, snap.HandlerFailures)
	if snap.CombineMethod != "" {
		agg.CombineMethods[snap.CombineMethod]++
	}
	if snap.ArchiveOutcome != "" {
		agg.ArchiveOutcomes[snap.ArchiveOutcome]++
	}
	agg.StoreDegradations += snap.StoreDegradations
	if snap.FollowUp {
		agg.FollowUps++
	}

	t.scheduleSaveLocked()
}

// scheduleSaveLocked arms the debounced autosave. Callers hold t.mu.
func (t *Tracker) scheduleSaveLocked() {
	if t.dirty || t.saveWait <= 0 {
		return
	}
	t.dirty = true
	time.AfterFunc(t.saveWait, func() {
		if err := t.Save(); err != nil {
			logging.Get(logging.CategorySession).Warn("Usage autosave failed: %v", err)
		}
		t.mu.Lock()
		t.dirty = false
		t.mu.Unlock()
	})
}

// RecordArchive counts an archive outcome that completed after its request was committed.
func (t *Tracker) RecordArchive(outcome string) {
	if t == nil || outcome == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.Aggregate.ArchiveOutcomes[outcome]++
	t.scheduleSaveLocked()
}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.data.Aggregate
	stats.LLMCalls = copyCounts(stats.LLMCalls)
	stats.LLMFailures = copyCounts(stats.LLMFailures)
	stats.HandlerFailures = copyCounts(stats.HandlerFailures)
	stats.CombineMethods = copyCounts(stats.CombineMethods)
	stats.ArchiveOutcomes = copyCounts(stats.ArchiveOutcomes)
	return stats
}

func addCounts(dst, src map[string]int64) {
	for k, v := range src {
		dst[k] += v
	}
}
