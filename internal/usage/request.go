package usage

import (
	"context"
	"sync"
)

type requestKey struct{}

// RequestMetrics collects counters for a single pipeline run.
// All methods are safe on a nil receiver so callers never need to check.
type RequestMetrics struct {
	mu                sync.Mutex
	requestID         string
	llmCalls          map[string]int64
	llmFailures       map[string]int64
	handlerFailures   map[string]int64
	combineMethod     string
	archiveOutcome    string
	archiveError      string
	storeDegradations int64
	followUp          bool
}

// NewRequestMetrics creates an empty metrics holder for requestID.
func NewRequestMetrics(requestID string) *RequestMetrics {
	return &RequestMetrics{
		requestID:       requestID,
		llmCalls:        make(map[string]int64),
		llmFailures:     make(map[string]int64),
		handlerFailures: make(map[string]int64),
	}
}

// WithRequest returns a context carrying m.
func WithRequest(ctx context.Context, m *RequestMetrics) context.Context {
	return context.WithValue(ctx, requestKey{}, m)
}

// RequestFromContext returns the request metrics carried by ctx, or nil.
func RequestFromContext(ctx context.Context) *RequestMetrics {
	if ctx == nil {
		return nil
	}
	m, _ := ctx.Value(requestKey{}).(*RequestMetrics)
	return m
}

// RecordLLMCall counts one model call for op, and a failure when err is non-nil.
func (m *RequestMetrics) RecordLLMCall(op string, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.llmCalls[op]++
	if err != nil {
		m.llmFailures[op]++
	}
}

// RecordHandlerFailure counts a failed handler invocation.
func (m *RequestMetrics) RecordHandlerFailure(category string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlerFailures[category]++
}

// RecordStoreDegraded counts a primary-store failure served by the fallback.
func (m *RequestMetrics) RecordStoreDegraded() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeDegradations++
}

// RecordCombine records which combination path produced the reply.
func (m *RequestMetrics) RecordCombine(method string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.combineMethod = method
}

// RecordFollowUp marks the request as a detected follow-up.
func (m *RequestMetrics) RecordFollowUp() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followUp = true
}

// RecordArchive records the archiver's outcome and, for failures, the reason.
func (m *RequestMetrics) RecordArchive(outcome string, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archiveOutcome = outcome
	if err != nil {
		m.archiveError = err.Error()
	}
}

// Snapshot is an immutable copy of a request's counters.
type Snapshot struct {
	RequestID         string
	LLMCalls          map[string]int64
	LLMFailures       map[string]int64
	HandlerFailures   map[string]int64
	CombineMethod     string
	ArchiveOutcome    string
	ArchiveError      string
	StoreDegradations int64
	FollowUp          bool
}

// Snapshot returns a copy of the current counters.
func (m *RequestMetrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		RequestID:         m.requestID,
		LLMCalls:          copyCounts(m.llmCalls),
		LLMFailures:       copyCounts(m.llmFailures),
		HandlerFailures:   copyCounts(m.handlerFailures),
		CombineMethod:     m.combineMethod,
		ArchiveOutcome:    m.archiveOutcome,
		ArchiveError:      m.archiveError,
		StoreDegradations: m.storeDegradations,
		FollowUp:          m.followUp,
	}
}

// Degraded reports whether any store call fell back to memory.
func (s Snapshot) Degraded() bool {
	return s.StoreDegradations > 0
}

func copyCounts(src map[string]int64) map[string]int64 {
	if src == nil {
		return nil
	}
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

type operationKey struct{}

// Operation labels for model calls.
const (
	OpClassify   = "classify"
	OpContext    = "context"
	OpHandler    = "handler"
	OpMerge      = "merge"
	OpImportance = "importance"
	OpEmbed      = "embed"
)

// WithOperation labels model calls made with ctx as op.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFromContext returns the operation label on ctx, or "unlabeled".
func OperationFromContext(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey{}).(string); ok && op != "" {
		return op
	}
	return "unlabeled"
}
