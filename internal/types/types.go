// Package types provides shared type definitions used across lifecoach packages.
// This package exists to break import cycles between perception, shards, articulation,
// and session. Types in this package should be foundational data structures with no
// complex dependencies.
package types

import (
	"strings"
	"time"
)

// =============================================================================
// CONVERSATION TYPES
// =============================================================================

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a user's conversation log. Immutable once appended.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Category is the response category recorded for assistant messages.
	// Empty for user messages and for assistant messages stored without one.
	Category Category `json:"category,omitempty"`
}

// LastAssistant returns the most recent assistant message in history.
func LastAssistant(history []Message) (Message, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleAssistant {
			return history[i], true
		}
	}
	return Message{}, false
}

// TailMessages returns at most n trailing messages, preserving order.
func TailMessages(history []Message, n int) []Message {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// FormatHistory renders history as "role: content" lines for prompts.
func FormatHistory(history []Message) string {
	var sb strings.Builder
	for i, m := range history {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
	}
	return sb.String()
}

// UserTraits summarizes persistent facts about a user (goals, preferences).
type UserTraits struct {
	Goals       []string `json:"goals,omitempty" yaml:"goals,omitempty"`
	Preferences []string `json:"preferences,omitempty" yaml:"preferences,omitempty"`
	Notes       string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// IsEmpty reports whether no trait is set.
func (t *UserTraits) IsEmpty() bool {
	return t == nil || (len(t.Goals) == 0 && len(t.Preferences) == 0 && strings.TrimSpace(t.Notes) == "")
}

// Summary renders the traits as a short paragraph for prompts.
func (t *UserTraits) Summary() string {
	if t.IsEmpty() {
		return ""
	}
	var parts []string
	if len(t.Goals) > 0 {
		parts = append(parts, "Goals: "+strings.Join(t.Goals, "; "))
	}
	if len(t.Preferences) > 0 {
		parts = append(parts, "Preferences: "+strings.Join(t.Preferences, "; "))
	}
	if n := strings.TrimSpace(t.Notes); n != "" {
		parts = append(parts, "Notes: "+n)
	}
	return strings.Join(parts, "\n")
}

// =============================================================================
// PIPELINE TYPES
// =============================================================================

// ClassificationResult is the classifier's routing decision for one message.
// Categories is never empty and every element is a member of AllCategories.
type ClassificationResult struct {
	Categories     []Category `json:"categories"`
	IsFollowUp     bool       `json:"is_follow_up"`
	ReusedCategory Category   `json:"reused_category,omitempty"`
	Explanation    string     `json:"explanation"`
}

// Primary returns the first (highest priority) category.
func (c ClassificationResult) Primary() Category {
	if len(c.Categories) == 0 {
		return CategoryGeneral
	}
	return c.Categories[0]
}

// ContextBundle maps each selected category to the hint its handler receives.
type ContextBundle map[Category]string

// HandlerReply is what a handler returns on success.
type HandlerReply struct {
	Category Category `json:"category"`
	Response string   `json:"response"`
}

// TaskResult is the outcome of one handler invocation. Exactly one of Output and Err is set.
type TaskResult struct {
	Category Category
	Output   string
	Err      string
	Duration time.Duration
}

// Succeeded builds a successful TaskResult.
func Succeeded(cat Category, output string, d time.Duration) TaskResult {
	return TaskResult{Category: cat, Output: output, Duration: d}
}

// Failed builds a failed TaskResult. An empty reason is replaced so Err is always set.
func Failed(cat Category, reason string, d time.Duration) TaskResult {
	if strings.TrimSpace(reason) == "" {
		reason = "handler failed"
	}
	return TaskResult{Category: cat, Err: reason, Duration: d}
}

// OK reports whether the result carries usable output.
func (r TaskResult) OK() bool {
	return r.Err == ""
}

// CombineMethod records which combination path produced a response.
type CombineMethod string

const (
	CombineSingle   CombineMethod = "single"
	CombinePair     CombineMethod = "pair"
	CombineMerged   CombineMethod = "merged"
	CombinePriority CombineMethod = "priority"
	CombineDefault  CombineMethod = "default"
)

// CombinedResponse is the merged reply handed back to the caller.
type CombinedResponse struct {
	Text       string        `json:"text"`
	Categories []Category    `json:"contributing_categories"`
	Method     CombineMethod `json:"method"`
	Truncated  bool          `json:"truncated,omitempty"`
}

// PrimaryCategory returns the first contributing category, or general.
func (c CombinedResponse) PrimaryCategory() Category {
	if len(c.Categories) == 0 {
		return CategoryGeneral
	}
	return c.Categories[0]
}

// PipelineResponse is what callers of the pipeline receive. It is always populated.
type PipelineResponse struct {
	Text           string
	Category       Category
	Categories     []Category
	Classification ClassificationResult
	Results        []TaskResult
	Method         CombineMethod
	RequestID      string
	Duration       time.Duration
}

// =============================================================================
// ARCHIVE TYPES
// =============================================================================

// ArchivePayload is the denormalized summary stored with an archive record.
type ArchivePayload struct {
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Category  Category  `json:"category"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// ArchiveRecord is an exchange judged worth remembering. Never mutated after creation.
type ArchiveRecord struct {
	ID        string         `json:"id"`
	Embedding []float32      `json:"-"`
	Payload   ArchivePayload `json:"payload"`
}

// ScoredRecord is an archive record returned by a similarity search.
type ScoredRecord struct {
	ArchiveRecord
	Score float64 `json:"score"`
}
