package perception

import (
	"context"
	"fmt"
	"strings"

	"lifecoach/internal/articulation"
	"lifecoach/internal/logging"
	"lifecoach/internal/types"
	"lifecoach/internal/usage"
)

// =============================================================================
// CLASSIFIER
// =============================================================================

// ClassifierConfig bounds the classifier.
type ClassifierConfig struct {
	MaxCategories int // 1..3
	HistoryWindow int // messages shown to the model
}

// DefaultClassifierConfig returns the standard limits.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{MaxCategories: 3, HistoryWindow: 10}
}

// Classifier maps a message plus recent history to one or more categories.
type Classifier struct {
	llm LLMClient
	cfg ClassifierConfig
}

// NewClassifier creates a classifier. llm may be nil, in which case only the
// follow-up and keyword paths run.
func NewClassifier(llm LLMClient, cfg ClassifierConfig) *Classifier {
	if cfg.MaxCategories < 1 || cfg.MaxCategories > 3 {
		cfg.MaxCategories = 3
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 10
	}
	return &Classifier{llm: llm, cfg: cfg}
}

const classifySystemPrompt = `You route messages for a personal coaching assistant.
Pick between 1 and 3 categories for the user's latest message from exactly this list:
exercise, food, schedule, motivation, general.
Use "general" only when nothing else fits.
Answer with a JSON array of category names, most relevant first, for example ["food","exercise"].
You may add one short sentence of rationale after the array.`

// Classify never fails: every error degrades to a keyword match or to [general],
// with the reason recorded in the explanation.
func (c *Classifier) Classify(ctx context.Context, message string, history []types.Message) (result types.ClassificationResult) {
	timer := logging.StartTimer(logging.CategoryPerception, "Classify")
	defer timer.Stop()

	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryPerception).Error("Classifier panic: %v", r)
			result = generalResult(fmt.Sprintf("classifier panic: %v", r))
		}
	}()

	// 1. Follow-up short-circuit
	sig := DetectFollowUp(message)
	if sig.IsFollowUp() {
		if prev, source, ok := PreviousCategory(history); ok {
			logging.Perception("Follow-up detected (%s); reusing %s category %s", sig, source, prev)
			usage.RequestFromContext(ctx).RecordFollowUp()
			return types.ClassificationResult{
				Categories:     []types.Category{prev},
				IsFollowUp:     true,
				ReusedCategory: prev,
				Explanation:    fmt.Sprintf("follow-up (%s) reusing %s category from previous turn", sig, source),
			}
		}
		logging.PerceptionDebug("Follow-up signals (%s) but no previous category; classifying fully", sig)
	}

	// 2. Full classification
	var reason string
	if c.llm == nil {
		reason = "no language model configured"
	} else {
		cats, err := c.classifyWithModel(ctx, message, history)
		if err == nil {
			cats = types.NormalizeCategories(cats, c.cfg.MaxCategories)
			logging.Perception("Model classification: %v", cats)
			return types.ClassificationResult{
				Categories:  cats,
				Explanation: "model classification",
			}
		}
		reason = err.Error()
		logging.PerceptionWarn("Model classification failed: %v", err)
	}

	// Keyword fallback
	if cats := KeywordCategories(message); len(cats) > 0 {
		cats = types.NormalizeCategories(cats, c.cfg.MaxCategories)
		logging.Perception("Keyword fallback matched %v", cats)
		return types.ClassificationResult{
			Categories:  cats,
			Explanation: fmt.Sprintf("model classification failed (%s); keyword fallback", reason),
		}
	}

	return generalResult(fmt.Sprintf("model classification failed (%s); no keyword match", reason))
}

func generalResult(explanation string) types.ClassificationResult {
	return types.ClassificationResult{
		Categories:  []types.Category{types.CategoryGeneral},
		Explanation: explanation,
	}
}

func (c *Classifier) classifyWithModel(ctx context.Context, message string, history []types.Message) ([]types.Category, error) {
	var sb strings.Builder
	if window := types.TailMessages(history, c.cfg.HistoryWindow); len(window) > 0 {
		sb.WriteString("Recent conversation:\n")
		sb.WriteString(types.FormatHistory(window))
		sb.WriteString("\n\n")
	}
	sb.WriteString("Latest message:\n")
	sb.WriteString(message)

	ctx = usage.WithOperation(ctx, usage.OpClassify)
	raw, err := c.llm.CompleteWithSystem(ctx, classifySystemPrompt, sb.String())
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	return ParseCategoryList(raw)
}

// ParseCategoryList extracts enum members from a model answer. It accepts a
// JSON array of names, or an object with a "categories" array, anywhere in raw.
func ParseCategoryList(raw string) ([]types.Category, error) {
	var names []string
	if _, err := articulation.ExtractJSONArray(raw, &names); err != nil {
		var obj struct {
			Categories []string `json:"categories"`
		}
		if _, objErr := articulation.ExtractJSONObject(raw, &obj); objErr != nil || len(obj.Categories) == 0 {
			return nil, fmt.Errorf("parse failure: %w", err)
		}
		names = obj.Categories
	}

	var cats []types.Category
	var rejected []string
	for _, n := range names {
		cat, err := types.ParseCategory(n)
		if err != nil {
			rejected = append(rejected, n)
			continue
		}
		cats = append(cats, cat)
	}
	if len(cats) == 0 {
		return nil, fmt.Errorf("parse failure: no valid categories in model output (rejected %q)", rejected)
	}
	if len(rejected) > 0 {
		logging.PerceptionDebug("Ignored non-enum categories from model: %v", rejected)
	}
	return cats, nil
}
