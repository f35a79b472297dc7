// Package contextbuild gives each selected handler a short, category-scoped hint.
//
// Follow-ups that point at an item of a previously sent list ("tell me more about
// the second one") are resolved locally against the last assistant message. Every
// other message costs one model call, with static per-category instructions
// filling whatever the model leaves out.
package contextbuild

import (
	"context"
	"fmt"
	"strings"

	"lifecoach/internal/articulation"
	"lifecoach/internal/logging"
	"lifecoach/internal/perception"
	"lifecoach/internal/types"
	"lifecoach/internal/usage"
)

// DefaultContext is the last-resort hint for any category without an entry.
const DefaultContext = "answer the user's general question"

// genericContexts are the static per-category instructions used when the model
// gives nothing usable for a category.
var genericContexts = map[types.Category]string{
	types.CategoryExercise:   "give practical exercise guidance that fits the user's request and level",
	types.CategoryFood:       "give concrete food and nutrition advice for the user's request",
	types.CategorySchedule:   "help the user organize their time and plan the activities they mention",
	types.CategoryMotivation: "encourage the user and offer one small, actionable next step",
	types.CategoryGeneral:    DefaultContext,
}

// GenericContext returns the static instruction for cat.
func GenericContext(cat types.Category) string {
	if s, ok := genericContexts[cat]; ok {
		return s
	}
	return DefaultContext
}

// Config bounds the builder.
type Config struct {
	HistoryWindow int // trailing messages shown to the model
}

// Builder produces a ContextBundle per message.
type Builder struct {
	llm types.LLMClient
	cfg Config
}

// NewBuilder creates a builder. llm may be nil, in which case only reference
// resolution and the static table are used.
func NewBuilder(llm types.LLMClient, cfg Config) *Builder {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 10
	}
	return &Builder{llm: llm, cfg: cfg}
}

// Build returns a bundle with a non-empty entry for every requested category.
func (b *Builder) Build(ctx context.Context, message string, categories []types.Category, history []types.Message, traits *types.UserTraits) types.ContextBundle {
	bundle, _ := b.Plan(ctx, message, categories, history, traits)
	return bundle
}

// Plan builds the bundle and picks the categories to dispatch. When list
// references resolve, only the categories of the referenced items are
// dispatched, in reference order; the bundle still covers every requested
// category. Otherwise the requested categories are dispatched as given.
func (b *Builder) Plan(ctx context.Context, message string, categories []types.Category, history []types.Message, traits *types.UserTraits) (types.ContextBundle, []types.Category) {
	timer := logging.StartTimer(logging.CategoryContext, "Build")
	defer timer.Stop()

	bundle := make(types.ContextBundle, len(categories))
	dispatch := categories

	if resolved, order := b.resolveReferences(message, categories, history); len(order) > 0 {
		for cat, hint := range resolved {
			bundle[cat] = hint
		}
		dispatch = order
		logging.Context("Resolved list reference to %v without a model call", order)
	} else if b.llm != nil && len(categories) > 0 {
		generated, err := b.generate(ctx, message, categories, history, traits)
		if err != nil {
			logging.ContextWarn("Context generation failed, using generic instructions: %v", err)
		}
		for cat, hint := range generated {
			bundle[cat] = hint
		}
	}

	fillMissing(bundle, categories)
	return bundle, append([]types.Category(nil), dispatch...)
}

func fillMissing(bundle types.ContextBundle, categories []types.Category) {
	for _, cat := range categories {
		if strings.TrimSpace(bundle[cat]) == "" {
			bundle[cat] = GenericContext(cat)
		}
	}
	for cat, hint := range bundle {
		if strings.TrimSpace(hint) == "" {
			bundle[cat] = DefaultContext
		}
	}
}

// =============================================================================
// REFERENCE RESOLUTION
// =============================================================================

// resolveReferences maps referenced list items in the last assistant message to
// the category their own wording points at, returning the hints and the
// categories in first-reference order. Items with no keyword hit go to the
// first requested category.
func (b *Builder) resolveReferences(message string, categories []types.Category, history []types.Message) (types.ContextBundle, []types.Category) {
	refs := perception.ParseReferences(message)
	if len(refs) == 0 {
		return nil, nil
	}
	last, ok := types.LastAssistant(history)
	if !ok {
		logging.ContextDebug("References %v found but no assistant message to resolve against", refs)
		return nil, nil
	}
	items := perception.ExtractListItems(last.Content)
	if len(items) == 0 {
		logging.ContextDebug("References %v found but last assistant message has no list", refs)
		return nil, nil
	}

	fallback := types.CategoryGeneral
	if len(categories) > 0 {
		fallback = categories[0]
	}

	grouped := make(map[types.Category][]string)
	var order []types.Category
	for _, idx := range refs {
		item, ok := items[idx]
		if !ok || item == "" {
			continue
		}
		cat, ok := perception.InferCategory(item)
		if !ok {
			cat = fallback
		}
		if _, seen := grouped[cat]; !seen {
			order = append(order, cat)
		}
		grouped[cat] = append(grouped[cat], item)
		logging.ContextDebug("Reference %d resolved to %q (%s)", idx, item, cat)
	}

	if len(order) == 0 {
		return nil, nil
	}
	out := make(types.ContextBundle, len(order))
	for _, cat := range order {
		out[cat] = ItemContext(grouped[cat])
	}
	return out, order
}

// ItemContext names the referenced items directly.
func ItemContext(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + item + "'"
	}
	return "the user is asking for detail about " + strings.Join(quoted, " and ")
}

// =============================================================================
// MODEL-GENERATED CONTEXT
// =============================================================================

const contextSystemPrompt = `You prepare briefs for specialist coaches.
For each requested category write one short sentence telling that coach what the user needs from them.
Reply with a single JSON object whose keys are the category names and whose values are the briefs.`

func (b *Builder) generate(ctx context.Context, message string, categories []types.Category, history []types.Message, traits *types.UserTraits) (out types.ContextBundle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("context generation panic: %v", r)
			out = nil
		}
	}()

	ctx = usage.WithOperation(ctx, usage.OpContext)
	raw, err := b.llm.CompleteWithSystem(ctx, contextSystemPrompt, b.buildPrompt(message, categories, history, traits))
	if err != nil {
		return nil, fmt.Errorf("context call failed: %w", err)
	}
	return ParseContexts(raw, categories)
}

func (b *Builder) buildPrompt(message string, categories []types.Category, history []types.Message, traits *types.UserTraits) string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}

	var sb strings.Builder
	sb.WriteString("Categories: ")
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString("\n\n")
	if summary := traits.Summary(); summary != "" {
		sb.WriteString("What we know about the user:\n")
		sb.WriteString(summary)
		sb.WriteString("\n\n")
	}
	if recent := types.TailMessages(history, b.cfg.HistoryWindow); len(recent) > 0 {
		sb.WriteString("Recent conversation:\n")
		sb.WriteString(types.FormatHistory(recent))
		sb.WriteString("\n\n")
	}
	sb.WriteString("Message: ")
	sb.WriteString(message)
	return sb.String()
}

// ParseContexts reads a {category: context} object from raw model output.
// Keys that are not requested categories and blank values are dropped.
func ParseContexts(raw string, categories []types.Category) (types.ContextBundle, error) {
	var parsed map[string]any
	if _, err := articulation.ExtractJSONObject(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse failure: %w", err)
	}

	out := make(types.ContextBundle, len(categories))
	for key, val := range parsed {
		cat, err := types.ParseCategory(key)
		if err != nil || !types.ContainsCategory(categories, cat) {
			continue
		}
		s, ok := val.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out[cat] = s
		}
	}
	return out, nil
}
