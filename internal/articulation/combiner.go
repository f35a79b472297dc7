// Package articulation turns handler outputs into the single reply the user sees,
// and parses the structured JSON that model calls return.
package articulation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"lifecoach/internal/logging"
	"lifecoach/internal/types"
	"lifecoach/internal/usage"
)

// TruncationMarker is appended to replies cut at the configured length.
const TruncationMarker = "\n\n[response truncated]"

// SafeDefaultResponse is returned when no handler produced usable output.
const SafeDefaultResponse = "Sorry, I couldn't put together a good answer just now. Could you rephrase that or try again in a moment?"

// knownPairs are category pairs merged deterministically, in this order.
var knownPairs = [][2]types.Category{
	{types.CategoryExercise, types.CategoryFood},
	{types.CategorySchedule, types.CategoryMotivation},
	{types.CategoryExercise, types.CategoryMotivation},
}

// CombinerConfig bounds the combiner.
type CombinerConfig struct {
	MaxResponseChars int // rune cap on the final text, marker included
}

// Combiner merges per-category handler outputs into one response.
type Combiner struct {
	llm types.LLMClient
	cfg CombinerConfig
}

// NewCombiner creates a combiner. llm may be nil, which disables model-assisted merges.
func NewCombiner(llm types.LLMClient, cfg CombinerConfig) *Combiner {
	if cfg.MaxResponseChars <= utf8.RuneCountInString(TruncationMarker) {
		cfg.MaxResponseChars = 4000
	}
	return &Combiner{llm: llm, cfg: cfg}
}

// Combine never fails; its worst case is SafeDefaultResponse.
func (c *Combiner) Combine(ctx context.Context, results []types.TaskResult) types.CombinedResponse {
	timer := logging.StartTimer(logging.CategoryArticulation, "Combine")
	defer timer.Stop()

	resp := c.combine(ctx, results)
	resp.Text, resp.Truncated = Truncate(resp.Text, c.cfg.MaxResponseChars)
	if resp.Truncated {
		logging.ArticulationDebug("Combined response truncated to %d runes", c.cfg.MaxResponseChars)
	}
	usage.RequestFromContext(ctx).RecordCombine(string(resp.Method))
	logging.Articulation("Combined %d results via %s: categories=%v", len(results), resp.Method, resp.Categories)
	return resp
}

func (c *Combiner) combine(ctx context.Context, results []types.TaskResult) types.CombinedResponse {
	// 1. Discard errored results
	valid := make([]types.TaskResult, 0, len(results))
	for _, r := range results {
		if !r.OK() || strings.TrimSpace(r.Output) == "" {
			if r.Err != "" {
				logging.ArticulationDebug("Discarding failed %s result: %s", r.Category, r.Err)
			}
			continue
		}
		valid = append(valid, r)
	}

	// 2. Nothing usable
	if len(valid) == 0 {
		return types.CombinedResponse{Text: SafeDefaultResponse, Method: types.CombineDefault}
	}

	// 3. One result passes through unchanged
	if len(valid) == 1 {
		return types.CombinedResponse{
			Text:       valid[0].Output,
			Categories: []types.Category{valid[0].Category},
			Method:     types.CombineSingle,
		}
	}

	// 4a. Known pair
	if ordered, ok := orderForPair(valid); ok {
		return types.CombinedResponse{
			Text:       joinSections(ordered),
			Categories: categoriesOf(ordered),
			Method:     types.CombinePair,
		}
	}

	// 4b. Model-assisted merge
	if c.llm != nil {
		text, err := c.mergeWithModel(ctx, valid)
		if err == nil {
			return types.CombinedResponse{
				Text:       text,
				Categories: categoriesOf(valid),
				Method:     types.CombineMerged,
			}
		}
		logging.ArticulationWarn("Model merge unusable, falling back to priority: %v", err)
	}

	// 4c. Static priority
	best := SelectByPriority(valid)
	return types.CombinedResponse{
		Text:       best.Output,
		Categories: []types.Category{best.Category},
		Method:     types.CombinePriority,
	}
}

// orderForPair finds the first known pair present in valid and returns the
// results with that pair first (in pair order) and the rest in input order.
func orderForPair(valid []types.TaskResult) ([]types.TaskResult, bool) {
	byCat := make(map[types.Category]int, len(valid))
	for i, r := range valid {
		if _, dup := byCat[r.Category]; !dup {
			byCat[r.Category] = i
		}
	}
	for _, pair := range knownPairs {
		a, okA := byCat[pair[0]]
		b, okB := byCat[pair[1]]
		if !okA || !okB {
			continue
		}
		ordered := []types.TaskResult{valid[a], valid[b]}
		for i, r := range valid {
			if i != a && i != b {
				ordered = append(ordered, r)
			}
		}
		return ordered, true
	}
	return nil, false
}

// SelectByPriority returns the result whose category ranks highest in the
// static order. Equal ranks keep input order.
func SelectByPriority(valid []types.TaskResult) types.TaskResult {
	best := valid[0]
	for _, r := range valid[1:] {
		if r.Category.Priority() < best.Category.Priority() {
			best = r
		}
	}
	return best
}

// SectionHeader returns the header line that opens a category's section.
func SectionHeader(cat types.Category) string {
	return "## " + cat.Title()
}

func joinSections(results []types.TaskResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		body := stripLeadingHeader(strings.TrimSpace(r.Output), r.Category)
		parts = append(parts, SectionHeader(r.Category)+"\n\n"+body)
	}
	return strings.Join(parts, "\n\n")
}

// stripLeadingHeader drops a header the handler already wrote for its own category.
func stripLeadingHeader(body string, cat types.Category) string {
	first, rest, _ := strings.Cut(body, "\n")
	if strings.EqualFold(strings.TrimSpace(first), SectionHeader(cat)) {
		return strings.TrimSpace(rest)
	}
	return body
}

func categoriesOf(results []types.TaskResult) []types.Category {
	out := make([]types.Category, len(results))
	for i, r := range results {
		out[i] = r.Category
	}
	return out
}

const mergeSystemPrompt = `You combine answers from several coaching specialists into one reply.
Keep every specialist's concrete advice, remove repetition, and keep a warm, direct tone.
Start each specialist's part with its header line exactly as given (for example "## Exercise").
Reply with the combined text only.`

func (c *Combiner) mergeWithModel(ctx context.Context, valid []types.TaskResult) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("merge panic: %v", r)
		}
	}()

	var sb strings.Builder
	sb.WriteString("Specialist answers:\n\n")
	for _, r := range valid {
		sb.WriteString(SectionHeader(r.Category))
		sb.WriteString("\n")
		sb.WriteString(strings.TrimSpace(r.Output))
		sb.WriteString("\n\n")
	}

	ctx = usage.WithOperation(ctx, usage.OpMerge)
	raw, err := c.llm.CompleteWithSystem(ctx, mergeSystemPrompt, sb.String())
	if err != nil {
		return "", fmt.Errorf("merge call failed: %w", err)
	}
	if err := ValidateMerge(raw, categoriesOf(valid)); err != nil {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

// ValidateMerge checks that merged text is non-empty and opens a section
// for every contributing category.
func ValidateMerge(text string, cats []types.Category) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("merge output is empty")
	}
	for _, cat := range cats {
		if !headerPattern(cat).MatchString(text) {
			return fmt.Errorf("merge output is missing the %q header", SectionHeader(cat))
		}
	}
	return nil
}

func headerPattern(cat types.Category) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^\s*#{1,3}\s*` + regexp.QuoteMeta(cat.Title()) + `\b`)
}

// Truncate caps text at max runes. When it cuts, the result ends with
// TruncationMarker and still fits within max.
func Truncate(text string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text, false
	}
	marker := []rune(TruncationMarker)
	keep := max - len(marker)
	if keep < 0 {
		return string(marker[:max]), true
	}
	runes := []rune(text)
	body := strings.TrimRight(string(runes[:keep]), " \t\n")
	return body + TruncationMarker, true
}
