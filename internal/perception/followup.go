package perception

import (
	"strings"
	"unicode/utf8"

	"lifecoach/internal/types"
)

// shortMessageRunes is the length at or below which a message counts as short.
const shortMessageRunes = 25

var demonstratives = map[string]bool{
	// English
	"this": true, "that": true, "these": true, "those": true, "it": true, "them": true, "one": true,
	// Spanish
	"este": true, "esta": true, "esto": true, "estos": true, "estas": true,
	"ese": true, "esa": true, "eso": true, "esos": true, "esas": true,
	"aquel": true, "aquella": true, "aquello": true,
}

var continuationPhrases = []string{
	"what about", "how about", "and what", "more on", "more about", "tell me more",
	"what else", "and also", "go on", "explain more", "expand on", "why that",
	"y qué", "y que", "qué tal", "que tal", "más sobre", "mas sobre",
	"cuéntame más", "cuentame mas", "dime más", "dime mas", "y el", "y la",
}

// FollowUpSignals records which continuation cues fired for a message.
type FollowUpSignals struct {
	Short         bool
	Demonstrative bool
	Reference     bool
	Continuation  bool
	TopicKeyword  bool
}

// DetectFollowUp inspects message for signs that it continues the previous turn.
func DetectFollowUp(message string) FollowUpSignals {
	trimmed := strings.TrimSpace(message)
	tokens := normalizeText(trimmed)
	padded := " " + strings.Join(tokens, " ") + " "

	var sig FollowUpSignals
	sig.Short = trimmed != "" && utf8.RuneCountInString(trimmed) <= shortMessageRunes
	for _, tok := range tokens {
		if demonstratives[tok] {
			sig.Demonstrative = true
			break
		}
	}
	sig.Reference = HasReference(trimmed)
	lower := " " + strings.ToLower(trimmed) + " "
	for _, phrase := range continuationPhrases {
		p := " " + phrase + " "
		if strings.Contains(padded, p) || strings.Contains(lower, p) {
			sig.Continuation = true
			break
		}
	}
	sig.TopicKeyword = HasTopicKeyword(trimmed)
	return sig
}

// IsFollowUp applies the combination rule: a short message plus any other cue,
// or a reference, demonstrative or continuation phrase with no topic keyword.
func (s FollowUpSignals) IsFollowUp() bool {
	if s.Short && (s.Demonstrative || s.Reference || s.Continuation || !s.TopicKeyword) {
		return true
	}
	if s.TopicKeyword {
		return false
	}
	return s.Reference || s.Demonstrative || s.Continuation
}

// String lists the signals that fired, for explanations.
func (s FollowUpSignals) String() string {
	var parts []string
	if s.Short {
		parts = append(parts, "short")
	}
	if s.Demonstrative {
		parts = append(parts, "demonstrative")
	}
	if s.Reference {
		parts = append(parts, "reference")
	}
	if s.Continuation {
		parts = append(parts, "continuation")
	}
	if !s.TopicKeyword {
		parts = append(parts, "no-topic")
	}
	return strings.Join(parts, ",")
}

// PreviousCategory returns the category the last assistant message belongs to:
// the recorded one when present, otherwise the one its keywords imply.
func PreviousCategory(history []types.Message) (types.Category, string, bool) {
	last, ok := types.LastAssistant(history)
	if !ok {
		return "", "", false
	}
	if last.Category.IsValid() {
		return last.Category, "recorded", true
	}
	if cat, ok := InferCategory(last.Content); ok {
		return cat, "inferred", true
	}
	return "", "", false
}
