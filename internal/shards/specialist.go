package shards

import (
	"context"
	"fmt"
	"strings"

	"lifecoach/internal/logging"
	"lifecoach/internal/types"
)

// personas give each built-in specialist its voice.
var personas = map[types.Category]string{
	types.CategoryExercise:   "You are a certified personal trainer. Suggest safe, specific exercises with sets, reps or durations, and adapt them to the user's level.",
	types.CategoryFood:       "You are a practical nutrition coach. Suggest concrete meals, portions and swaps the user can act on today.",
	types.CategorySchedule:   "You are a time management coach. Turn the user's plans into a realistic schedule with clear time blocks.",
	types.CategoryMotivation: "You are an encouraging accountability coach. Acknowledge how the user feels and give one small next step.",
	types.CategoryGeneral:    "You are a friendly life coach. Answer clearly and briefly.",
}

const specialistRules = `Keep the answer under 250 words.
Use a numbered list when you give several options.
Do not give medical diagnoses.`

// Specialist is an LLM-backed handler for one category.
type Specialist struct {
	category      types.Category
	llm           types.LLMClient
	historyWindow int
}

// NewSpecialist creates the built-in handler for cat.
func NewSpecialist(cat types.Category, llm types.LLMClient, historyWindow int) *Specialist {
	if historyWindow <= 0 {
		historyWindow = 10
	}
	return &Specialist{category: cat, llm: llm, historyWindow: historyWindow}
}

// Category implements Handler.
func (s *Specialist) Category() types.Category { return s.category }

// Process implements Handler.
func (s *Specialist) Process(ctx context.Context, message string, history []types.Message, hint string) (types.HandlerReply, error) {
	if s.llm == nil {
		return types.HandlerReply{}, fmt.Errorf("%s specialist has no model client", s.category)
	}

	persona, ok := personas[s.category]
	if !ok {
		persona = personas[types.CategoryGeneral]
	}
	system := persona + "\n" + specialistRules
	if hint = strings.TrimSpace(hint); hint != "" {
		system += "\nFocus: " + hint
	}

	var sb strings.Builder
	if recent := types.TailMessages(history, s.historyWindow); len(recent) > 0 {
		sb.WriteString("Conversation so far:\n")
		sb.WriteString(types.FormatHistory(recent))
		sb.WriteString("\n\n")
	}
	sb.WriteString("User: ")
	sb.WriteString(message)

	out, err := s.llm.CompleteWithSystem(ctx, system, sb.String())
	if err != nil {
		return types.HandlerReply{}, fmt.Errorf("%s specialist: %w", s.category, err)
	}
	return types.HandlerReply{Category: s.category, Response: strings.TrimSpace(out)}, nil
}

// RegisterSpecialists registers a built-in specialist for every category.
func RegisterSpecialists(r *Registry, llm types.LLMClient, historyWindow int) error {
	for _, cat := range types.AllCategories {
		if err := r.Register(NewSpecialist(cat, llm, historyWindow)); err != nil {
			return err
		}
	}
	logging.Shards("Registered %d built-in specialists", len(types.AllCategories))
	return nil
}
