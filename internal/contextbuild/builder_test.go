package contextbuild

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lifecoach/internal/types"
	"lifecoach/internal/usage"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listHistory() []types.Message {
	return []types.Message{
		{Role: types.RoleUser, Content: "help me get healthier"},
		{Role: types.RoleAssistant, Content: "A few ideas:\n1. Do bodyweight squats every morning\n2. Swap soda for water\n3. Call a friend"},
	}
}

func TestBuild_ResolvesReferenceWithoutModel(t *testing.T) {
	llm := &MockLLMClient{}
	b := NewBuilder(llm, Config{})

	bundle := b.Build(context.Background(), "tell me more about the first one", []types.Category{types.CategoryExercise}, listHistory(), nil)

	assert.Equal(t, 0, llm.Calls())
	assert.Equal(t, "the user is asking for detail about 'Do bodyweight squats every morning'", bundle[types.CategoryExercise])
}

func TestPlan_ResolvedItemReplacesClassifiedCategory(t *testing.T) {
	b := NewBuilder(nil, Config{})
	requested := []types.Category{types.CategoryExercise}

	bundle, dispatch := b.Plan(context.Background(), "what about #2?", requested, listHistory(), nil)

	assert.Equal(t, "the user is asking for detail about 'Swap soda for water'", bundle[types.CategoryFood])
	assert.Equal(t, GenericContext(types.CategoryExercise), bundle[types.CategoryExercise])
	if diff := cmp.Diff([]types.Category{types.CategoryFood}, dispatch); diff != "" {
		t.Errorf("dispatch mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_ReferenceOrderAcrossCategories(t *testing.T) {
	b := NewBuilder(nil, Config{})

	_, dispatch := b.Plan(context.Background(), "#2 and #1", []types.Category{types.CategoryMotivation}, listHistory(), nil)

	if diff := cmp.Diff([]types.Category{types.CategoryFood, types.CategoryExercise}, dispatch); diff != "" {
		t.Errorf("dispatch mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_WithoutReferencesDispatchesRequested(t *testing.T) {
	b := NewBuilder(nil, Config{})
	requested := []types.Category{types.CategoryFood, types.CategorySchedule}

	bundle, dispatch := b.Plan(context.Background(), "plan my week", requested, listHistory(), nil)

	if diff := cmp.Diff(requested, dispatch); diff != "" {
		t.Errorf("dispatch mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, bundle, 2)
}

func TestBuild_UnmatchedItemGoesToFirstCategory(t *testing.T) {
	b := NewBuilder(nil, Config{})
	bundle := b.Build(context.Background(), "the third", []types.Category{types.CategoryMotivation}, listHistory(), nil)
	assert.Equal(t, "the user is asking for detail about 'Call a friend'", bundle[types.CategoryMotivation])
	assert.Len(t, bundle, 1)
}

func TestBuild_UnresolvableReferenceUsesModel(t *testing.T) {
	llm := replyWith(`{"exercise": "user wants item five explained"}`)
	b := NewBuilder(llm, Config{})

	bundle := b.Build(context.Background(), "what about number 5", []types.Category{types.CategoryExercise}, listHistory(), nil)

	assert.Equal(t, 1, llm.Calls())
	assert.Equal(t, "user wants item five explained", bundle[types.CategoryExercise])
}

func TestBuild_ModelPath(t *testing.T) {
	var gotOp string
	llm := &MockLLMClient{
		CompleteWithSystemFunc: func(ctx context.Context, sys, user string) (string, error) {
			gotOp = usage.OperationFromContext(ctx)
			return "Here you go:\n```json\n{\"food\": \"plan a high-protein lunch\", \"astrology\": \"ignored\", \"schedule\": \"  \"}\n```", nil
		},
	}
	b := NewBuilder(llm, Config{HistoryWindow: 1})
	traits := &types.UserTraits{Goals: []string{"lose 5kg"}}
	cats := []types.Category{types.CategoryFood, types.CategorySchedule}

	bundle := b.Build(context.Background(), "plan my lunches and my week", cats, listHistory(), traits)

	assert.Equal(t, usage.OpContext, gotOp)
	assert.Equal(t, "plan a high-protein lunch", bundle[types.CategoryFood])
	assert.Equal(t, GenericContext(types.CategorySchedule), bundle[types.CategorySchedule])
	assert.Len(t, bundle, 2)

	prompt := llm.LastPrompt()
	assert.Contains(t, prompt, "Categories: food, schedule")
	assert.Contains(t, prompt, "Goals: lose 5kg")
	assert.Contains(t, prompt, "assistant: A few ideas")
	assert.NotContains(t, prompt, "help me get healthier", "history window is 1")
}

func TestBuild_ModelFailures(t *testing.T) {
	tests := []struct {
		name string
		llm  *MockLLMClient
	}{
		{"error", &MockLLMClient{CompleteWithSystemFunc: func(ctx context.Context, sys, user string) (string, error) {
			return "", errors.New("quota")
		}}},
		{"prose", replyWith("the user wants food help")},
		{"panic", &MockLLMClient{CompleteWithSystemFunc: func(ctx context.Context, sys, user string) (string, error) {
			panic("bad client")
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(tt.llm, Config{})
			bundle := b.Build(context.Background(), "hi", []types.Category{types.CategoryFood, types.CategoryGeneral}, nil, nil)
			assert.Equal(t, GenericContext(types.CategoryFood), bundle[types.CategoryFood])
			assert.Equal(t, DefaultContext, bundle[types.CategoryGeneral])
		})
	}
}

func TestBuild_EveryCategoryHasEntry(t *testing.T) {
	messages := []string{"", "2", "the second one", "plan my week", "¿y la tercera?"}
	catSets := [][]types.Category{
		{types.CategoryGeneral},
		{types.CategoryExercise, types.CategoryFood, types.CategorySchedule},
		{types.CategoryMotivation},
	}
	replies := []string{"", "{}", `{"general": ""}`, "[1,2]", `{"food": 3}`}

	for _, msg := range messages {
		for _, cats := range catSets {
			for _, reply := range replies {
				b := NewBuilder(replyWith(reply), Config{})
				bundle := b.Build(context.Background(), msg, cats, listHistory(), nil)
				for _, cat := range cats {
					assert.NotEmpty(t, strings.TrimSpace(bundle[cat]), "msg=%q cat=%s reply=%q", msg, cat, reply)
				}
				for cat, hint := range bundle {
					assert.NotEmpty(t, hint, "extra category %s", cat)
				}
			}
		}
	}
}

func TestParseContexts(t *testing.T) {
	got, err := ParseContexts(`{"Exercise": "stretch first", "diet": "more fiber"}`, []types.Category{types.CategoryExercise, types.CategoryFood})
	require.NoError(t, err)
	assert.Equal(t, types.ContextBundle{
		types.CategoryExercise: "stretch first",
		types.CategoryFood:     "more fiber",
	}, got)

	_, err = ParseContexts("no json here", []types.Category{types.CategoryFood})
	assert.Error(t, err)
}
