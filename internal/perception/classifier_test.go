package perception

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lifecoach/internal/types"
	"lifecoach/internal/usage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseHistory() []types.Message {
	return []types.Message{
		{Role: types.RoleUser, Content: "give me leg exercises"},
		{Role: types.RoleAssistant, Content: "Here are some leg exercises:\n1. Squats\n2. Lunges"},
	}
}

func TestDetectFollowUp(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"what about item 2?", true},
		{"more on the second one", true},
		{"thanks", true},
		{"Can you explain that in more detail please?", true},
		{"I want to plan my meals for next week and find a gym", false},
		{"how much did I eat and how did I train today", false},
		{"hello there, how are you doing today?", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			sig := DetectFollowUp(tt.msg)
			assert.Equal(t, tt.want, sig.IsFollowUp(), "signals: %s", sig)
		})
	}
}

func TestClassify_FollowUpReusesInferredCategory(t *testing.T) {
	llm := &MockLLMClient{}
	c := NewClassifier(llm, DefaultClassifierConfig())

	metrics := usage.NewRequestMetrics("r1")
	ctx := usage.WithRequest(context.Background(), metrics)

	res := c.Classify(ctx, "what about item 2?", exerciseHistory())
	assert.True(t, res.IsFollowUp)
	assert.Equal(t, []types.Category{types.CategoryExercise}, res.Categories)
	assert.Equal(t, types.CategoryExercise, res.ReusedCategory)
	assert.Equal(t, 0, llm.Calls(), "follow-up must skip the model")
	assert.True(t, metrics.Snapshot().FollowUp)
}

func TestClassify_FollowUpPrefersRecordedCategory(t *testing.T) {
	history := exerciseHistory()
	history[1].Category = types.CategoryFood

	res := NewClassifier(nil, DefaultClassifierConfig()).Classify(context.Background(), "and the first one?", history)
	assert.True(t, res.IsFollowUp)
	assert.Equal(t, types.CategoryFood, res.ReusedCategory)
}

func TestClassify_FollowUpWithoutHistoryClassifiesFully(t *testing.T) {
	llm := replyWith(`["general"]`)
	res := NewClassifier(llm, DefaultClassifierConfig()).Classify(context.Background(), "thanks", nil)
	assert.False(t, res.IsFollowUp)
	assert.Equal(t, []types.Category{types.CategoryGeneral}, res.Categories)
	assert.Equal(t, 1, llm.Calls())
}

func TestClassify_ModelPath(t *testing.T) {
	var gotUser string
	llm := &MockLLMClient{
		CompleteWithSystemFunc: func(ctx context.Context, sys, user string) (string, error) {
			gotUser = user
			assert.Equal(t, usage.OpClassify, usage.OperationFromContext(ctx))
			return "[\"food\", \"exercise\"]\nBoth eating and training are mentioned.", nil
		},
	}
	c := NewClassifier(llm, DefaultClassifierConfig())

	res := c.Classify(context.Background(), "how much did I eat and how did I train today", exerciseHistory())
	assert.False(t, res.IsFollowUp)
	assert.ElementsMatch(t, []types.Category{types.CategoryFood, types.CategoryExercise}, res.Categories)
	assert.Contains(t, gotUser, "assistant: Here are some leg exercises")
}

func TestClassify_ObjectForm(t *testing.T) {
	res := NewClassifier(replyWith(`{"categories": ["schedule"], "why": "calendar"}`), DefaultClassifierConfig()).
		Classify(context.Background(), "can you sort out my calendar for next month", nil)
	assert.Equal(t, []types.Category{types.CategorySchedule}, res.Categories)
}

func TestClassify_InvalidJSONFallsBackToGeneral(t *testing.T) {
	c := NewClassifier(replyWith("I think it's about stuff"), DefaultClassifierConfig())

	res := c.Classify(context.Background(), "hello there, how are you doing today?", nil)
	assert.Equal(t, []types.Category{types.CategoryGeneral}, res.Categories)
	assert.Contains(t, res.Explanation, "parse failure")
}

func TestClassify_NonEnumFallsBackToKeywords(t *testing.T) {
	c := NewClassifier(replyWith(`["astrology", "finance"]`), DefaultClassifierConfig())

	res := c.Classify(context.Background(), "I need help with my diet plan", nil)
	assert.Equal(t, []types.Category{types.CategoryFood, types.CategorySchedule}, res.Categories)
	assert.Contains(t, res.Explanation, "keyword fallback")
	assert.Contains(t, res.Explanation, "astrology")
}

func TestClassify_ModelErrorFallsBackToKeywords(t *testing.T) {
	llm := &MockLLMClient{
		CompleteWithSystemFunc: func(ctx context.Context, sys, user string) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}
	res := NewClassifier(llm, DefaultClassifierConfig()).
		Classify(context.Background(), "I really need something to motivate me today", nil)
	assert.Equal(t, []types.Category{types.CategoryMotivation}, res.Categories)
	assert.Contains(t, res.Explanation, "quota exceeded")
}

func TestClassify_TruncatesAndDedupes(t *testing.T) {
	c := NewClassifier(replyWith(`["food","food","exercise","schedule","motivation"]`), ClassifierConfig{MaxCategories: 2})

	res := c.Classify(context.Background(), "plan everything about my health this month please", nil)
	assert.Equal(t, []types.Category{types.CategoryFood, types.CategoryExercise}, res.Categories)
}

func TestClassify_PanicDegradesToGeneral(t *testing.T) {
	llm := &MockLLMClient{
		CompleteWithSystemFunc: func(ctx context.Context, sys, user string) (string, error) {
			panic("provider bug")
		},
	}
	res := NewClassifier(llm, DefaultClassifierConfig()).
		Classify(context.Background(), "hello there, how are you doing today?", nil)
	assert.Equal(t, []types.Category{types.CategoryGeneral}, res.Categories)
	assert.Contains(t, res.Explanation, "panic")
}

func TestClassify_AlwaysWithinBounds(t *testing.T) {
	replies := []string{
		`["food","exercise","schedule","motivation","general"]`,
		`[]`,
		`garbage`,
		`["GENERAL"]`,
		`{"categories": []}`,
	}
	messages := []string{
		"how much did I eat and how did I train today",
		"x",
		strings.Repeat("motivation schedule food exercise ", 10),
		"",
	}
	for _, reply := range replies {
		c := NewClassifier(replyWith(reply), ClassifierConfig{MaxCategories: 3})
		for _, msg := range messages {
			res := c.Classify(context.Background(), msg, nil)
			require.GreaterOrEqual(t, len(res.Categories), 1, "reply=%q msg=%q", reply, msg)
			require.LessOrEqual(t, len(res.Categories), 3)
			for _, cat := range res.Categories {
				assert.True(t, cat.IsValid(), "invalid category %q", cat)
			}
		}
	}
}

func TestTracingLLMClient_RecordsMetrics(t *testing.T) {
	metrics := usage.NewRequestMetrics("r")
	ctx := usage.WithOperation(usage.WithRequest(context.Background(), metrics), usage.OpMerge)

	ok := NewTracingLLMClient(replyWith("fine"))
	_, err := ok.CompleteWithSystem(ctx, "s", "u")
	require.NoError(t, err)

	bad := NewTracingLLMClient(&MockLLMClient{
		CompleteFunc: func(ctx context.Context, prompt string) (string, error) {
			return "", errors.New("down")
		},
	})
	_, err = bad.Complete(ctx, "u")
	require.Error(t, err)

	snap := metrics.Snapshot()
	assert.Equal(t, int64(2), snap.LLMCalls[usage.OpMerge])
	assert.Equal(t, int64(1), snap.LLMFailures[usage.OpMerge])
}
