package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"google.golang.org/genai"
)

const (
	defaultGenAIModel      = "gemini-embedding-001"
	defaultGenAIDimensions = 768
)

// GenAIEngine embeds through the Gemini API. Documents use the configured task
// type; recall queries always use RETRIEVAL_QUERY.
type GenAIEngine struct {
	client   *genai.Client
	model    string
	taskType string
	dims     atomic.Int64 // width of the last vector seen
}

// NewGenAIEngine creates a Gemini API embedding client.
func NewGenAIEngine(ctx context.Context, apiKey, model, taskType string) (*GenAIEngine, error) {
	if apiKey == "" {
		return nil, errors.New("genai embedding needs an API key (GEMINI_API_KEY)")
	}
	if model == "" {
		model = defaultGenAIModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	e := &GenAIEngine{client: client, model: model, taskType: normalizeTaskType(taskType)}
	e.dims.Store(defaultGenAIDimensions)
	return e, nil
}

func (e *GenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embedOne(ctx, text, e.taskType)
}

// EmbedQuery embeds text as a retrieval query.
func (e *GenAIEngine) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embedOne(ctx, text, TaskTypeFor(PurposeRecall))
}

func (e *GenAIEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, texts, e.taskType)
}

func (e *GenAIEngine) embedOne(ctx context.Context, text, taskType string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *GenAIEngine) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{TaskType: taskType})
	if err != nil {
		return nil, fmt.Errorf("genai embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("genai embed: got %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		vecs[i] = emb.Values
	}
	if n := len(vecs[0]); n > 0 {
		e.dims.Store(int64(n))
	}
	return vecs, nil
}

// Dimensions reports the width of the last vector returned (768 before any call).
func (e *GenAIEngine) Dimensions() int { return int(e.dims.Load()) }

func (e *GenAIEngine) Name() string { return "genai:" + e.model }
