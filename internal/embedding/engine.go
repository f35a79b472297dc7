// Package embedding turns archived exchanges and recall queries into vectors.
// Two backends exist: Google GenAI (cloud) and Ollama (local, via langchaingo).
package embedding

import (
	"context"
	"fmt"
	"math"
	"sort"

	"lifecoach/internal/config"
	"lifecoach/internal/logging"
)

// EmbeddingEngine generates vector embeddings for text.
type EmbeddingEngine interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

// QueryEmbedder is implemented by engines that embed search queries
// differently from stored documents.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// EmbedQuery embeds a recall query, in query mode when the engine has one.
func EmbedQuery(ctx context.Context, engine EmbeddingEngine, text string) ([]float32, error) {
	if qe, ok := engine.(QueryEmbedder); ok {
		return qe.EmbedQuery(ctx, text)
	}
	return engine.Embed(ctx, text)
}

// =============================================================================
// CONFIGURATION
// =============================================================================

const (
	ProviderGenAI  = "genai"
	ProviderOllama = "ollama"
)

// Config selects and configures a backend.
type Config struct {
	Provider string

	OllamaEndpoint string
	OllamaModel    string

	GenAIAPIKey string
	GenAIModel  string
	TaskType    string // GenAI task type for documents
}

// DefaultConfig returns the archive defaults.
func DefaultConfig() Config {
	return Config{
		Provider:       ProviderGenAI,
		OllamaEndpoint: defaultOllamaEndpoint,
		OllamaModel:    defaultOllamaModel,
		GenAIModel:     defaultGenAIModel,
		TaskType:       TaskTypeFor(PurposeArchive),
	}
}

// ConfigFrom reads the embedding section of cfg. A configured task type wins
// over the one implied by purpose.
func ConfigFrom(cfg *config.Config, purpose Purpose) Config {
	out := Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
		TaskType:       TaskTypeFor(purpose),
	}
	if purpose == PurposeArchive && cfg.Embedding.TaskType != "" {
		out.TaskType = cfg.Embedding.TaskType
	}
	return out
}

// NewEngine builds the backend cfg names.
func NewEngine(ctx context.Context, cfg Config) (EmbeddingEngine, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "NewEngine")
	defer timer.Stop()

	var (
		engine EmbeddingEngine
		err    error
	)
	switch cfg.Provider {
	case ProviderGenAI:
		engine, err = NewGenAIEngine(ctx, cfg.GenAIAPIKey, cfg.GenAIModel, cfg.TaskType)
	case ProviderOllama:
		engine, err = NewOllamaEngine(cfg.OllamaEndpoint, cfg.OllamaModel)
	default:
		err = fmt.Errorf("unsupported embedding provider %q (use %q or %q)", cfg.Provider, ProviderGenAI, ProviderOllama)
	}
	if err != nil {
		logging.Get(logging.CategoryEmbedding).Error("Embedding engine unavailable: %v", err)
		return nil, err
	}

	logging.Embedding("Embedding engine ready: %s (%d dims)", engine.Name(), engine.Dimensions())
	return engine, nil
}

// =============================================================================
// SIMILARITY
// =============================================================================

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// A zero vector scores 0. Vectors of different length are an error.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / math.Sqrt(na*nb), nil
}

// Match is one corpus vector ranked against a query.
type Match struct {
	Index int
	Score float64
}

// FindTopK ranks corpus against query and returns at most k matches, best
// first. k <= 0 returns every match. Vectors of the wrong dimension are left
// out; equal scores keep corpus order.
func FindTopK(query []float32, corpus [][]float32, k int) []Match {
	matches := make([]Match, 0, len(corpus))
	for i, vec := range corpus {
		score, err := CosineSimilarity(query, vec)
		if err != nil {
			logging.EmbeddingDebug("Skipping vector %d: %v", i, err)
			continue
		}
		matches = append(matches, Match{Index: i, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
