package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	defaultOllamaEndpoint = "http://localhost:11434"
	defaultOllamaModel    = "embeddinggemma"
	ollamaDimensions      = 768
)

// ollamaEmbedder is the part of the langchaingo Ollama client the engine uses.
type ollamaEmbedder interface {
	CreateEmbedding(ctx context.Context, inputTexts []string) ([][]float32, error)
}

// OllamaEngine embeds through a local Ollama server.
type OllamaEngine struct {
	model  string
	client ollamaEmbedder
}

// NewOllamaEngine connects to the Ollama server at endpoint.
func NewOllamaEngine(endpoint, model string) (*OllamaEngine, error) {
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	if model == "" {
		model = defaultOllamaModel
	}
	client, err := ollama.New(ollama.WithServerURL(endpoint), ollama.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	return &OllamaEngine{model: model, client: client}, nil
}

func (e *OllamaEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, errors.New("ollama returned an empty embedding")
	}
	return vecs[0], nil
}

func (e *OllamaEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := e.client.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	return vecs, nil
}

// Dimensions reports the embeddinggemma width.
func (e *OllamaEngine) Dimensions() int { return ollamaDimensions }

func (e *OllamaEngine) Name() string { return "ollama:" + e.model }
