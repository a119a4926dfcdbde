package embed

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"hypewatch/internal/model"
)

// OpenAIEngine generates embeddings through OpenAI's embeddings API.
type OpenAIEngine struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewOpenAIEngine creates an OpenAI-backed embedding engine.
func NewOpenAIEngine(cfg model.EmbeddingConfig) (*OpenAIEngine, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required for embeddings")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	embeddingModel := openai.EmbeddingModel(cfg.Model)
	if cfg.Model == "" {
		embeddingModel = openai.SmallEmbedding3
	}

	return &OpenAIEngine{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      embeddingModel,
		dimensions: 1536,
	}, nil
}

// Name returns the engine name.
func (e *OpenAIEngine) Name() string {
	return "openai/" + string(e.model)
}

// Dimensions returns the embedding dimensionality.
func (e *OpenAIEngine) Dimensions() int {
	return e.dimensions
}

// Embed generates an embedding for one text.
func (e *OpenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one API call.
func (e *OpenAIEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}
