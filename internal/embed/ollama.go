package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"hypewatch/internal/model"
)

// OllamaEngine generates embeddings via a local Ollama server's HTTP API.
type OllamaEngine struct {
	baseURL    string
	model      string
	httpClient *http.Client
	dimensions atomic.Int32 // learned from the first successful call
}

// NewOllamaEngine creates an Ollama-backed embedding engine.
func NewOllamaEngine(cfg model.EmbeddingConfig) (*OllamaEngine, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	embeddingModel := cfg.Model
	if embeddingModel == "" {
		embeddingModel = "nomic-embed-text"
	}

	return &OllamaEngine{
		baseURL:    baseURL,
		model:      embeddingModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Name returns the engine name.
func (e *OllamaEngine) Name() string {
	return "ollama/" + e.model
}

// Dimensions returns the embedding dimensionality once known.
// Zero until the first successful call; Ollama models vary.
func (e *OllamaEngine) Dimensions() int {
	return int(e.dimensions.Load())
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// Embed generates an embedding for one text.
func (e *OllamaEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama status %d: %s", resp.StatusCode, data)
	}

	var parsed ollamaEmbedResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", parsed.Error)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}

	vector := make([]float32, len(parsed.Embedding))
	for i, v := range parsed.Embedding {
		vector[i] = float32(v)
	}
	e.dimensions.CompareAndSwap(0, int32(len(vector)))
	return vector, nil
}

// EmbedBatch generates embeddings sequentially; the Ollama API is one prompt
// per call.
func (e *OllamaEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed item %d: %w", i, err)
		}
		vectors[i] = vector
	}
	return vectors, nil
}
