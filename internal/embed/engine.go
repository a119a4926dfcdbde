// Package embed provides vector embedding generation for semantic grouping.
// Backends are pluggable: OpenAI's embeddings API or a local Ollama server.
package embed

import (
	"context"
	"fmt"
	"strings"

	"hypewatch/internal/model"
)

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings
	Dimensions() int

	// Name returns the engine name
	Name() string
}

// NewEngine creates an embedding engine from configuration. An empty provider
// disables embedding; callers get (nil, nil) and skip the Enrich stage.
func NewEngine(cfg model.EmbeddingConfig) (Engine, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIEngine(cfg)
	case "ollama":
		return NewOllamaEngine(cfg)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, ollama)", cfg.Provider)
	}
}
