package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"hypewatch/internal/model"
)

func TestOllamaEmbedConcurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{
			Embedding: []float64{0.1, 0.2, 0.3},
		})
	}))
	defer srv.Close()

	engine, err := NewOllamaEngine(model.EmbeddingConfig{Provider: "ollama", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOllamaEngine: %v", err)
	}

	// First calls race to publish the dimensionality; all must agree.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vector, err := engine.Embed(context.Background(), "a claim about benchmarks")
			if err != nil {
				t.Errorf("Embed: %v", err)
				return
			}
			if len(vector) != 3 {
				t.Errorf("vector length = %d, want 3", len(vector))
			}
		}()
	}
	wg.Wait()

	if got := engine.Dimensions(); got != 3 {
		t.Errorf("Dimensions() = %d, want 3", got)
	}
}

func TestOllamaEmbedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Error: "model not found"})
	}))
	defer srv.Close()

	engine, err := NewOllamaEngine(model.EmbeddingConfig{Provider: "ollama", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOllamaEngine: %v", err)
	}
	if _, err := engine.Embed(context.Background(), "text"); err == nil {
		t.Fatalf("expected error from server-reported failure")
	}
	if engine.Dimensions() != 0 {
		t.Errorf("Dimensions() = %d after failed call, want 0", engine.Dimensions())
	}
}
