package embed

import (
	"context"
	"fmt"
	"strings"
)

// ChunkText splits text into chunks of at most maxRunes, preferring to break
// at sentence boundaries, with overlap runes of context carried between
// consecutive chunks. Used to keep long transcripts within embedding input
// limits while preserving local context.
func ChunkText(text string, maxRunes, overlap int) []string {
	if maxRunes <= 0 {
		maxRunes = 1000
	}
	if overlap < 0 || overlap >= maxRunes {
		overlap = maxRunes / 10
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= maxRunes {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxRunes
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}

		// Prefer the last sentence terminator in the window; fall back to
		// the last space, then a hard cut.
		cut := lastBoundary(runes[start:end])
		if cut <= 0 {
			cut = maxRunes
		}

		chunks = append(chunks, strings.TrimSpace(string(runes[start:start+cut])))

		next := start + cut - overlap
		if next <= start {
			next = start + cut
		}
		start = next
	}

	return chunks
}

// EmbedChunked embeds text through the engine, chunking input that exceeds
// maxRunes and mean-pooling the chunk vectors into one embedding. Short text
// is a single Embed call.
func EmbedChunked(ctx context.Context, engine Engine, text string, maxRunes, overlap int) ([]float32, error) {
	chunks := ChunkText(text, maxRunes, overlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("nothing to embed")
	}
	if len(chunks) == 1 {
		return engine.Embed(ctx, chunks[0])
	}

	vectors, err := engine.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("no vectors for %d chunks", len(chunks))
	}

	pooled := make([]float64, len(vectors[0]))
	for _, vector := range vectors {
		if len(vector) != len(pooled) {
			return nil, fmt.Errorf("chunk embedding sizes differ: %d vs %d", len(vector), len(pooled))
		}
		for i, v := range vector {
			pooled[i] += float64(v)
		}
	}

	out := make([]float32, len(pooled))
	for i, sum := range pooled {
		out[i] = float32(sum / float64(len(vectors)))
	}
	return out, nil
}

func lastBoundary(window []rune) int {
	lastSpace := -1
	for i := len(window) - 1; i >= 0; i-- {
		switch window[i] {
		case '.', '!', '?', '\n':
			return i + 1
		case ' ':
			if lastSpace < 0 {
				lastSpace = i + 1
			}
		}
	}
	return lastSpace
}
