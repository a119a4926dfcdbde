package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hypewatch/internal/embed"
	"hypewatch/internal/gateway"
	"hypewatch/internal/model"
	"hypewatch/internal/worker"
)

// ProcessSummary reports the outcome of one analysis cycle.
type ProcessSummary struct {
	Scanned     int           `json:"scanned"`
	Relevant    int           `json:"relevant"`
	Claims      int           `json:"claims"`
	Predictions int           `json:"predictions"`
	Embedded    int           `json:"embedded"`
	Duration    time.Duration `json:"duration"`
}

// Process runs the analysis stages over unprocessed content: relevance
// filtering, claim extraction, prediction recording, and embedding
// enrichment. Every scanned item is stamped processed at the end, relevant
// or not, so the backlog always drains.
func (p *Pipeline) Process(ctx context.Context) (*ProcessSummary, error) {
	release, err := p.ops.Begin(OpProcess)
	if err != nil {
		return nil, err
	}
	defer release()
	return p.process(ctx)
}

// process is the cycle body; the caller holds the process operation slot.
func (p *Pipeline) process(ctx context.Context) (*ProcessSummary, error) {
	start := time.Now()

	items, err := p.store.GetUnprocessedContent(ctx, 200)
	if err != nil {
		return nil, fmt.Errorf("unprocessed content: %w", err)
	}

	summary := &ProcessSummary{Scanned: len(items)}
	if len(items) == 0 {
		summary.Duration = time.Since(start)
		return summary, nil
	}

	relevant, err := p.filterStage(ctx, items)
	if err != nil {
		return nil, err
	}
	summary.Relevant = len(relevant)

	claimIDs, texts, predictions, err := p.extractStage(ctx, relevant)
	if err != nil {
		return nil, err
	}
	summary.Claims = len(claimIDs)
	summary.Predictions = predictions

	summary.Embedded = p.enrichStage(ctx, claimIDs, texts)

	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	if err := p.store.MarkContentProcessed(ctx, ids, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("mark processed: %w", err)
	}

	summary.Duration = time.Since(start)
	p.logger.Info("process cycle complete",
		zap.Int("scanned", summary.Scanned),
		zap.Int("relevant", summary.Relevant),
		zap.Int("claims", summary.Claims),
		zap.Int("predictions", summary.Predictions),
		zap.Int("embedded", summary.Embedded),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

// filterStage scores content batches for relevance, annotates survivors, and
// returns them with annotations applied.
func (p *Pipeline) filterStage(ctx context.Context, items []model.Content) ([]model.Content, error) {
	threshold := p.cfg.Gateway.RelevanceThreshold
	if threshold <= 0 {
		threshold = 0.3
	}
	batchSize := p.cfg.Gateway.FilterBatchSize
	if batchSize <= 0 {
		batchSize = 20
	}

	var relevant []model.Content
	for offset := 0; offset < len(items); offset += batchSize {
		end := offset + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[offset:end]

		assessments, err := p.gw.FilterRelevance(ctx, gateway.SummarizeContent(batch))
		if err != nil {
			return nil, fmt.Errorf("filter relevance: %w", err)
		}

		byIndex := make(map[int]gateway.Assessment, len(assessments))
		for _, a := range assessments {
			byIndex[a.Index] = a
		}

		for i, item := range batch {
			a, ok := byIndex[i]
			if !ok || a.Relevance < threshold {
				continue
			}

			item.Topic = a.Topic
			item.ContentType = a.ContentType
			item.AuthorCategory = a.AuthorCategory
			item.Brief = a.Brief
			if err := p.store.AnnotateContent(ctx, item.ID, a.Topic, a.ContentType, a.AuthorCategory, a.Brief); err != nil {
				return nil, err
			}
			relevant = append(relevant, item)
		}
	}
	return relevant, nil
}

// extractStage turns relevant content into stored claims and recorded
// predictions. Returns the new claim ids and texts for enrichment.
func (p *Pipeline) extractStage(ctx context.Context, items []model.Content) ([]int64, []string, int, error) {
	batchSize := p.cfg.Gateway.ExtractBatchSize
	if batchSize <= 0 {
		batchSize = 10
	}

	var (
		claimIDs    []int64
		texts       []string
		predictions int
	)

	for offset := 0; offset < len(items); offset += batchSize {
		end := offset + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[offset:end]

		candidates, err := p.gw.ExtractClaims(ctx, gateway.SummarizeContent(batch))
		if err != nil {
			return nil, nil, 0, fmt.Errorf("extract claims: %w", err)
		}

		for _, candidate := range candidates {
			claim := candidate.Claim
			if claim.Text == "" {
				continue
			}

			// Attach the claim to its batch item. An out-of-range index
			// falls back to a URL lookup, then the unattached sentinel.
			if candidate.Index >= 0 && candidate.Index < len(batch) {
				origin := batch[candidate.Index]
				claim.ContentID = origin.ID
				claim.Author = origin.Author
				claim.AuthorCategory = origin.AuthorCategory
				claim.SourceURL = origin.URL
			} else if contentID, err := p.store.FindContentByURL(ctx, claim.SourceURL); err == nil {
				claim.ContentID = contentID
			} else {
				claim.ContentID = model.UnattachedContentID
				p.logger.Warn("claim could not be attached, using sentinel",
					zap.Int("index", candidate.Index), zap.String("url", claim.SourceURL))
			}

			id, err := p.store.InsertClaim(ctx, claim)
			if err != nil {
				return claimIDs, texts, predictions, fmt.Errorf("insert claim: %w", err)
			}
			claimIDs = append(claimIDs, id)
			texts = append(texts, claim.Text)

			if candidate.Falsifiable {
				_, err := p.store.RecordPrediction(ctx, model.Prediction{
					ClaimID:    id,
					Text:       claim.Text,
					Author:     claim.Author,
					Confidence: claim.Confidence,
					Timeframe:  claim.Timeframe,
					Topic:      claim.Topic,
				})
				if err != nil {
					return claimIDs, texts, predictions, fmt.Errorf("record prediction: %w", err)
				}
				predictions++
			}
		}
	}

	return claimIDs, texts, predictions, nil
}

// enrichStage embeds claim texts with bounded concurrency. Enrichment is
// best-effort: a failed embedding is logged and skipped.
func (p *Pipeline) enrichStage(ctx context.Context, claimIDs []int64, texts []string) int {
	if p.embedder == nil || len(claimIDs) == 0 {
		return 0
	}

	concurrency := p.cfg.Embedding.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	indexes := make([]int, len(claimIDs))
	for i := range indexes {
		indexes[i] = i
	}

	errs := worker.ForEach(ctx, concurrency, indexes, func(ctx context.Context, i int) error {
		vector, err := embed.EmbedChunked(ctx, p.embedder, texts[i],
			p.cfg.Embedding.ChunkRunes, p.cfg.Embedding.ChunkOverlap)
		if err != nil {
			return err
		}
		return p.store.SaveEmbedding(ctx, claimIDs[i], p.embedder.Name(), vector)
	})

	embedded := 0
	for i, err := range errs {
		if err != nil {
			p.logger.Warn("embedding failed", zap.Int64("claim_id", claimIDs[i]), zap.Error(err))
			continue
		}
		embedded++
	}
	return embedded
}
