// Package pipeline orchestrates the staged flow from source fetching through
// relevance filtering, claim extraction, and topic synthesis. Stages are
// independent: each run picks up whatever the previous stage left behind, so
// a failed cycle never wedges the next one.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hypewatch/internal/embed"
	"hypewatch/internal/gateway"
	"hypewatch/internal/model"
	"hypewatch/internal/sources"
	"hypewatch/internal/store"
	"hypewatch/internal/synthesis"
)

// Pipeline wires the store, the source adapters, the reasoning gateway, and
// the optional embedding engine into runnable stages.
type Pipeline struct {
	store    *store.Store
	registry *sources.Registry
	gw       gateway.Gateway
	embedder embed.Engine // nil disables the enrich stage
	engine   *synthesis.Engine
	ops      *Operations
	cfg      *model.Config
	logger   *zap.Logger
}

// New assembles a pipeline. The embedding engine may be nil.
func New(st *store.Store, registry *sources.Registry, gw gateway.Gateway, embedder embed.Engine, ops *Operations, cfg *model.Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:    st,
		registry: registry,
		gw:       gw,
		embedder: embedder,
		engine:   synthesis.NewEngine(gw, logger),
		ops:      ops,
		cfg:      cfg,
		logger:   logger,
	}
}

// Operations exposes the in-flight registry for the API layer.
func (p *Pipeline) Operations() *Operations {
	return p.ops
}

// SourceFailure records one source that failed during a fetch cycle.
type SourceFailure struct {
	Kind       model.SourceKind `json:"kind"`
	Identifier string           `json:"identifier"`
	Error      string           `json:"error"`
}

// FetchSummary reports the outcome of one fetch cycle.
type FetchSummary struct {
	Sources  int             `json:"sources"`
	Items    int             `json:"items"`
	Failures []SourceFailure `json:"failures,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// FetchAll fetches every active source across all kinds.
func (p *Pipeline) FetchAll(ctx context.Context) (*FetchSummary, error) {
	release, err := p.ops.Begin(OpFetch)
	if err != nil {
		return nil, err
	}
	defer release()
	return p.fetchAll(ctx)
}

// FetchKind fetches the active sources of one kind.
func (p *Pipeline) FetchKind(ctx context.Context, kind model.SourceKind) (*FetchSummary, error) {
	release, err := p.ops.Begin(OpFetch)
	if err != nil {
		return nil, err
	}
	defer release()

	srcs, err := p.store.SourcesByKind(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("sources by kind: %w", err)
	}
	return p.fetch(ctx, srcs)
}

// fetchAll is the cycle body; the caller holds the fetch operation slot.
func (p *Pipeline) fetchAll(ctx context.Context) (*FetchSummary, error) {
	srcs, err := p.store.ListSources(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return p.fetch(ctx, srcs)
}

// fetch runs one cycle over the given sources. A failing source is recorded
// and skipped; it never aborts the cycle.
func (p *Pipeline) fetch(ctx context.Context, srcs []model.Source) (*FetchSummary, error) {
	start := time.Now()
	summary := &FetchSummary{Sources: len(srcs)}

	for _, src := range srcs {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		stored, err := p.fetchSource(ctx, src)
		if err != nil {
			summary.Failures = append(summary.Failures, SourceFailure{
				Kind:       src.Kind,
				Identifier: src.Identifier,
				Error:      err.Error(),
			})
			p.logger.Warn("source fetch failed",
				zap.String("kind", string(src.Kind)),
				zap.String("identifier", src.Identifier),
				zap.Error(err))
			continue
		}
		summary.Items += stored
	}

	summary.Duration = time.Since(start)
	p.logger.Info("fetch cycle complete",
		zap.Int("sources", summary.Sources),
		zap.Int("items", summary.Items),
		zap.Int("failures", len(summary.Failures)),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

func (p *Pipeline) fetchSource(ctx context.Context, src model.Source) (int, error) {
	adapter, err := p.registry.For(src.Kind)
	if err != nil {
		return 0, err
	}

	items, err := adapter.Fetch(ctx, src)
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, item := range items {
		if _, err := p.store.UpsertContent(ctx, item); err != nil {
			return stored, fmt.Errorf("store %q: %w", item.ExternalID, err)
		}
		stored++
	}

	if err := p.store.TouchSource(ctx, src.ID, time.Now().UTC()); err != nil {
		return stored, err
	}
	return stored, nil
}
