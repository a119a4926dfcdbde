// Package sources normalizes heterogeneous external origins into canonical
// raw items. One adapter per source kind, unified behind the Adapter
// interface and looked up through a registry.
package sources

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"hypewatch/internal/model"
)

// Adapter fetches a source's current content as canonical raw items.
//
// Implementations derive ExternalID deterministically from the source's
// native identifier so re-fetching is idempotent, and apply source-specific
// edge filtering (e.g. excluding conversational replies) before returning.
type Adapter interface {
	// Kind returns the source kind this adapter handles
	Kind() model.SourceKind

	// Fetch returns up to the configured limit of recent items for a source
	Fetch(ctx context.Context, src model.Source) ([]model.RawItem, error)
}

// Registry maps source kinds to their adapters. The zero value is usable.
type Registry struct {
	adapters map[model.SourceKind]Adapter
}

// NewRegistry builds the registry with every built-in adapter wired to the
// shared fetcher.
func NewRegistry(cfg model.SourcesConfig, fetcher *Fetcher, logger *zap.Logger) *Registry {
	registry := &Registry{adapters: make(map[model.SourceKind]Adapter)}

	registry.Register(NewTimelineAdapter(cfg.TimelineMirrors, fetcher, cfg.FetchLimit, logger))
	registry.Register(NewFeedAdapter(fetcher, cfg.FetchLimit))
	registry.Register(NewTranscriptAdapter(fetcher, logger))
	registry.Register(NewGraphAdapter(cfg.GraphAppView, fetcher, cfg.FetchLimit))
	registry.Register(NewAcademicAdapter(cfg.AcademicBaseURL, fetcher, cfg.FetchLimit))

	return registry
}

// Register adds or replaces the adapter for a kind.
func (r *Registry) Register(adapter Adapter) {
	if r.adapters == nil {
		r.adapters = make(map[model.SourceKind]Adapter)
	}
	r.adapters[adapter.Kind()] = adapter
}

// For returns the adapter handling a source kind.
func (r *Registry) For(kind model.SourceKind) (Adapter, error) {
	adapter, ok := r.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for kind %q", kind)
	}
	return adapter, nil
}
