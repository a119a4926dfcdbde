package sources

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"hypewatch/internal/model"
)

type fakeAdapter struct {
	mu      sync.Mutex
	items   []model.RawItem
	fetches int
}

func (f *fakeAdapter) Kind() model.SourceKind { return model.KindFeed }

func (f *fakeAdapter) Fetch(ctx context.Context, src model.Source) ([]model.RawItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return f.items, nil
}

type fakeSink struct {
	mu      sync.Mutex
	upserts []string
}

func (f *fakeSink) UpsertContent(ctx context.Context, item model.RawItem) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, item.ExternalID)
	return int64(len(f.upserts)), nil
}

func TestMonitorRunDedupes(t *testing.T) {
	now := time.Now().UTC()
	adapter := &fakeAdapter{items: []model.RawItem{
		{SourceID: 1, ExternalID: "a", Body: "first", PublishedAt: now},
		{SourceID: 1, ExternalID: "b", Body: "second", PublishedAt: now},
		{SourceID: 1, ExternalID: "old", Body: "stale", PublishedAt: now.Add(-time.Hour)},
	}}

	registry := &Registry{}
	registry.Register(adapter)

	monitor := NewMonitor(registry, time.Hour, zap.NewNop())
	sink := &fakeSink{}

	src := model.Source{ID: 1, Kind: model.KindFeed, Identifier: "https://example.org/feed"}
	collected, err := monitor.Run(context.Background(), []model.Source{src},
		150*time.Millisecond, 40*time.Millisecond, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	adapter.mu.Lock()
	fetches := adapter.fetches
	adapter.mu.Unlock()
	if fetches < 2 {
		t.Fatalf("expected repeated sweeps inside the window, got %d", fetches)
	}

	// Repeats across sweeps collapse; items published before the window
	// opened never appear.
	if len(collected) != 2 {
		t.Fatalf("expected 2 distinct items, got %d", len(collected))
	}
	seen := map[string]bool{}
	for _, item := range collected {
		if seen[item.ExternalID] {
			t.Errorf("duplicate item %q reported", item.ExternalID)
		}
		seen[item.ExternalID] = true
	}
	if seen["old"] {
		t.Errorf("item published before the window should be dropped")
	}

	sink.mu.Lock()
	persisted := len(sink.upserts)
	sink.mu.Unlock()
	if persisted != 2 {
		t.Errorf("expected 2 persisted items, got %d", persisted)
	}
}

func TestMonitorKeepsSameInstantItems(t *testing.T) {
	// An item published at the moment monitoring starts must be collected,
	// not treated as stale.
	adapter := &fakeAdapter{items: []model.RawItem{
		{SourceID: 1, ExternalID: "same-instant", Body: "now", PublishedAt: time.Now().UTC()},
	}}
	registry := &Registry{}
	registry.Register(adapter)

	monitor := NewMonitor(registry, time.Hour, zap.NewNop())
	src := model.Source{ID: 1, Kind: model.KindFeed, Identifier: "https://example.org/feed"}
	collected, err := monitor.Run(context.Background(), []model.Source{src},
		80*time.Millisecond, 30*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(collected) != 1 || collected[0].ExternalID != "same-instant" {
		t.Fatalf("collected = %v, want the same-instant item", collected)
	}
}

func TestMonitorRunNoSources(t *testing.T) {
	monitor := NewMonitor(&Registry{}, time.Hour, zap.NewNop())
	if _, err := monitor.Run(context.Background(), nil, time.Second, time.Second, nil); err == nil {
		t.Errorf("expected error for empty source list")
	}
}

func TestMonitorRunCallerCancel(t *testing.T) {
	adapter := &fakeAdapter{}
	registry := &Registry{}
	registry.Register(adapter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	monitor := NewMonitor(registry, time.Hour, zap.NewNop())
	src := model.Source{ID: 1, Kind: model.KindFeed, Identifier: "x"}
	_, err := monitor.Run(ctx, []model.Source{src}, time.Minute, 10*time.Millisecond, nil)
	if err == nil {
		t.Errorf("expected context error when caller cancels")
	}
}
