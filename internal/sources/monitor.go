package sources

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"hypewatch/internal/model"
)

// Sink receives monitored items as they arrive, typically the content store.
type Sink interface {
	UpsertContent(ctx context.Context, item model.RawItem) (int64, error)
}

// Monitor sweeps a set of sources repeatedly inside a strict time window and
// reports only items it has not seen before. Seen-state lives in a TTL cache
// keyed by the item's external identity, so a long window does not accumulate
// unbounded state.
type Monitor struct {
	registry *Registry
	seen     *gocache.Cache
	logger   *zap.Logger
}

// NewMonitor creates a monitor over the adapter registry. The dedupe window
// bounds how long an item identity is remembered.
func NewMonitor(registry *Registry, dedupeWindow time.Duration, logger *zap.Logger) *Monitor {
	if dedupeWindow <= 0 {
		dedupeWindow = time.Hour
	}
	return &Monitor{
		registry: registry,
		seen:     gocache.New(dedupeWindow, 10*time.Minute),
		logger:   logger,
	}
}

// Run polls the given sources every pollInterval until the window elapses or
// the context is canceled, whichever comes first. Each new item is returned
// and, when a sink is provided, persisted as it arrives. Items published
// before the window opened are dropped. A failing source skips that sweep
// only; it stays in rotation for the next one.
func (m *Monitor) Run(ctx context.Context, srcs []model.Source, window, pollInterval time.Duration, sink Sink) ([]model.RawItem, error) {
	if len(srcs) == 0 {
		return nil, fmt.Errorf("no sources to monitor")
	}
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}

	windowCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	// The window-open boundary carries one poll interval of slack so an item
	// published at the instant monitoring starts is not dropped.
	start := time.Now().UTC().Add(-pollInterval)
	var collected []model.RawItem

	for {
		fresh := m.sweep(windowCtx, srcs, start)
		for _, item := range fresh {
			if sink != nil {
				if _, err := sink.UpsertContent(windowCtx, item); err != nil {
					m.logger.Warn("persist monitored item failed",
						zap.String("external_id", item.ExternalID), zap.Error(err))
					continue
				}
			}
			collected = append(collected, item)
		}

		select {
		case <-windowCtx.Done():
			// The window closing is the normal exit; only a caller cancel
			// surfaces as an error.
			if ctx.Err() != nil {
				return collected, ctx.Err()
			}
			return collected, nil
		case <-time.After(pollInterval):
		}
	}
}

// sweep fetches every source once and returns items not seen before that
// were published inside the window.
func (m *Monitor) sweep(ctx context.Context, srcs []model.Source, windowStart time.Time) []model.RawItem {
	var fresh []model.RawItem
	for _, src := range srcs {
		adapter, err := m.registry.For(src.Kind)
		if err != nil {
			m.logger.Warn("monitor skipping source", zap.String("identifier", src.Identifier), zap.Error(err))
			continue
		}

		items, err := adapter.Fetch(ctx, src)
		if err != nil {
			if ctx.Err() != nil {
				return fresh
			}
			m.logger.Warn("monitor fetch failed",
				zap.String("kind", string(src.Kind)),
				zap.String("identifier", src.Identifier),
				zap.Error(err))
			continue
		}

		for _, item := range items {
			if item.PublishedAt.Before(windowStart) {
				continue
			}
			key := strconv.FormatInt(item.SourceID, 10) + "/" + item.ExternalID
			if _, dup := m.seen.Get(key); dup {
				continue
			}
			m.seen.Set(key, struct{}{}, gocache.DefaultExpiration)
			fresh = append(fresh, item)
		}
	}
	return fresh
}
