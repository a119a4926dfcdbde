package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"hypewatch/internal/model"
	"hypewatch/internal/ratelimit"
)

// TimelineAdapter polls a social timeline through an ordered chain of mirror
// frontends. Mirrors in some regions are flaky, so every fetch runs through
// the fallback chain and succeeds as soon as any mirror answers.
type TimelineAdapter struct {
	mirrors []string
	fetcher *Fetcher
	limit   int
	logger  *zap.Logger
}

// NewTimelineAdapter creates the timeline adapter over the given mirror list.
func NewTimelineAdapter(mirrors []string, fetcher *Fetcher, limit int, logger *zap.Logger) *TimelineAdapter {
	if limit <= 0 {
		limit = 50
	}
	return &TimelineAdapter{
		mirrors: mirrors,
		fetcher: fetcher,
		limit:   limit,
		logger:  logger,
	}
}

// Kind returns the source kind this adapter handles.
func (a *TimelineAdapter) Kind() model.SourceKind {
	return model.KindTimeline
}

// Fetch retrieves a handle's recent timeline posts, excluding replies.
// ExternalID is handle/statusID, derived from the post permalink.
func (a *TimelineAdapter) Fetch(ctx context.Context, src model.Source) ([]model.RawItem, error) {
	handle := strings.TrimPrefix(src.Identifier, "@")

	items, err := ratelimit.CallWithFallback(ctx, a.mirrors,
		func(ctx context.Context, mirror string) ([]model.RawItem, error) {
			body, err := a.fetcher.Get(ctx, mirror+"/"+handle)
			if err != nil {
				return nil, err
			}
			items, err := a.parseTimeline(string(body), mirror, handle, src.ID)
			if err != nil {
				return nil, err
			}
			if len(items) == 0 {
				// Mirrors sometimes serve an empty shell page with status 200.
				return nil, fmt.Errorf("mirror %s returned no timeline items", mirror)
			}
			return items, nil
		})
	if err != nil {
		return nil, fmt.Errorf("timeline %s: %w", handle, err)
	}

	if len(items) > a.limit {
		items = items[:a.limit]
	}
	return items, nil
}

// parseTimeline extracts posts from a mirror's timeline page.
func (a *TimelineAdapter) parseTimeline(page, mirror, handle string, sourceID int64) ([]model.RawItem, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse timeline html: %w", err)
	}

	posts := findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "timeline-item")
	})

	var items []model.RawItem
	for _, post := range posts {
		// Conversational replies are filtered at the edge.
		if findFirst(post, func(n *html.Node) bool { return hasClass(n, "replying-to") }) != nil {
			continue
		}

		link := findFirst(post, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "tweet-link")
		})
		content := findFirst(post, func(n *html.Node) bool {
			return hasClass(n, "tweet-content")
		})
		if link == nil || content == nil {
			continue
		}

		statusID := statusIDFromPath(attr(link, "href"))
		if statusID == "" {
			continue
		}

		body := nodeText(content)
		if body == "" {
			continue
		}

		item := model.RawItem{
			SourceID:    sourceID,
			ExternalID:  handle + "/" + statusID,
			URL:         mirror + strings.TrimSuffix(attr(link, "href"), "#m"),
			Author:      handle,
			Body:        body,
			PublishedAt: parseTimelineDate(post),
			Metadata:    map[string]string{"mirror": mirror},
		}
		items = append(items, item)
	}

	return items, nil
}

// statusIDFromPath pulls the numeric status id from a permalink path like
// /handle/status/1234567890#m.
func statusIDFromPath(href string) string {
	idx := strings.Index(href, "/status/")
	if idx < 0 {
		return ""
	}
	id := href[idx+len("/status/"):]
	if cut := strings.IndexAny(id, "#?"); cut >= 0 {
		id = id[:cut]
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return id
}

func parseTimelineDate(post *html.Node) time.Time {
	dateNode := findFirst(post, func(n *html.Node) bool {
		return hasClass(n, "tweet-date")
	})
	if dateNode != nil {
		if a := findFirst(dateNode, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "a"
		}); a != nil {
			if t, err := time.Parse("Jan 2, 2006 · 3:04 PM UTC", attr(a, "title")); err == nil {
				return t
			}
		}
	}
	return time.Now().UTC()
}
