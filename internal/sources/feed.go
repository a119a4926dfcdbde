package sources

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"hypewatch/internal/model"
)

// FeedAdapter ingests RSS/Atom syndication feeds. The source identifier is
// the feed URL.
type FeedAdapter struct {
	fetcher *Fetcher
	parser  *gofeed.Parser
	limit   int
}

// NewFeedAdapter creates the syndication feed adapter.
func NewFeedAdapter(fetcher *Fetcher, limit int) *FeedAdapter {
	if limit <= 0 {
		limit = 50
	}
	return &FeedAdapter{
		fetcher: fetcher,
		parser:  gofeed.NewParser(),
		limit:   limit,
	}
}

// Kind returns the source kind this adapter handles.
func (a *FeedAdapter) Kind() model.SourceKind {
	return model.KindFeed
}

// Fetch retrieves and normalizes a feed's entries. ExternalID is the entry
// GUID when the feed provides one, otherwise a hash of the entry link.
func (a *FeedAdapter) Fetch(ctx context.Context, src model.Source) ([]model.RawItem, error) {
	body, err := a.fetcher.Get(ctx, src.Identifier)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", src.Identifier, err)
	}

	feed, err := a.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("feed %s: parse: %w", src.Identifier, err)
	}

	var items []model.RawItem
	for _, entry := range feed.Items {
		if len(items) >= a.limit {
			break
		}

		externalID := entry.GUID
		if externalID == "" {
			externalID = hashID(entry.Link)
		}
		if externalID == "" {
			continue
		}

		published := time.Now().UTC()
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}

		author := ""
		if len(entry.Authors) > 0 {
			author = entry.Authors[0].Name
		}
		if author == "" && feed.Title != "" {
			author = feed.Title
		}

		body := entry.Content
		if body == "" {
			body = entry.Description
		}

		items = append(items, model.RawItem{
			SourceID:    src.ID,
			ExternalID:  externalID,
			Title:       entry.Title,
			URL:         entry.Link,
			Author:      author,
			Body:        body,
			PublishedAt: published,
		})
	}

	return items, nil
}

// hashID derives a stable identifier for entries without a GUID.
func hashID(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:16])
}
