package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"hypewatch/internal/model"
)

// AcademicAdapter queries the arXiv Atom API. The source identifier is a
// search query, e.g. "cat:cs.AI" or "all:superintelligence".
type AcademicAdapter struct {
	baseURL string
	fetcher *Fetcher
	parser  *gofeed.Parser
	limit   int
}

// NewAcademicAdapter creates the academic-index adapter.
func NewAcademicAdapter(baseURL string, fetcher *Fetcher, limit int) *AcademicAdapter {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	return &AcademicAdapter{
		baseURL: baseURL,
		fetcher: fetcher,
		parser:  gofeed.NewParser(),
		limit:   limit,
	}
}

// Kind returns the source kind this adapter handles.
func (a *AcademicAdapter) Kind() model.SourceKind {
	return model.KindAcademic
}

// Fetch runs the source's search query, newest submissions first.
// ExternalID is the arXiv identifier extracted from the entry id URL.
func (a *AcademicAdapter) Fetch(ctx context.Context, src model.Source) ([]model.RawItem, error) {
	endpoint := fmt.Sprintf("%s?search_query=%s&sortBy=submittedDate&sortOrder=descending&max_results=%d",
		a.baseURL, url.QueryEscape(src.Identifier), a.limit)

	body, err := a.fetcher.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("academic query %q: %w", src.Identifier, err)
	}

	feed, err := a.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("academic query %q: parse: %w", src.Identifier, err)
	}

	var items []model.RawItem
	for _, entry := range feed.Items {
		externalID := arxivID(entry.GUID)
		if externalID == "" {
			externalID = arxivID(entry.Link)
		}
		if externalID == "" {
			continue
		}

		published := time.Now().UTC()
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		}

		var authors []string
		for _, author := range entry.Authors {
			if author != nil && author.Name != "" {
				authors = append(authors, author.Name)
			}
		}

		items = append(items, model.RawItem{
			SourceID:    src.ID,
			ExternalID:  externalID,
			Title:       strings.TrimSpace(entry.Title),
			URL:         entry.Link,
			Author:      strings.Join(authors, ", "),
			Body:        strings.TrimSpace(entry.Description), // Abstract
			PublishedAt: published,
			Metadata:    map[string]string{"query": src.Identifier},
		})
	}

	return items, nil
}

// arxivID extracts "2501.01234v1" from an abs URL or entry id.
func arxivID(value string) string {
	idx := strings.LastIndex(value, "/abs/")
	if idx < 0 {
		return ""
	}
	return value[idx+len("/abs/"):]
}
