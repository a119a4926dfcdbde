package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"hypewatch/internal/model"
)

// GraphAdapter queries a social-graph AppView API for an actor's feed.
// The source identifier is the actor handle or DID.
type GraphAdapter struct {
	appView string
	fetcher *Fetcher
	limit   int
}

// NewGraphAdapter creates the graph-query adapter against an AppView base URL.
func NewGraphAdapter(appView string, fetcher *Fetcher, limit int) *GraphAdapter {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return &GraphAdapter{
		appView: appView,
		fetcher: fetcher,
		limit:   limit,
	}
}

// Kind returns the source kind this adapter handles.
func (a *GraphAdapter) Kind() model.SourceKind {
	return model.KindGraph
}

type graphFeedResponse struct {
	Feed []struct {
		Post struct {
			URI    string `json:"uri"`
			Author struct {
				Handle      string `json:"handle"`
				DisplayName string `json:"displayName"`
			} `json:"author"`
			Record struct {
				Text      string    `json:"text"`
				CreatedAt time.Time `json:"createdAt"`
				Reply     *struct {
					Parent struct {
						URI string `json:"uri"`
					} `json:"parent"`
				} `json:"reply"`
			} `json:"record"`
		} `json:"post"`
		Reason *json.RawMessage `json:"reason"` // Present on reposts
	} `json:"feed"`
}

// Fetch retrieves an actor's recent posts, excluding replies and reposts.
// ExternalID is the post's AT URI, which is globally stable.
func (a *GraphAdapter) Fetch(ctx context.Context, src model.Source) ([]model.RawItem, error) {
	endpoint := fmt.Sprintf("%s/xrpc/app.bsky.feed.getAuthorFeed?actor=%s&limit=%d",
		a.appView, url.QueryEscape(src.Identifier), a.limit)

	body, err := a.fetcher.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("graph feed %s: %w", src.Identifier, err)
	}

	var parsed graphFeedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("graph feed %s: decode: %w", src.Identifier, err)
	}

	var items []model.RawItem
	for _, entry := range parsed.Feed {
		post := entry.Post
		if post.Record.Reply != nil || entry.Reason != nil {
			continue
		}
		if post.URI == "" || post.Record.Text == "" {
			continue
		}

		published := post.Record.CreatedAt
		if published.IsZero() {
			published = time.Now().UTC()
		}

		author := post.Author.DisplayName
		if author == "" {
			author = post.Author.Handle
		}

		items = append(items, model.RawItem{
			SourceID:    src.ID,
			ExternalID:  post.URI,
			URL:         webURLForPost(post.URI, post.Author.Handle),
			Author:      author,
			Body:        post.Record.Text,
			PublishedAt: published.UTC(),
			Metadata:    map[string]string{"handle": post.Author.Handle},
		})
	}

	return items, nil
}

// webURLForPost converts an AT URI (at://did/app.bsky.feed.post/rkey) into a
// human-facing permalink.
func webURLForPost(atURI, handle string) string {
	const marker = "/app.bsky.feed.post/"
	idx := strings.Index(atURI, marker)
	if idx < 0 || handle == "" {
		return ""
	}
	return "https://bsky.app/profile/" + handle + "/post/" + atURI[idx+len(marker):]
}
