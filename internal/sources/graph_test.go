package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"hypewatch/internal/model"
)

const graphFeedPayload = `{
  "feed": [
    {
      "post": {
        "uri": "at://did:plc:abc123/app.bsky.feed.post/3kxyz",
        "author": {"handle": "skeptic.bsky.social", "displayName": "A Skeptic"},
        "record": {
          "text": "Benchmark gains are not the same thing as general intelligence.",
          "createdAt": "2026-08-20T10:00:00Z"
        }
      }
    },
    {
      "post": {
        "uri": "at://did:plc:abc123/app.bsky.feed.post/3kreply",
        "author": {"handle": "skeptic.bsky.social"},
        "record": {
          "text": "a reply",
          "createdAt": "2026-08-20T11:00:00Z",
          "reply": {"parent": {"uri": "at://did:plc:other/app.bsky.feed.post/3kparent"}}
        }
      }
    },
    {
      "post": {
        "uri": "at://did:plc:other/app.bsky.feed.post/3krepost",
        "author": {"handle": "other.bsky.social"},
        "record": {
          "text": "a repost",
          "createdAt": "2026-08-20T12:00:00Z"
        }
      },
      "reason": {"$type": "app.bsky.feed.defs#reasonRepost"}
    }
  ]
}`

func testFetcher() *Fetcher {
	return NewFetcher(model.HTTPConfig{
		UserAgent:     "test-agent",
		MinIntervalMs: 1,
	})
}

func TestGraphAdapterFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/xrpc/app.bsky.feed.getAuthorFeed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("actor"); got != "skeptic.bsky.social" {
			t.Errorf("actor = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(graphFeedPayload))
	}))
	defer server.Close()

	adapter := NewGraphAdapter(server.URL, testFetcher(), 50)
	items, err := adapter.Fetch(context.Background(), model.Source{
		ID:         3,
		Kind:       model.KindGraph,
		Identifier: "skeptic.bsky.social",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("expected replies and reposts excluded, got %d items", len(items))
	}
	item := items[0]
	if item.ExternalID != "at://did:plc:abc123/app.bsky.feed.post/3kxyz" {
		t.Errorf("external id = %q", item.ExternalID)
	}
	if item.Author != "A Skeptic" {
		t.Errorf("author = %q", item.Author)
	}
	if item.URL != "https://bsky.app/profile/skeptic.bsky.social/post/3kxyz" {
		t.Errorf("url = %q", item.URL)
	}
}

func TestWebURLForPost(t *testing.T) {
	tests := []struct {
		name   string
		atURI  string
		handle string
		want   string
	}{
		{
			"valid",
			"at://did:plc:abc/app.bsky.feed.post/3k42",
			"user.bsky.social",
			"https://bsky.app/profile/user.bsky.social/post/3k42",
		},
		{"wrong collection", "at://did:plc:abc/app.bsky.feed.like/3k42", "user.bsky.social", ""},
		{"missing handle", "at://did:plc:abc/app.bsky.feed.post/3k42", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := webURLForPost(tt.atURI, tt.handle); got != tt.want {
				t.Errorf("webURLForPost() = %q, want %q", got, tt.want)
			}
		})
	}
}
