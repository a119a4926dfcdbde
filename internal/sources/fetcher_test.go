package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hypewatch/internal/model"
)

func TestFetcherRespectsRobots(t *testing.T) {
	var robotsHits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			robotsHits++
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
		case "/public":
			_, _ = w.Write([]byte("ok"))
		default:
			_, _ = w.Write([]byte("secret"))
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(model.HTTPConfig{
		UserAgent:     "test-agent",
		MinIntervalMs: 1,
		RespectRobots: true,
	})

	if _, err := fetcher.Get(context.Background(), server.URL+"/private/page"); err == nil {
		t.Fatalf("expected disallowed path to be refused")
	}

	body, err := fetcher.Get(context.Background(), server.URL+"/public")
	if err != nil {
		t.Fatalf("allowed path refused: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}

	// Parsed robots data is cached per host.
	if robotsHits != 1 {
		t.Errorf("robots.txt fetched %d times, want 1", robotsHits)
	}
}

func TestFetcherRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := testFetcher()
	_, err := fetcher.Get(context.Background(), server.URL+"/anything")
	if err == nil {
		t.Fatalf("expected error for 503 response")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestFetcherCapsBodySize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 5000)))
	}))
	defer server.Close()

	fetcher := NewFetcher(model.HTTPConfig{
		UserAgent:     "test-agent",
		MinIntervalMs: 1,
		MaxBodyBytes:  1024,
	})
	body, err := fetcher.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(body) != 1024 {
		t.Errorf("body length = %d, want cap of 1024", len(body))
	}
}
