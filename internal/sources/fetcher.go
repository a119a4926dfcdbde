package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"

	"hypewatch/internal/model"
	"hypewatch/internal/ratelimit"
)

// Fetcher is the polite HTTP client shared by all adapters: one User-Agent,
// per-host rate limiting, robots.txt compliance with a TTL cache, and a
// response size cap.
type Fetcher struct {
	httpClient    *http.Client
	limiter       *ratelimit.Limiter
	robotsCache   *gocache.Cache
	userAgent     string
	maxBytes      int64
	respectRobots bool
}

// NewFetcher creates a fetcher from HTTP configuration.
func NewFetcher(cfg model.HTTPConfig) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		limiter:       ratelimit.NewLimiter(time.Duration(cfg.MinIntervalMs) * time.Millisecond),
		robotsCache:   gocache.New(time.Hour, 10*time.Minute),
		userAgent:     cfg.UserAgent,
		maxBytes:      maxBytes,
		respectRobots: cfg.RespectRobots,
	}
}

// Get fetches one URL, honoring robots.txt and the per-host rate floor.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	if f.respectRobots {
		allowed, err := f.allowedByRobots(ctx, parsed)
		if err == nil && !allowed {
			return nil, fmt.Errorf("robots.txt disallows %s", rawURL)
		}
	}

	if err := f.limiter.Acquire(ctx, parsed.Host); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// allowedByRobots checks the host's robots.txt, caching parsed data for an hour.
func (f *Fetcher) allowedByRobots(ctx context.Context, target *url.URL) (bool, error) {
	host := target.Scheme + "://" + target.Host

	cached, found := f.robotsCache.Get(host)
	if !found {
		data, err := f.fetchRobots(ctx, host)
		if err != nil {
			// Unreachable robots.txt: allow by default.
			data, _ = robotstxt.FromStatusAndBytes(404, nil)
		}
		f.robotsCache.Set(host, data, gocache.DefaultExpiration)
		cached = data
	}

	data, ok := cached.(*robotstxt.RobotsData)
	if !ok || data == nil {
		return true, nil
	}
	return data.TestAgent(target.Path, f.userAgent), nil
}

func (f *Fetcher) fetchRobots(ctx context.Context, host string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	return robotstxt.FromStatusAndBytes(resp.StatusCode, body)
}
