// Package favicon resolves favicon images for bookmark domains, trying an
// ordered list of external sources and returning the first non-empty payload.
package favicon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const userAgent = "revisit/1.0 (+https://github.com/revisitapp/revisit)"

// maxIconBytes bounds a single favicon payload; anything larger is a
// misbehaving source, not an icon.
const maxIconBytes = 512 * 1024

// Source is one external favicon provider.
type Source struct {
	Name string
	URL  func(host string) string
}

// DefaultSources returns the fallback chain, tried in order.
func DefaultSources() []Source {
	return []Source{
		{
			Name: "google-s2",
			URL: func(host string) string {
				return "https://www.google.com/s2/favicons?domain=" + host + "&sz=64"
			},
		},
		{
			Name: "duckduckgo",
			URL: func(host string) string {
				return "https://icons.duckduckgo.com/ip3/" + host + ".ico"
			},
		},
		{
			Name: "direct",
			URL: func(host string) string {
				return "https://" + host + "/favicon.ico"
			},
		},
	}
}

// Resolver fetches favicons over HTTP with a bounded wait per source and a
// per-resolver rate limit to stay polite toward the icon services.
type Resolver struct {
	client    *http.Client
	sources   []Source
	limiter   *rate.Limiter
	perSource time.Duration
}

// NewResolver creates a Resolver over the default source chain.
func NewResolver() *Resolver {
	return &Resolver{
		client:    &http.Client{Timeout: 10 * time.Second},
		sources:   DefaultSources(),
		limiter:   rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
		perSource: 4 * time.Second,
	}
}

// Resolve tries each source for the normalized host and returns the first
// non-empty 2xx payload. A success with an empty body, an HTTP error
// status, or a transport failure moves on to the next source. If every
// source fails the icon is unavailable (ok=false), never an error: the
// next invocation retries from scratch.
func (r *Resolver) Resolve(ctx context.Context, host string) ([]byte, bool) {
	if host == "" {
		return nil, false
	}

	for _, src := range r.sources {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, false
		}
		data, err := r.fetchOne(ctx, src.URL(host))
		if err != nil || len(data) == 0 {
			continue
		}
		return data, true
	}
	return nil, false
}

func (r *Resolver) fetchOne(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.perSource)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Cache-Control", "force-cache")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch favicon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("favicon status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxIconBytes))
	if err != nil {
		return nil, fmt.Errorf("read favicon body: %w", err)
	}
	return data, nil
}
