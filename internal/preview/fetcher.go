package preview

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// defaultIframeTimeout bounds the embeddability probe, matching the UI's
// iframe load timeout.
const defaultIframeTimeout = 10 * time.Second

// Capturer abstracts the screenshot provider so tests can stub it.
type Capturer interface {
	Capture(ctx context.Context, target string) (string, error)
}

// Fetcher acquires previews: it probes whether a site can be embedded in an
// iframe and falls back to the screenshot provider, writing every result
// through the cache. Cache reads stay safe during the asynchronous
// acquisition flow because each call re-reads the persisted blob.
type Fetcher struct {
	cache      *Cache
	shots      Capturer
	httpClient *http.Client
}

// NewFetcher creates a Fetcher writing through cache.
func NewFetcher(cache *Cache, shots Capturer) *Fetcher {
	return &Fetcher{
		cache:      cache,
		shots:      shots,
		httpClient: &http.Client{Timeout: defaultIframeTimeout},
	}
}

// Acquire returns the preview for url, serving from cache when possible.
// On a miss it tries the iframe probe first and the screenshot provider
// second; the winning result is cached before returning.
func (f *Fetcher) Acquire(ctx context.Context, url string) (*Item, error) {
	if item := f.cache.Get(url); item != nil {
		return item, nil
	}

	if ok, reason := f.IframeAllowed(ctx, url); ok {
		f.cache.Set(url, url, MethodIframe)
		return &Item{URL: url, Artifact: url, Method: MethodIframe}, nil
	} else {
		slog.Debug("iframe embedding rejected, falling back to screenshot", "url", url, "reason", reason)
	}

	artifact, err := f.shots.Capture(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("acquiring preview for %s: %w", url, err)
	}
	f.cache.Set(url, artifact, MethodScreenshot)
	return &Item{URL: url, Artifact: artifact, Method: MethodScreenshot}, nil
}

// IframeAllowed reports whether url can be embedded in an iframe, based on
// its X-Frame-Options and Content-Security-Policy response headers. Network
// failures count as not embeddable so the caller falls back to a screenshot.
func (f *Fetcher) IframeAllowed(ctx context.Context, url string) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, defaultIframeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Sprintf("invalid url: %v", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return false, fmt.Sprintf("network error: %v", err)
	}
	resp.Body.Close()

	return analyzeFrameHeaders(resp.Header)
}

// analyzeFrameHeaders applies the embeddability rules: any X-Frame-Options
// value blocks embedding from a foreign origin, as does a CSP
// frame-ancestors directive that doesn't include *.
func analyzeFrameHeaders(h http.Header) (bool, string) {
	if xfo := strings.ToLower(strings.TrimSpace(h.Get("X-Frame-Options"))); xfo != "" {
		switch {
		case strings.Contains(xfo, "deny"):
			return false, "X-Frame-Options: DENY"
		case strings.Contains(xfo, "sameorigin"):
			return false, "X-Frame-Options: SAMEORIGIN"
		default:
			return false, "X-Frame-Options: " + xfo
		}
	}

	csp := strings.ToLower(h.Get("Content-Security-Policy"))
	if idx := strings.Index(csp, "frame-ancestors"); idx >= 0 {
		directive := csp[idx:]
		if end := strings.Index(directive, ";"); end >= 0 {
			directive = directive[:end]
		}
		if !strings.Contains(directive, "*") {
			return false, "CSP frame-ancestors restriction"
		}
	}

	return true, "no frame restrictions"
}
