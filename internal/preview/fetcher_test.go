package preview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// stubCapturer is a Capturer returning a fixed artifact or error.
type stubCapturer struct {
	artifact string
	err      error
	calls    int
}

func (s *stubCapturer) Capture(ctx context.Context, target string) (string, error) {
	s.calls++
	return s.artifact, s.err
}

func TestAnalyzeFrameHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    bool
	}{
		{"no headers", nil, true},
		{"xfo deny", map[string]string{"X-Frame-Options": "DENY"}, false},
		{"xfo sameorigin", map[string]string{"X-Frame-Options": "SAMEORIGIN"}, false},
		{"xfo allow-from", map[string]string{"X-Frame-Options": "ALLOW-FROM https://x.example"}, false},
		{"csp frame-ancestors none", map[string]string{"Content-Security-Policy": "frame-ancestors 'none'"}, false},
		{"csp frame-ancestors self", map[string]string{"Content-Security-Policy": "frame-ancestors 'self'; img-src *"}, false},
		{"csp frame-ancestors wildcard", map[string]string{"Content-Security-Policy": "frame-ancestors *"}, true},
		{"csp without frame-ancestors", map[string]string{"Content-Security-Policy": "default-src 'self'"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			got, reason := analyzeFrameHeaders(h)
			if got != tt.want {
				t.Errorf("analyzeFrameHeaders = %v (%s), want %v", got, reason, tt.want)
			}
		})
	}
}

func TestAcquireEmbeddableSite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, _, _ := newTestCache(t)
	shots := &stubCapturer{artifact: "data:image/png;base64,AAA"}
	f := NewFetcher(c, shots)

	item, err := f.Acquire(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if item.Method != MethodIframe {
		t.Errorf("method = %q, want iframe", item.Method)
	}
	if item.Artifact != srv.URL {
		t.Errorf("iframe artifact should be the URL itself, got %q", item.Artifact)
	}
	if shots.calls != 0 {
		t.Error("screenshot provider called for an embeddable site")
	}

	// Second call must hit the cache.
	if cached := c.Get(srv.URL); cached == nil {
		t.Error("result not cached")
	}
}

func TestAcquireFallsBackToScreenshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
	}))
	defer srv.Close()

	c, _, _ := newTestCache(t)
	shots := &stubCapturer{artifact: "data:image/png;base64,AAA"}
	f := NewFetcher(c, shots)

	item, err := f.Acquire(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if item.Method != MethodScreenshot {
		t.Errorf("method = %q, want screenshot", item.Method)
	}
	if item.Artifact != "data:image/png;base64,AAA" {
		t.Errorf("artifact = %q", item.Artifact)
	}
	if shots.calls != 1 {
		t.Errorf("screenshot provider called %d times, want 1", shots.calls)
	}
}

func TestAcquireServesCacheWithoutNetwork(t *testing.T) {
	c, _, _ := newTestCache(t)
	c.Set("https://cached.example", "data:image/png;base64,BBB", MethodScreenshot)

	shots := &stubCapturer{err: errors.New("should not be called")}
	f := NewFetcher(c, shots)

	item, err := f.Acquire(context.Background(), "https://cached.example")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if item.Artifact != "data:image/png;base64,BBB" {
		t.Errorf("artifact = %q", item.Artifact)
	}
	if shots.calls != 0 {
		t.Error("cache hit still reached the screenshot provider")
	}
}

func TestAcquirePropagatesCaptureError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
	}))
	defer srv.Close()

	c, _, _ := newTestCache(t)
	shots := &stubCapturer{err: errors.New("capture down")}
	f := NewFetcher(c, shots)

	if _, err := f.Acquire(context.Background(), srv.URL); err == nil {
		t.Fatal("expected an error when the screenshot provider fails")
	}
	if c.Get(srv.URL) != nil {
		t.Error("failed acquisition must not be cached")
	}
}

func TestIframeAllowedNetworkError(t *testing.T) {
	c, _, _ := newTestCache(t)
	f := NewFetcher(c, &stubCapturer{})

	ok, _ := f.IframeAllowed(context.Background(), "http://127.0.0.1:1")
	if ok {
		t.Error("unreachable host reported as embeddable")
	}
}
