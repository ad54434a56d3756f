// Package webmeta extracts the title and description of a web page, used to
// prefill catalog entries added by URL only.
package webmeta

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 2 << 20 // 2MB is plenty for <head>
)

// Meta holds the metadata extracted from a page.
type Meta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Extractor fetches pages and pulls their metadata.
type Extractor struct {
	httpClient *http.Client
}

// NewExtractor creates an Extractor with a default timeout.
func NewExtractor() *Extractor {
	return &Extractor{
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// Fetch downloads url and extracts its title and meta description.
func (e *Extractor) Fetch(ctx context.Context, url string) (Meta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Meta{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "MuahibShowcase/1.0")
	req.Header.Set("Accept", "text/html")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return Meta{}, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Meta{}, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	return Parse(io.LimitReader(resp.Body, maxBodyBytes))
}

// Parse extracts metadata from an HTML document. Missing fields are returned
// empty rather than as errors.
func Parse(r io.Reader) (Meta, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Meta{}, fmt.Errorf("parsing html: %w", err)
	}

	var meta Meta
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if meta.Title == "" && n.FirstChild != nil {
					meta.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				name, content := attrs(n)
				if content == "" {
					break
				}
				switch name {
				case "description":
					if meta.Description == "" {
						meta.Description = content
					}
				case "og:description":
					if meta.Description == "" {
						meta.Description = content
					}
				case "og:title":
					if meta.Title == "" {
						meta.Title = content
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return meta, nil
}

// attrs returns the name (or property) and content attributes of a meta tag.
func attrs(n *html.Node) (name, content string) {
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "name", "property":
			name = strings.ToLower(strings.TrimSpace(a.Val))
		case "content":
			content = strings.TrimSpace(a.Val)
		}
	}
	return name, content
}
