// Package uploads pushes locally captured screenshot files to a
// Supabase-style storage bucket and links the resulting public URLs to
// catalog entries.
package uploads

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/muahib/showcase/internal/storage"
)

const (
	defaultTimeout    = 60 * time.Second
	uploadConcurrency = 4
)

// SiteStore is the subset of the catalog store the uploader needs.
type SiteStore interface {
	ListSites() ([]storage.Site, error)
	UpdateSiteImage(id, image string) error
}

// Result describes the outcome of a single file upload.
type Result struct {
	File      string `json:"file"`
	PublicURL string `json:"public_url"`
	SiteID    string `json:"site_id,omitempty"`
	SiteName  string `json:"site_name,omitempty"`
	Err       string `json:"error,omitempty"`
}

// Uploader uploads screenshot files to object storage.
type Uploader struct {
	baseURL    string
	bucket     string
	serviceKey string
	sites      SiteStore
	httpClient *http.Client
}

// NewUploader creates an Uploader for the given storage endpoint and bucket.
func NewUploader(baseURL, bucket, serviceKey string, sites SiteStore) *Uploader {
	return &Uploader{
		baseURL:    strings.TrimRight(baseURL, "/"),
		bucket:     bucket,
		serviceKey: serviceKey,
		sites:      sites,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// UploadDir uploads every .png file in dir concurrently and links each
// uploaded image to the catalog entry whose slugified name matches the file
// name. Per-file failures are recorded in the results, not returned as an
// error; the error return covers setup failures only.
func (u *Uploader) UploadDir(ctx context.Context, dir string) ([]Result, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .png files found in %s", dir)
	}

	sites, err := u.sites.ListSites()
	if err != nil {
		return nil, fmt.Errorf("listing sites: %w", err)
	}
	bySlug := make(map[string]storage.Site, len(sites))
	for _, site := range sites {
		bySlug[Slugify(site.Name)] = site
	}

	results := make([]Result, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	for i, file := range files {
		g.Go(func() error {
			res := u.uploadOne(ctx, file, bySlug)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (u *Uploader) uploadOne(ctx context.Context, file string, bySlug map[string]storage.Site) Result {
	res := Result{File: filepath.Base(file)}

	publicURL, err := u.Upload(ctx, file)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.PublicURL = publicURL

	slug := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	site, ok := bySlug[Slugify(slug)]
	if !ok {
		slog.Warn("no catalog entry matches screenshot", "file", res.File, "slug", slug)
		return res
	}

	if err := u.sites.UpdateSiteImage(site.ID, publicURL); err != nil {
		res.Err = fmt.Sprintf("linking image to %s: %v", site.Name, err)
		return res
	}
	res.SiteID = site.ID
	res.SiteName = site.Name
	return res
}

// Upload pushes a single file to the bucket with upsert semantics and returns
// its public URL.
func (u *Uploader) Upload(ctx context.Context, file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", file, err)
	}

	name := filepath.Base(file)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.objectURL(name), strings.NewReader(string(data)))
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.serviceKey)
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("x-upsert", "true")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("uploading %s: status %d", name, resp.StatusCode)
	}

	return u.PublicURL(name), nil
}

func (u *Uploader) objectURL(name string) string {
	return u.baseURL + "/storage/v1/object/" + url.PathEscape(u.bucket) + "/" + url.PathEscape(name)
}

// PublicURL returns the public download URL for an object in the bucket.
func (u *Uploader) PublicURL(name string) string {
	return u.baseURL + "/storage/v1/object/public/" + url.PathEscape(u.bucket) + "/" + url.PathEscape(name)
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases a name and collapses runs of non-alphanumerics into
// single hyphens, so "Muahib Stores" and "muahib-stores.png" both map to
// "muahib-stores".
func Slugify(name string) string {
	s := slugRe.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}
