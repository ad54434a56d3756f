// Package preview caches site preview artifacts (screenshot references and
// iframe-compatibility results) keyed by URL, and acquires previews from the
// outside world when the cache misses.
package preview

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

const (
	// StorageKey is the single key the serialized cache blob lives under.
	StorageKey = "preview_cache"

	// DefaultExpiryHours is how long a cached preview stays valid.
	DefaultExpiryHours = 24

	// DefaultMaxSize bounds the number of cached previews.
	DefaultMaxSize = 50
)

// Capture methods for a cached preview.
const (
	MethodIframe     = "iframe"
	MethodScreenshot = "screenshot"
)

// Storage is the injected key-value backend the cache persists into.
// storage.KV satisfies it; tests use an in-memory map.
type Storage interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
	RemoveItem(key string) error
}

// Item is one cached preview artifact. Timestamp is epoch milliseconds.
type Item struct {
	URL       string `json:"url"`
	Artifact  string `json:"artifact"` // opaque reference: image URL or data URI
	Timestamp int64  `json:"timestamp"`
	Method    string `json:"method"` // "iframe" or "screenshot"
}

// cacheData is the persisted blob: the full item list is rewritten wholesale
// on every mutation. At most one item per URL exists at any time.
type cacheData struct {
	Items       []Item `json:"items"`
	LastCleanup int64  `json:"lastCleanup"`
}

// Cache is a time-expiring, size-bounded preview store. It is best-effort:
// storage failures degrade to cache misses and dropped writes, never errors.
type Cache struct {
	storage     Storage
	expiryHours int
	maxSize     int
	now         func() time.Time
}

// Option adjusts cache construction.
type Option func(*Cache)

// WithExpiryHours overrides the default entry lifetime.
func WithExpiryHours(h int) Option {
	return func(c *Cache) {
		if h > 0 {
			c.expiryHours = h
		}
	}
}

// WithMaxSize overrides the default capacity.
func WithMaxSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// withClock lets tests control time.
func withClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a Cache over the given storage backend.
func NewCache(s Storage, opts ...Option) *Cache {
	c := &Cache{
		storage:     s,
		expiryHours: DefaultExpiryHours,
		maxSize:     DefaultMaxSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// load reads and decodes the persisted blob. A missing, unreadable, or
// malformed blob is treated as an empty cache.
func (c *Cache) load() cacheData {
	raw, ok, err := c.storage.GetItem(StorageKey)
	if err != nil {
		slog.Warn("preview cache: read failed, starting empty", "error", err)
		return cacheData{LastCleanup: c.nowMillis()}
	}
	if !ok {
		return cacheData{LastCleanup: c.nowMillis()}
	}
	var data cacheData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		slog.Warn("preview cache: malformed blob discarded", "error", err)
		return cacheData{LastCleanup: c.nowMillis()}
	}
	return data
}

// save persists the blob. On write failure (storage pressure) it forces a
// cleanup pass and retries exactly once; a second failure drops the write.
func (c *Cache) save(data cacheData) {
	if err := c.write(data); err != nil {
		slog.Warn("preview cache: save failed, forcing cleanup", "error", err)
		data.Items = c.evict(data.Items, true)
		data.LastCleanup = c.nowMillis()
		if err := c.write(data); err != nil {
			slog.Error("preview cache: save failed after cleanup, dropping write", "error", err)
		}
	}
}

func (c *Cache) write(data cacheData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding cache blob: %w", err)
	}
	return c.storage.SetItem(StorageKey, string(raw))
}

// Get returns the cached preview for url, or nil on a miss. An expired entry
// is evicted on the spot and reported as a miss. Reads never refresh the
// entry's timestamp.
func (c *Cache) Get(url string) *Item {
	data := c.load()
	for _, item := range data.Items {
		if item.URL != url {
			continue
		}
		if c.nowMillis()-item.Timestamp > c.expiryMillis() {
			c.Remove(url)
			return nil
		}
		found := item
		return &found
	}
	return nil
}

// Set stores a preview for url, replacing any existing entry (newest write
// wins). If the cache then exceeds capacity, expired and oldest entries are
// evicted.
func (c *Cache) Set(url, artifact, method string) {
	data := c.load()
	data.Items = removeURL(data.Items, url)
	data.Items = append(data.Items, Item{
		URL:       url,
		Artifact:  artifact,
		Timestamp: c.nowMillis(),
		Method:    method,
	})

	if len(data.Items) > c.maxSize {
		data.Items = c.evict(data.Items, false)
		data.LastCleanup = c.nowMillis()
	}

	c.save(data)
}

// Remove deletes the entry for url; no-op if absent.
func (c *Cache) Remove(url string) {
	data := c.load()
	data.Items = removeURL(data.Items, url)
	c.save(data)
}

// Cleanup removes expired entries. With force, or when the cache is still
// over capacity afterwards, it keeps only the newest maxSize entries.
func (c *Cache) Cleanup(force bool) {
	data := c.load()
	data.Items = c.evict(data.Items, force)
	data.LastCleanup = c.nowMillis()
	c.save(data)
}

// evict drops expired items, then truncates to the newest maxSize items when
// forced or still over capacity. Eviction is expire-then-keep-newest-N, not
// strict LRU: reads never promote entries.
func (c *Cache) evict(items []Item, force bool) []Item {
	now := c.nowMillis()
	live := items[:0]
	for _, item := range items {
		if now-item.Timestamp <= c.expiryMillis() {
			live = append(live, item)
		}
	}

	if force || len(live) > c.maxSize {
		sort.SliceStable(live, func(i, j int) bool {
			return live[i].Timestamp > live[j].Timestamp
		})
		if len(live) > c.maxSize {
			live = live[:c.maxSize]
		}
	}
	return live
}

// Clear deletes the entire persisted blob.
func (c *Cache) Clear() {
	if err := c.storage.RemoveItem(StorageKey); err != nil {
		slog.Warn("preview cache: clear failed", "error", err)
	}
}

// Stats reports the live entry count (without an expiry sweep, so it may
// include stale-but-uncleaned entries) and the approximate serialized size.
type Stats struct {
	Count int    `json:"count"`
	Size  string `json:"size"`
}

// GetStats returns cache statistics.
func (c *Cache) GetStats() Stats {
	data := c.load()
	raw, err := json.Marshal(data)
	if err != nil {
		raw = nil
	}
	return Stats{
		Count: len(data.Items),
		Size:  fmt.Sprintf("%.2f KB", float64(len(raw))/1024),
	}
}

func (c *Cache) nowMillis() int64 {
	return c.now().UnixMilli()
}

func (c *Cache) expiryMillis() int64 {
	return int64(c.expiryHours) * 60 * 60 * 1000
}

func removeURL(items []Item, url string) []Item {
	kept := items[:0]
	for _, item := range items {
		if item.URL != url {
			kept = append(kept, item)
		}
	}
	return kept
}
