package preview

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// memStorage is an in-memory Storage with optional write-failure injection.
type memStorage struct {
	data      map[string]string
	failSets  int  // fail this many SetItem calls, then succeed
	failAll   bool // fail every SetItem call
	setCalls  int
	failReads bool
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string]string)}
}

func (m *memStorage) GetItem(key string) (string, bool, error) {
	if m.failReads {
		return "", false, errors.New("read failure")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStorage) SetItem(key, value string) error {
	m.setCalls++
	if m.failAll || m.failSets > 0 {
		if m.failSets > 0 {
			m.failSets--
		}
		return errors.New("storage full")
	}
	m.data[key] = value
	return nil
}

func (m *memStorage) RemoveItem(key string) error {
	delete(m.data, key)
	return nil
}

// testClock drives the cache's notion of time.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(t *testing.T, opts ...Option) (*Cache, *memStorage, *testClock) {
	t.Helper()
	store := newMemStorage()
	clock := &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	opts = append(opts, withClock(clock.now))
	return NewCache(store, opts...), store, clock
}

func TestCacheRoundTrip(t *testing.T) {
	c, _, _ := newTestCache(t)

	c.Set("https://a.example", "data:image/png;base64,AAA", MethodScreenshot)

	item := c.Get("https://a.example")
	if item == nil {
		t.Fatal("expected a cache hit")
	}
	if item.Artifact != "data:image/png;base64,AAA" {
		t.Errorf("artifact = %q", item.Artifact)
	}
	if item.Method != MethodScreenshot {
		t.Errorf("method = %q, want screenshot", item.Method)
	}
}

func TestCacheMiss(t *testing.T) {
	c, _, _ := newTestCache(t)
	if item := c.Get("https://nothing.example"); item != nil {
		t.Errorf("expected a miss, got %+v", item)
	}
}

func TestCacheExpiry(t *testing.T) {
	c, store, clock := newTestCache(t)

	c.Set("https://a.example", "x", MethodIframe)

	clock.advance(23 * time.Hour)
	if c.Get("https://a.example") == nil {
		t.Fatal("entry expired too early")
	}

	clock.advance(2 * time.Hour) // now past 24h
	if item := c.Get("https://a.example"); item != nil {
		t.Fatalf("expected expiry, got %+v", item)
	}

	// The expired entry must be gone from the persisted blob, not just hidden.
	var data cacheData
	if err := json.Unmarshal([]byte(store.data[StorageKey]), &data); err != nil {
		t.Fatalf("unmarshal blob: %v", err)
	}
	if len(data.Items) != 0 {
		t.Errorf("expired entry still persisted: %+v", data.Items)
	}
}

func TestCacheGetDoesNotRefresh(t *testing.T) {
	c, _, clock := newTestCache(t)

	c.Set("https://a.example", "x", MethodIframe)
	first := c.Get("https://a.example")

	clock.advance(10 * time.Hour)
	second := c.Get("https://a.example")

	if first.Timestamp != second.Timestamp {
		t.Error("read refreshed the entry timestamp")
	}
}

func TestCacheNewestWriteWins(t *testing.T) {
	c, _, clock := newTestCache(t)

	c.Set("https://a.example", "old", MethodIframe)
	clock.advance(time.Minute)
	c.Set("https://a.example", "new", MethodScreenshot)

	item := c.Get("https://a.example")
	if item == nil || item.Artifact != "new" {
		t.Fatalf("got %+v, want the newer write", item)
	}

	stats := c.GetStats()
	if stats.Count != 1 {
		t.Errorf("count = %d, want 1 (no duplicate per URL)", stats.Count)
	}
}

func TestCacheEvictionKeepsNewest(t *testing.T) {
	c, _, clock := newTestCache(t, WithMaxSize(50))

	for i := 0; i < 55; i++ {
		c.Set(fmt.Sprintf("https://site%02d.example", i), "x", MethodIframe)
		clock.advance(time.Second)
	}

	stats := c.GetStats()
	if stats.Count != 50 {
		t.Fatalf("count after overflow = %d, want 50", stats.Count)
	}

	// The oldest five must be gone, the newest five present.
	for i := 0; i < 5; i++ {
		if c.Get(fmt.Sprintf("https://site%02d.example", i)) != nil {
			t.Errorf("oldest entry %d survived eviction", i)
		}
	}
	for i := 50; i < 55; i++ {
		if c.Get(fmt.Sprintf("https://site%02d.example", i)) == nil {
			t.Errorf("newest entry %d was evicted", i)
		}
	}
}

func TestCacheCleanupForce(t *testing.T) {
	c, _, clock := newTestCache(t, WithMaxSize(10))

	for i := 0; i < 8; i++ {
		c.Set(fmt.Sprintf("https://site%d.example", i), "x", MethodIframe)
		clock.advance(time.Second)
	}

	// Under capacity: a plain cleanup only sweeps expired entries.
	c.Cleanup(false)
	if got := c.GetStats().Count; got != 8 {
		t.Errorf("count after soft cleanup = %d, want 8", got)
	}

	// Forced cleanup keeps at most maxSize, which we're under; still 8.
	c.Cleanup(true)
	if got := c.GetStats().Count; got != 8 {
		t.Errorf("count after forced cleanup = %d, want 8", got)
	}

	clock.advance(25 * time.Hour)
	c.Cleanup(false)
	if got := c.GetStats().Count; got != 0 {
		t.Errorf("count after expiry cleanup = %d, want 0", got)
	}
}

func TestCacheWriteFailureRetriesOnce(t *testing.T) {
	c, store, _ := newTestCache(t)

	c.Set("https://a.example", "x", MethodIframe)

	store.failSets = 1 // first write of the next save fails, retry succeeds
	c.Set("https://b.example", "y", MethodIframe)

	if c.Get("https://b.example") == nil {
		t.Error("write should succeed on the retry after forced cleanup")
	}
}

func TestCacheWriteFailureDropsWrite(t *testing.T) {
	c, store, _ := newTestCache(t)

	store.failAll = true
	c.Set("https://a.example", "x", MethodIframe) // must not panic

	store.failAll = false
	if c.Get("https://a.example") != nil {
		t.Error("dropped write still visible")
	}
}

func TestCacheCorruptBlobTreatedAsEmpty(t *testing.T) {
	c, store, _ := newTestCache(t)

	store.data[StorageKey] = "{not json"
	if item := c.Get("https://a.example"); item != nil {
		t.Errorf("corrupt blob produced a hit: %+v", item)
	}

	c.Set("https://a.example", "x", MethodIframe)
	if c.Get("https://a.example") == nil {
		t.Error("cache did not recover from a corrupt blob")
	}
}

func TestCacheReadErrorTreatedAsEmpty(t *testing.T) {
	c, store, _ := newTestCache(t)

	store.failReads = true
	if item := c.Get("https://a.example"); item != nil {
		t.Errorf("read error produced a hit: %+v", item)
	}
}

func TestCacheClear(t *testing.T) {
	c, store, _ := newTestCache(t)

	c.Set("https://a.example", "x", MethodIframe)
	c.Clear()

	if _, ok := store.data[StorageKey]; ok {
		t.Error("Clear left the blob in storage")
	}
	if c.GetStats().Count != 0 {
		t.Error("count after Clear != 0")
	}
}

func TestCacheStats(t *testing.T) {
	c, _, clock := newTestCache(t)

	c.Set("https://a.example", "x", MethodIframe)
	c.Set("https://b.example", "y", MethodIframe)

	stats := c.GetStats()
	if stats.Count != 2 {
		t.Errorf("count = %d, want 2", stats.Count)
	}
	if !strings.HasSuffix(stats.Size, " KB") {
		t.Errorf("size = %q, want a KB-formatted string", stats.Size)
	}

	// Stats do not sweep expired entries; the count may include stale ones.
	clock.advance(25 * time.Hour)
	if got := c.GetStats().Count; got != 2 {
		t.Errorf("stats swept expired entries: count = %d, want 2", got)
	}

	// But a read of one URL evicts only that URL.
	c.Get("https://a.example")
	if got := c.GetStats().Count; got != 1 {
		t.Errorf("count after expiring read = %d, want 1", got)
	}
}

func TestCacheRemove(t *testing.T) {
	c, _, _ := newTestCache(t)

	c.Set("https://a.example", "x", MethodIframe)
	c.Set("https://b.example", "y", MethodIframe)
	c.Remove("https://a.example")

	if c.Get("https://a.example") != nil {
		t.Error("removed entry still present")
	}
	if c.Get("https://b.example") == nil {
		t.Error("Remove dropped an unrelated entry")
	}
}
