package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSite(id string) Site {
	return Site{
		ID:          id,
		Name:        "Muahib Stores",
		URL:         "https://muahibstores.example.com",
		Description: "Online marketplace for gadgets",
		Image:       "https://cdn.example.com/stores.png",
		CreatedAt:   time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	indexes := []string{"idx_sites_created", "idx_jobs_status_run_after"}
	for _, idx := range indexes {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count)
		if err != nil {
			t.Fatalf("querying index %s: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %s missing", idx)
		}
	}
}

// --- Sites ---

func TestSiteCRUD(t *testing.T) {
	s := openTestStore(t)

	site := testSite("site-1")
	if err := s.SaveSite(site); err != nil {
		t.Fatalf("SaveSite: %v", err)
	}

	got, err := s.GetSite("site-1")
	if err != nil {
		t.Fatalf("GetSite: %v", err)
	}
	if got.Name != site.Name || got.URL != site.URL || got.Description != site.Description {
		t.Errorf("GetSite = %+v, want %+v", got, site)
	}
	if !got.CreatedAt.Equal(site.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, site.CreatedAt)
	}

	got.Description = "Updated description"
	if err := s.UpdateSite(got); err != nil {
		t.Fatalf("UpdateSite: %v", err)
	}
	updated, err := s.GetSite("site-1")
	if err != nil {
		t.Fatalf("GetSite after update: %v", err)
	}
	if updated.Description != "Updated description" {
		t.Errorf("description not updated: %q", updated.Description)
	}

	if err := s.DeleteSite("site-1"); err != nil {
		t.Fatalf("DeleteSite: %v", err)
	}
	if _, err := s.GetSite("site-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSite after delete: err = %v, want ErrNotFound", err)
	}
}

func TestSiteNotFound(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetSite("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSite: err = %v, want ErrNotFound", err)
	}
	if err := s.UpdateSite(testSite("missing")); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateSite: err = %v, want ErrNotFound", err)
	}
	if err := s.UpdateSiteImage("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateSiteImage: err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteSite("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteSite: err = %v, want ErrNotFound", err)
	}
}

func TestListSitesOrderedByID(t *testing.T) {
	s := openTestStore(t)

	for _, id := range []string{"03", "01", "02"} {
		site := testSite(id)
		site.Name = "Site " + id
		if err := s.SaveSite(site); err != nil {
			t.Fatalf("SaveSite(%s): %v", id, err)
		}
	}

	sites, err := s.ListSites()
	if err != nil {
		t.Fatalf("ListSites: %v", err)
	}
	if len(sites) != 3 {
		t.Fatalf("ListSites returned %d sites, want 3", len(sites))
	}
	for i, want := range []string{"01", "02", "03"} {
		if sites[i].ID != want {
			t.Errorf("sites[%d].ID = %s, want %s", i, sites[i].ID, want)
		}
	}
}

func TestUpdateSiteImage(t *testing.T) {
	s := openTestStore(t)

	site := testSite("site-1")
	if err := s.SaveSite(site); err != nil {
		t.Fatalf("SaveSite: %v", err)
	}

	if err := s.UpdateSiteImage("site-1", "data:image/png;base64,AAA"); err != nil {
		t.Fatalf("UpdateSiteImage: %v", err)
	}

	got, err := s.GetSite("site-1")
	if err != nil {
		t.Fatalf("GetSite: %v", err)
	}
	if got.Image != "data:image/png;base64,AAA" {
		t.Errorf("image = %q", got.Image)
	}
	if got.Name != site.Name {
		t.Errorf("UpdateSiteImage touched other fields: name = %q", got.Name)
	}
}

// --- KV ---

func TestKVRoundTrip(t *testing.T) {
	kv := openTestStore(t).KV()

	if _, ok, err := kv.GetItem("missing"); err != nil || ok {
		t.Fatalf("GetItem(missing) = ok %v, err %v", ok, err)
	}

	if err := kv.SetItem("preview_cache", `{"items":[]}`); err != nil {
		t.Fatalf("SetItem: %v", err)
	}
	v, ok, err := kv.GetItem("preview_cache")
	if err != nil || !ok {
		t.Fatalf("GetItem = ok %v, err %v", ok, err)
	}
	if v != `{"items":[]}` {
		t.Errorf("value = %q", v)
	}

	// Upsert replaces.
	if err := kv.SetItem("preview_cache", "v2"); err != nil {
		t.Fatalf("SetItem upsert: %v", err)
	}
	v, _, _ = kv.GetItem("preview_cache")
	if v != "v2" {
		t.Errorf("value after upsert = %q", v)
	}

	if err := kv.RemoveItem("preview_cache"); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if _, ok, _ := kv.GetItem("preview_cache"); ok {
		t.Error("key still present after RemoveItem")
	}

	// Removing a missing key is not an error.
	if err := kv.RemoveItem("missing"); err != nil {
		t.Errorf("RemoveItem(missing): %v", err)
	}
}

// --- Jobs ---

func TestJobLifecycle(t *testing.T) {
	s := openTestStore(t)

	job := Job{ID: "job-1", Type: "capture_preview", PayloadJSON: `{"site_id":"site-1"}`}
	if err := s.EnqueueJob(job); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	claimed, err := s.ClaimNextJob([]string{"capture_preview"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if claimed == nil {
		t.Fatal("no job claimed")
	}
	if claimed.ID != "job-1" || claimed.Status != "running" {
		t.Errorf("claimed = %+v", claimed)
	}

	// A running job cannot be claimed twice.
	second, err := s.ClaimNextJob([]string{"capture_preview"})
	if err != nil {
		t.Fatalf("second ClaimNextJob: %v", err)
	}
	if second != nil {
		t.Errorf("claimed a running job: %+v", second)
	}

	if err := s.CompleteJob("job-1"); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
}

func TestClaimNextJobFiltersByType(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "job-1", Type: "other_type", PayloadJSON: "{}"}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	claimed, err := s.ClaimNextJob([]string{"capture_preview"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if claimed != nil {
		t.Errorf("claimed a job of the wrong type: %+v", claimed)
	}
}

func TestFailJobRetriesWithBackoff(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "job-1", Type: "capture_preview", PayloadJSON: "{}", MaxAttempts: 3}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	if _, err := s.ClaimNextJob([]string{"capture_preview"}); err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}

	if err := s.FailJob("job-1", "boom"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	var status, lastError string
	var attempts int
	var runAfter string
	err := s.db.QueryRow("SELECT status, attempts, last_error, run_after FROM jobs WHERE id = ?", "job-1").
		Scan(&status, &attempts, &lastError, &runAfter)
	if err != nil {
		t.Fatalf("querying job: %v", err)
	}
	if status != "pending" {
		t.Errorf("status = %q, want pending (retry)", status)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if lastError != "boom" {
		t.Errorf("last_error = %q", lastError)
	}

	ra, err := time.Parse(time.RFC3339, runAfter)
	if err != nil {
		t.Fatalf("parsing run_after: %v", err)
	}
	if !ra.After(time.Now().UTC()) {
		t.Errorf("run_after = %v, want a future time (backoff)", ra)
	}

	// The backed-off job must not be claimable immediately.
	claimed, err := s.ClaimNextJob([]string{"capture_preview"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if claimed != nil {
		t.Errorf("claimed a backed-off job: %+v", claimed)
	}
}

func TestFailJobExhaustsAttempts(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "job-1", Type: "capture_preview", PayloadJSON: "{}", MaxAttempts: 1}); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	if _, err := s.ClaimNextJob([]string{"capture_preview"}); err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}

	if err := s.FailJob("job-1", "boom"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	var status string
	if err := s.db.QueryRow("SELECT status FROM jobs WHERE id = ?", "job-1").Scan(&status); err != nil {
		t.Fatalf("querying job: %v", err)
	}
	if status != "failed" {
		t.Errorf("status = %q, want failed", status)
	}
}

func TestEnqueueManyClaimInOrder(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		job := Job{
			ID:          fmt.Sprintf("job-%d", i),
			Type:        "capture_preview",
			PayloadJSON: "{}",
			RunAfter:    time.Now().UTC().Add(-time.Duration(3-i) * time.Minute),
		}
		if err := s.EnqueueJob(job); err != nil {
			t.Fatalf("EnqueueJob: %v", err)
		}
	}

	// Oldest run_after first.
	first, err := s.ClaimNextJob([]string{"capture_preview"})
	if err != nil || first == nil {
		t.Fatalf("ClaimNextJob: %v, %v", first, err)
	}
	if first.ID != "job-0" {
		t.Errorf("first claimed = %s, want job-0", first.ID)
	}
}
