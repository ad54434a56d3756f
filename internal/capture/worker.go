// Package capture runs the background preview acquisition worker. It drains
// capture_preview jobs from the SQLite queue, acquires a preview for the
// site's URL, and records screenshot artifacts on the catalog entry.
package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/muahib/showcase/internal/preview"
	"github.com/muahib/showcase/internal/storage"
)

// JobType is the queue type the worker drains.
const JobType = "capture_preview"

// JobStore abstracts the job queue and catalog operations.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	GetSite(id string) (storage.Site, error)
	UpdateSiteImage(id, image string) error
}

// Acquirer produces a preview for a URL, consulting the cache first.
type Acquirer interface {
	Acquire(ctx context.Context, url string) (*preview.Item, error)
}

// Worker processes capture_preview jobs from the SQLite job queue.
type Worker struct {
	store   JobStore
	fetcher Acquirer
	poll    time.Duration
	logger  *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, fetcher Acquirer, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:   store,
		fetcher: fetcher,
		poll:    pollInterval,
		logger:  slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single capture_preview job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobType})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

// Payload is the capture_preview job payload.
type Payload struct {
	SiteID string `json:"site_id"`
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload Payload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	site, err := w.store.GetSite(payload.SiteID)
	if err != nil {
		return fmt.Errorf("loading site %s: %w", payload.SiteID, err)
	}

	item, err := w.fetcher.Acquire(ctx, site.URL)
	if err != nil {
		return fmt.Errorf("acquiring preview for %s: %w", site.URL, err)
	}

	// Iframe previews render the live site; only screenshot artifacts
	// replace the stored card image.
	if item.Method == preview.MethodScreenshot {
		if err := w.store.UpdateSiteImage(site.ID, item.Artifact); err != nil {
			return fmt.Errorf("updating image for %s: %w", site.ID, err)
		}
	}

	return nil
}
