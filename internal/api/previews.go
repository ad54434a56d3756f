package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/muahib/showcase/internal/storage"
)

func handleGetPreview(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url := strings.TrimSpace(r.URL.Query().Get("url"))
		if url == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "url is required")
			return
		}

		item, err := deps.Fetcher.Acquire(r.Context(), url)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "failed to acquire preview: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(item)
	}
}

// handleGeneratePreviews queues a capture job per catalog entry (or a single
// entry when site_id is given). The worker drains the queue in the background.
func handleGeneratePreviews(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req struct {
			SiteID string `json:"site_id"`
		}
		// An empty body means "all sites".
		_ = json.NewDecoder(r.Body).Decode(&req)

		var ids []string
		if req.SiteID != "" {
			if _, err := deps.Store.GetSite(req.SiteID); err != nil {
				httpError(w, http.StatusNotFound, "not_found", "site not found")
				return
			}
			ids = []string{req.SiteID}
		} else {
			sites, err := deps.Store.ListSites()
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to list sites: %v", err)
				return
			}
			for _, site := range sites {
				ids = append(ids, site.ID)
			}
		}

		queued := 0
		for _, id := range ids {
			payload, err := json.Marshal(map[string]string{"site_id": id})
			if err != nil {
				continue
			}
			job := storage.Job{
				ID:          uuid.New().String(),
				Type:        "capture_preview",
				PayloadJSON: string(payload),
			}
			if err := deps.Store.EnqueueJob(job); err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to enqueue job: %v", err)
				return
			}
			queued++
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "queued", "jobs": queued})
	}
}

func handleCacheStats(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(deps.Cache.GetStats())
	}
}

func handleClearCache(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Cache.Clear()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
	}
}
