package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/muahib/showcase/internal/search"
	"github.com/muahib/showcase/internal/storage"
)

type SiteRequest struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// SiteResponse is a catalog entry plus its inferred categories.
type SiteResponse struct {
	storage.Site
	Categories []string `json:"categories"`
}

func siteResponse(site storage.Site) SiteResponse {
	return SiteResponse{Site: site, Categories: search.Categorize(site)}
}

func handleListSites(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sites, err := deps.Store.ListSites()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list sites: %v", err)
			return
		}

		resp := make([]SiteResponse, len(sites))
		for i, site := range sites {
			resp[i] = siteResponse(site)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func handleAddSite(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req SiteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if req.URL == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "url is required")
			return
		}

		// Prefill missing fields from the page's own metadata.
		if deps.Meta != nil && (req.Name == "" || req.Description == "") {
			ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
			meta, err := deps.Meta.Fetch(ctx, req.URL)
			cancel()
			if err != nil {
				slog.Warn("metadata prefill failed", "url", req.URL, "error", err)
			} else {
				if req.Name == "" {
					req.Name = meta.Title
				}
				if req.Description == "" {
					req.Description = meta.Description
				}
			}
		}
		if req.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required and could not be derived from the page")
			return
		}

		site := storage.Site{
			ID:          uuid.New().String(),
			Name:        req.Name,
			URL:         req.URL,
			Description: req.Description,
			Image:       req.Image,
			CreatedAt:   time.Now().UTC(),
		}
		if err := deps.Store.SaveSite(site); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save site: %v", err)
			return
		}

		if err := refreshEngine(deps); err != nil {
			slog.Warn("search engine refresh failed", "error", err)
		}

		enqueueCapture(deps, site.ID)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(siteResponse(site))
	}
}

// enqueueCapture queues a preview acquisition job for a site. Queue failures
// are logged, not surfaced: the catalog write already succeeded.
func enqueueCapture(deps AppDeps, siteID string) {
	payload, err := json.Marshal(map[string]string{"site_id": siteID})
	if err != nil {
		slog.Warn("failed to marshal capture payload", "site_id", siteID, "error", err)
		return
	}
	job := storage.Job{
		ID:          uuid.New().String(),
		Type:        "capture_preview",
		PayloadJSON: string(payload),
	}
	if err := deps.Store.EnqueueJob(job); err != nil {
		slog.Warn("failed to enqueue capture job", "site_id", siteID, "error", err)
	}
}

func handleGetSite(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		site, err := deps.Store.GetSite(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "site not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get site: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(siteResponse(site))
	}
}

func handleUpdateSite(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req SiteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		site, err := deps.Store.GetSite(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "site not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get site: %v", err)
			return
		}

		urlChanged := req.URL != "" && req.URL != site.URL
		if req.Name != "" {
			site.Name = req.Name
		}
		if req.URL != "" {
			site.URL = req.URL
		}
		if req.Description != "" {
			site.Description = req.Description
		}
		if req.Image != "" {
			site.Image = req.Image
		}

		if err := deps.Store.UpdateSite(site); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update site: %v", err)
			return
		}

		if err := refreshEngine(deps); err != nil {
			slog.Warn("search engine refresh failed", "error", err)
		}
		if urlChanged {
			enqueueCapture(deps, site.ID)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(siteResponse(site))
	}
}

func handleDeleteSite(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		// Drop the cached preview alongside the catalog entry.
		site, err := deps.Store.GetSite(id)
		if err == nil && strings.TrimSpace(site.URL) != "" {
			deps.Cache.Remove(site.URL)
		}

		err = deps.Store.DeleteSite(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "site not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete site: %v", err)
			return
		}

		if err := refreshEngine(deps); err != nil {
			slog.Warn("search engine refresh failed", "error", err)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}
