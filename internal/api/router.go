// Package api exposes the catalog, search, chat, and preview functionality
// over HTTP and MCP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/muahib/showcase/internal/chat"
	"github.com/muahib/showcase/internal/preview"
	"github.com/muahib/showcase/internal/search"
	"github.com/muahib/showcase/internal/storage"
	"github.com/muahib/showcase/internal/webmeta"
)

const maxRequestBodySize = 1 << 20 // 1MB

// AppDeps holds the dependencies shared by all HTTP handlers.
type AppDeps struct {
	Store     *storage.Store
	Engine    *search.Engine
	Responder *chat.Responder
	Cache     *preview.Cache
	Fetcher   *preview.Fetcher
	Meta      *webmeta.Extractor // optional; if nil, sites are not prefilled from page metadata
	Token     string
}

// NewAppHandler builds the HTTP API. Everything except /health requires the
// bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/sites", handleListSites(deps))
		r.Post("/sites", handleAddSite(deps))
		r.Get("/sites/{id}", handleGetSite(deps))
		r.Put("/sites/{id}", handleUpdateSite(deps))
		r.Delete("/sites/{id}", handleDeleteSite(deps))

		r.Get("/search", handleSearch(deps))
		r.Get("/suggestions", handleSuggestions(deps))
		r.Get("/related", handleRelated(deps))
		r.Get("/categories", handleCategories(deps))

		r.Post("/chat", handleChat(deps))
		r.Get("/chat/history", handleChatHistory(deps))
		r.Delete("/chat/history", handleClearChat(deps))
		r.Get("/chat/quick-responses", handleQuickResponses(deps))

		r.Get("/preview", handleGetPreview(deps))
		r.Post("/previews/generate", handleGeneratePreviews(deps))
		r.Get("/cache/stats", handleCacheStats(deps))
		r.Delete("/cache", handleClearCache(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// refreshEngine reloads the search engine's snapshot from the catalog. Called
// after every catalog mutation.
func refreshEngine(deps AppDeps) error {
	sites, err := deps.Store.ListSites()
	if err != nil {
		return err
	}
	deps.Engine.UpdateSites(sites)
	return nil
}
