package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/muahib/showcase/internal/search"
	"github.com/muahib/showcase/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store  *storage.Store
	Engine *search.Engine
}

// NewMCPServer creates an MCP server exposing the catalog to agent clients.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"showcase",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("showcase — searchable portfolio catalog of delivered client websites."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("search_sites",
			mcp.WithDescription("Search the portfolio catalog with typo-tolerant matching. Returns ranked sites."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithString("category", mcp.Description("Optional category filter (business, technology, education, ecommerce, portfolio)")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpSearchSites(deps),
	)

	s.AddTool(
		mcp.NewTool("get_suggestions",
			mcp.WithDescription("Return search suggestions for a partial query."),
			mcp.WithString("query", mcp.Description("Partial query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of suggestions (default 5)")),
		),
		mcpGetSuggestions(deps),
	)

	s.AddTool(
		mcp.NewTool("add_site",
			mcp.WithDescription("Add a site to the portfolio catalog."),
			mcp.WithString("name", mcp.Description("Site name"), mcp.Required()),
			mcp.WithString("url", mcp.Description("Site URL"), mcp.Required()),
			mcp.WithString("description", mcp.Description("Short description of the site")),
		),
		mcpAddSite(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"catalog://sites",
			"Site Catalog",
			mcp.WithResourceDescription("Full portfolio catalog as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceSites(deps),
	)

	return s
}

func mcpSearchSites(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 50 {
			limit = 50
		}

		filters, err := search.ParseFilters(req.GetString("category", ""), "", "")
		if err != nil {
			return mcpError(fmt.Sprintf("invalid filters: %v", err)), nil
		}

		results := deps.Engine.Search(query, filters)
		if len(results) > limit {
			results = results[:limit]
		}

		type siteResult struct {
			ID          string  `json:"id"`
			Name        string  `json:"name"`
			URL         string  `json:"url"`
			Description string  `json:"description"`
			Score       float64 `json:"score"`
		}
		out := make([]siteResult, len(results))
		for i, res := range results {
			out[i] = siteResult{
				ID:          res.ID,
				Name:        res.Name,
				URL:         res.URL,
				Description: res.Description,
				Score:       res.Score,
			}
		}

		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpGetSuggestions(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}
		if limit > 20 {
			limit = 20
		}

		suggestions := deps.Engine.Suggestions(query, limit)

		b, err := json.Marshal(suggestions)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal suggestions: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpAddSite(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		url, err := req.RequireString("url")
		if err != nil {
			return mcpError("url is required"), nil
		}

		site := storage.Site{
			ID:          uuid.New().String(),
			Name:        name,
			URL:         url,
			Description: req.GetString("description", ""),
			CreatedAt:   time.Now().UTC(),
		}
		if err := deps.Store.SaveSite(site); err != nil {
			return mcpError(fmt.Sprintf("failed to save site: %v", err)), nil
		}

		if sites, err := deps.Store.ListSites(); err == nil {
			deps.Engine.UpdateSites(sites)
		}

		// Queue preview acquisition for the new entry.
		payload, err := json.Marshal(map[string]string{"site_id": site.ID})
		if err == nil {
			job := storage.Job{
				ID:          uuid.New().String(),
				Type:        "capture_preview",
				PayloadJSON: string(payload),
			}
			if err := deps.Store.EnqueueJob(job); err != nil {
				return mcpError(fmt.Sprintf("saved site but failed to queue preview capture: %v", err)), nil
			}
		}

		return mcpText(fmt.Sprintf("Added site %s", site.ID)), nil
	}
}

func mcpResourceSites(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		sites, err := deps.Store.ListSites()
		if err != nil {
			return nil, fmt.Errorf("failed to list sites: %w", err)
		}

		type catalogEntry struct {
			ID          string   `json:"id"`
			Name        string   `json:"name"`
			URL         string   `json:"url"`
			Description string   `json:"description"`
			Categories  []string `json:"categories"`
			CreatedAt   string   `json:"created_at"`
		}

		entries := make([]catalogEntry, len(sites))
		for i, site := range sites {
			entries[i] = catalogEntry{
				ID:          site.ID,
				Name:        site.Name,
				URL:         site.URL,
				Description: site.Description,
				Categories:  search.Categorize(site),
				CreatedAt:   site.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal catalog: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
