package main

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muahib/showcase/internal/config"
	"github.com/muahib/showcase/internal/storage"
	"github.com/muahib/showcase/internal/uploads"
)

// --- sites ---

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Manage the portfolio catalog",
}

var sitesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get("/sites")
		if err != nil {
			return err
		}

		var sites []struct {
			ID          string   `json:"id"`
			Name        string   `json:"name"`
			URL         string   `json:"url"`
			Description string   `json:"description"`
			Categories  []string `json:"categories"`
		}
		if err := decodeJSON(resp, &sites); err != nil {
			return err
		}

		if len(sites) == 0 {
			fmt.Println("No sites in the catalog.")
			return nil
		}

		for _, s := range sites {
			fmt.Printf("%s  %s  %s\n",
				colorize(colorCyan, s.ID[:8]),
				colorize(colorBold, s.Name),
				s.URL,
			)
			if s.Description != "" {
				desc := s.Description
				if len(desc) > 100 {
					desc = desc[:100] + "..."
				}
				fmt.Printf("          %s\n", desc)
			}
			if len(s.Categories) > 1 {
				fmt.Printf("          [%s]\n", strings.Join(s.Categories[1:], ", "))
			}
		}
		return nil
	},
}

var sitesAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a site to the catalog",
	Long: `Add a site to the catalog.

Name and description are taken from the page's own metadata when not given.

Examples:
  showcase sites add https://muahibstores.com
  showcase sites add https://gmets.example --name "GMETS Technical" --description "Metering services"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		description, _ := cmd.Flags().GetString("description")
		image, _ := cmd.Flags().GetString("image")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{"url": args[0]}
		if name != "" {
			req["name"] = name
		}
		if description != "" {
			req["description"] = description
		}
		if image != "" {
			req["image"] = image
		}

		resp, err := client.post("/sites", req)
		if err != nil {
			return err
		}

		var site struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		if err := decodeJSON(resp, &site); err != nil {
			return err
		}

		printSuccess("Added %s (%s)", site.Name, site.ID)
		return nil
	},
}

var sitesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a site from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete("/sites/" + args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Removed site %s", args[0])
		return nil
	},
}

func init() {
	sitesAddCmd.Flags().String("name", "", "site name (defaults to the page title)")
	sitesAddCmd.Flags().String("description", "", "short description (defaults to the page meta description)")
	sitesAddCmd.Flags().String("image", "", "preview image URL")
	sitesCmd.AddCommand(sitesListCmd)
	sitesCmd.AddCommand(sitesAddCmd)
	sitesCmd.AddCommand(sitesRemoveCmd)
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		category, _ := cmd.Flags().GetString("category")
		sortBy, _ := cmd.Flags().GetString("sort")
		sortOrder, _ := cmd.Flags().GetString("order")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		params := url.Values{}
		params.Set("q", query)
		if category != "" {
			params.Set("category", category)
		}
		if sortBy != "" {
			params.Set("sort_by", sortBy)
		}
		if sortOrder != "" {
			params.Set("sort_order", sortOrder)
		}

		resp, err := client.get("/search?" + params.Encode())
		if err != nil {
			return err
		}

		var result struct {
			Total   int `json:"total"`
			Results []struct {
				Name        string  `json:"name"`
				URL         string  `json:"url"`
				Description string  `json:"description"`
				Score       float64 `json:"score"`
			} `json:"results"`
			Related []string `json:"related_searches"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.Total == 0 {
			fmt.Println("No results found.")
			if len(result.Related) > 0 {
				fmt.Printf("Try: %s\n", strings.Join(result.Related, ", "))
			}
			return nil
		}

		for i, r := range result.Results {
			fmt.Printf("\n%s [score: %.3f]\n", colorize(colorBold, fmt.Sprintf("%d. %s", i+1, r.Name)), r.Score)
			fmt.Printf("  %s\n", r.URL)
			if r.Description != "" {
				fmt.Printf("  %s\n", r.Description)
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().String("category", "", "category filter (business, technology, education, ecommerce, portfolio)")
	searchCmd.Flags().String("sort", "", "sort key (relevance, name, date)")
	searchCmd.Flags().String("order", "", "sort order (asc, desc)")
}

// --- suggest ---

var suggestCmd = &cobra.Command{
	Use:   "suggest <partial>",
	Short: "Show search suggestions for a partial query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		partial := strings.Join(args, " ")
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		params := url.Values{}
		params.Set("q", partial)
		params.Set("limit", fmt.Sprintf("%d", limit))

		resp, err := client.get("/suggestions?" + params.Encode())
		if err != nil {
			return err
		}

		var result struct {
			Suggestions []string `json:"suggestions"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Suggestions) == 0 {
			fmt.Println("No suggestions.")
			return nil
		}
		for _, s := range result.Suggestions {
			fmt.Println(s)
		}
		return nil
	},
}

func init() {
	suggestCmd.Flags().Int("limit", 5, "maximum number of suggestions")
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to the support chatbot (interactive without a message)",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if len(args) > 0 {
			return sendChat(client, strings.Join(args, " "))
		}

		// Interactive loop.
		fmt.Fprintln(os.Stderr, "Type a message, or /quit to exit.")
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Fprint(os.Stderr, "> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == "/quit" || line == "/exit" {
				return nil
			}
			if err := sendChat(client, line); err != nil {
				printError("%v", err)
			}
		}
	},
}

func sendChat(client *apiClient, message string) error {
	resp, err := client.post("/chat", map[string]string{"message": message})
	if err != nil {
		return err
	}

	var result struct {
		Message string `json:"message"`
		Err     string `json:"error"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		return err
	}

	fmt.Println(result.Message)
	if result.Err != "" {
		printWarning("%s", result.Err)
	}
	return nil
}

// --- cache ---

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the preview cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show preview cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get("/cache/stats")
		if err != nil {
			return err
		}

		var stats struct {
			Count int    `json:"count"`
			Size  string `json:"size"`
		}
		if err := decodeJSON(resp, &stats); err != nil {
			return err
		}

		printStatus("Entries", "%d", stats.Count)
		printStatus("Size", "%s", stats.Size)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the preview cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete("/cache")
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Preview cache cleared")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

// --- screenshots ---

var screenshotsCmd = &cobra.Command{
	Use:   "screenshots",
	Short: "Manage screenshot artifacts",
}

var screenshotsUploadCmd = &cobra.Command{
	Use:   "upload <dir>",
	Short: "Upload local screenshots and link them to catalog entries",
	Long: `Upload every .png file in a directory to the configured storage bucket.
Each file is linked to the catalog entry whose slugified name matches the
file name (muahib-stores.png -> "Muahib Stores").`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Uploads.BaseURL == "" {
			return fmt.Errorf("uploads.base_url is not configured")
		}
		if cfg.Uploads.ServiceKey == "" {
			return fmt.Errorf("SHOWCASE_UPLOADS_SERVICE_KEY is not set")
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		uploader := uploads.NewUploader(cfg.Uploads.BaseURL, cfg.Uploads.Bucket, cfg.Uploads.ServiceKey, store)

		printStep("Uploading screenshots from %s...", args[0])
		results, err := uploader.UploadDir(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		for _, r := range results {
			switch {
			case r.Err != "":
				printError("%s: %s", r.File, r.Err)
			case r.SiteName != "":
				printSuccess("%s -> %s", r.File, r.SiteName)
			default:
				printWarning("%s uploaded, no matching catalog entry", r.File)
			}
		}
		return nil
	},
}

var screenshotsGenerateCmd = &cobra.Command{
	Use:   "generate [site-id]",
	Short: "Queue preview capture for one site or the whole catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]string{}
		if len(args) == 1 {
			req["site_id"] = args[0]
		}

		resp, err := client.post("/previews/generate", req)
		if err != nil {
			return err
		}

		var result struct {
			Jobs int `json:"jobs"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Queued %d capture job(s)", result.Jobs)
		return nil
	},
}

func init() {
	screenshotsCmd.AddCommand(screenshotsUploadCmd)
	screenshotsCmd.AddCommand(screenshotsGenerateCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
