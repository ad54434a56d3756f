package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/muahib/showcase/internal/api"
	"github.com/muahib/showcase/internal/capture"
	"github.com/muahib/showcase/internal/chat"
	"github.com/muahib/showcase/internal/config"
	"github.com/muahib/showcase/internal/preview"
	"github.com/muahib/showcase/internal/search"
	"github.com/muahib/showcase/internal/storage"
	"github.com/muahib/showcase/internal/webmeta"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the showcase server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running showcase server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show showcase system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "showcase.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "showcase version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	apiToken := cfg.Server.APIToken
	if apiToken == "" {
		apiToken, err = config.GetAPIToken(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("initializing API token: %w", err)
		}
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("showcase is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("showcase is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Seed the search engine from the catalog.
	sites, err := store.ListSites()
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	engine := search.NewEngine(sites)
	slog.Info("catalog loaded", "sites", len(sites))

	// Preview cache and acquisition over the shared kv store.
	kv := store.KV()
	cache := preview.NewCache(kv,
		preview.WithExpiryHours(cfg.Cache.ExpiryHours),
		preview.WithMaxSize(cfg.Cache.MaxSize),
	)
	shots := preview.NewScreenshotClient(
		cfg.Screenshot.BaseURL,
		cfg.Screenshot.AccessKey,
		cfg.Screenshot.SecretKey,
		preview.DefaultScreenshotOptions(),
	)
	fetcher := preview.NewFetcher(cache, shots)

	// Chatbot: remote completion when a key is configured, canned otherwise.
	var completer chat.Completer
	if cfg.Chat.APIKey != "" {
		completer = chat.NewClientWithBaseURL(cfg.Chat.APIKey, cfg.Chat.BaseURL).WithModel(cfg.Chat.Model)
		slog.Info("chat completion enabled", "model", cfg.Chat.Model)
	} else {
		slog.Info("no chat API key configured, serving canned responses")
	}
	responder := chat.NewResponder(chat.NewHistory(kv), completer)

	// Build HTTP handler and server.
	handler := api.NewAppHandler(api.AppDeps{
		Store:     store,
		Engine:    engine,
		Responder: responder,
		Cache:     cache,
		Fetcher:   fetcher,
		Meta:      webmeta.NewExtractor(),
		Token:     apiToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Start preview capture worker.
	worker := capture.NewWorker(store, fetcher, 500*time.Millisecond)
	go worker.Run(ctx)

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:  store,
		Engine: engine,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "showcase listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("showcase is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop showcase (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to showcase (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	// Check server health.
	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	running := false
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if cfg.Screenshot.AccessKey != "" {
		printStatus("Screenshots", "enabled (%s)", cfg.Screenshot.BaseURL)
	} else {
		printStatus("Screenshots", "disabled (iframe probe only)")
	}
	if cfg.Chat.APIKey != "" {
		printStatus("Chat model", "%s", cfg.Chat.Model)
	} else {
		printStatus("Chat model", "canned responses only")
	}

	// Show catalog and cache counts if the server is running.
	if running {
		if apiClient, err := newAPIClient(); err == nil {
			if siteResp, err := apiClient.get("/sites"); err == nil {
				var sites []struct {
					ID string `json:"id"`
				}
				if decodeJSON(siteResp, &sites) == nil {
					printStatus("Sites", "%d", len(sites))
				}
			}
			if statsResp, err := apiClient.get("/cache/stats"); err == nil {
				var stats struct {
					Count int    `json:"count"`
					Size  string `json:"size"`
				}
				if decodeJSON(statsResp, &stats) == nil {
					printStatus("Preview cache", "%d entries (%s)", stats.Count, stats.Size)
				}
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
