package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"glassdash/internal/config"
	"glassdash/internal/favicon"
	"glassdash/internal/feed"
	"glassdash/internal/logging"
	"glassdash/internal/server"
	"glassdash/internal/settings"
	"glassdash/internal/store"
)

var (
	// Version will be set during build
	Version = "dev"

	// Command line flags
	port      = flag.Int("port", 0, "Port to run the server on (default: 80 or PORT/GLASSDASH_PORT)")
	dataPath  = flag.String("data", "", "Path to data directory (default: data or GLASSDASH_DATA_PATH)")
	storeKind = flag.String("store", "", "Settings store backend: file or sqlite (default: file or GLASSDASH_STORE)")
	logFile   = flag.String("log-file", "", "Also write logs to this file, rotated (default: GLASSDASH_LOG_FILE)")
	version   = flag.Bool("version", false, "Print version information")
	prodMode  = flag.Bool("prod", false, "Enable production mode (quieter logging)")
)

const (
	feedCacheTTL       = 5 * time.Minute
	feedUpdateInterval = 15 * time.Minute
	shutdownTimeout    = 10 * time.Second
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("GlassDash version %s\n", Version)
		return
	}

	// Get base configuration from environment
	cfg := config.GetConfig()

	// Override with command line flags if provided
	if *port > 0 {
		cfg.Port = *port
	}
	if *dataPath != "" {
		cfg.DataPath = *dataPath
	}
	if *storeKind != "" {
		cfg.Store = *storeKind
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}
	if *prodMode {
		cfg.ProductionMode = true
	}

	logger, logCloser := logging.New("glassdash: ", cfg.LogFile, os.Stdout)
	defer logCloser.Close()

	storePath := store.DefaultPath(cfg.Store, cfg.DataPath)
	logger.Printf("Starting GlassDash v%s", Version)
	logger.Printf("Port: %d", cfg.Port)
	logger.Printf("Store: %s (%s)", cfg.Store, storePath)
	logger.Printf("Mode: %s", map[bool]string{true: "production", false: "development"}[cfg.ProductionMode])

	// Create necessary directories
	if err := os.MkdirAll(cfg.DataPath, 0755); err != nil {
		logger.Fatalf("Failed to create data directory: %v", err)
	}

	fallback, err := settings.Encode(settings.ServerDefaults())
	if err != nil {
		logger.Fatalf("Failed to encode default settings: %v", err)
	}
	st, err := store.Open(cfg.Store, store.Options{
		Path:     storePath,
		Fallback: fallback,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatalf("Failed to open settings store: %v", err)
	}
	defer st.Close()

	// Pick up hand edits of settings.json
	if fs, ok := st.(*store.FileStore); ok {
		if err := fs.Start(); err != nil {
			logger.Printf("File watcher disabled: %v", err)
		}
	}

	faviconSvc, err := favicon.NewService(filepath.Join(cfg.DataPath, "favicons"), logger)
	if err != nil {
		logger.Fatalf("Failed to initialize favicon service: %v", err)
	}

	fetcher := feed.NewFetcher(logger, feedCacheTTL, feed.ServerStrategies(feed.NewGuardedHTTPClient(15*time.Second))...)
	feedService := feed.NewService(fetcher, logger, feedUpdateInterval)
	feedService.Start()
	defer feedService.Stop()

	srv, err := server.NewServer(st, logger, feedService, faviconSvc, server.Config{
		ProductionMode: cfg.ProductionMode,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Start(cfg.GetAddress())
	}()

	select {
	case err := <-errc:
		if err != nil {
			logger.Printf("Server error: %v", err)
		}
	case <-ctx.Done():
		logger.Printf("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	}
}
