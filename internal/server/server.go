package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"sync"
	"time"

	"glassdash/internal/favicon"
	"glassdash/internal/feed"
	"glassdash/internal/settings"
	"glassdash/internal/store"
)

//go:embed web
var rawContent embed.FS

// webContent holds the virtual filesystem for the dashboard bundle.
var webContent fs.FS

func init() {
	var err error
	webContent, err = fs.Sub(rawContent, "web")
	if err != nil {
		panic(fmt.Sprintf("failed to create virtual filesystem for web content: %v", err))
	}
}

const maxSettingsBytes = 1 << 20

type Config struct {
	ProductionMode bool
	// WebFS overrides the embedded bundle, mostly for tests.
	WebFS fs.FS
}

type Server struct {
	store    store.Store
	logger   *log.Logger
	feeds    *feed.Service
	favicons *favicon.Service
	config   Config
	web      fs.FS

	mu   sync.Mutex
	http *http.Server
}

// NewServer wires the handlers to st and seeds the default document if the
// store is empty. feeds and favicons may be nil, which disables their routes.
func NewServer(st store.Store, logger *log.Logger, feeds *feed.Service, favicons *favicon.Service, config Config) (*Server, error) {
	s := &Server{
		store:    st,
		logger:   logger,
		feeds:    feeds,
		favicons: favicons,
		config:   config,
		web:      config.WebFS,
	}
	if s.web == nil {
		s.web = webContent
	}
	if _, err := fs.Stat(s.web, "index.html"); err != nil {
		return nil, fmt.Errorf("web bundle has no index.html: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.seed(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed settings: %w", err)
	}

	if !s.config.ProductionMode {
		s.logger.Printf("Server initialized successfully")
	}
	return s, nil
}

func (s *Server) seed(ctx context.Context) error {
	body, err := settings.Encode(settings.ServerDefaults())
	if err != nil {
		return err
	}
	seeded, err := s.store.Seed(ctx, body)
	if err != nil {
		return err
	}
	if seeded {
		s.logger.Printf("Created default settings document")
	} else if !s.config.ProductionMode {
		s.logger.Printf("Using existing settings document")
	}
	return nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("POST /api/settings", s.handleSaveSettings)
	mux.HandleFunc("GET /api/feed", s.handleFeed)
	mux.HandleFunc("GET /api/favicon", s.handleFavicon)
	mux.HandleFunc("/api/", s.handleAPINotFound)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("/", s.handleSPA)

	return recoverMiddleware(s.logger, loggingMiddleware(s.logger, gzipMiddleware(mux)))
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	s.logger.Printf("Starting server on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
