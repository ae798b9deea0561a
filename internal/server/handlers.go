package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"glassdash/internal/favicon"
	"glassdash/internal/feed"
	"glassdash/internal/store"
)

// VersionHeader carries the store version of a settings document. Clients may
// echo it on POST; a stale value is logged but does not block the write.
const VersionHeader = "X-Settings-Version"

func setNoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	w.Header().Set("Expires", "-1")
	w.Header().Set("Pragma", "no-cache")
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	setNoCache(w)

	snap, err := s.store.Read(r.Context())
	if err != nil {
		s.logger.Printf("Error reading settings: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to read settings")
		return
	}

	if snap.Version > 0 {
		w.Header().Set(VersionHeader, strconv.FormatInt(snap.Version, 10))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(snap.Body)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSettingsBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondWithError(w, http.StatusRequestEntityTooLarge, "Settings document too large")
			return
		}
		RespondWithError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if err := validateDocument(body); err != nil {
		if !s.config.ProductionMode {
			s.logger.Printf("Rejected settings body: %v", err)
		}
		RespondWithError(w, http.StatusBadRequest, "Invalid settings document")
		return
	}

	var snap store.Snapshot
	if observed, ok := observedVersion(r); ok {
		snap, err = store.WriteIfVersion(r.Context(), s.store, observed, body, s.logger)
	} else {
		snap, err = s.store.Write(r.Context(), body)
	}
	if err != nil {
		s.logger.Printf("Error saving settings: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	w.Header().Set(VersionHeader, strconv.FormatInt(snap.Version, 10))
	RespondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// validateDocument accepts any JSON object. Field contents are not checked.
func validateDocument(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return errors.New("empty body")
	}
	if trimmed[0] != '{' {
		return errors.New("document is not a JSON object")
	}
	if !json.Valid(trimmed) {
		return errors.New("malformed JSON")
	}
	return nil
}

func observedVersion(r *http.Request) (int64, bool) {
	raw := r.Header.Get(VersionHeader)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := s.store.Read(ctx); err != nil {
		s.logger.Printf("Health check failed: store read error: %v", err)
		http.Error(w, "Store Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if s.feeds == nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Feed service unavailable")
		return
	}
	u, err := feed.ParseFeedURL(r.URL.Query().Get("url"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid feed URL")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()
	result, err := s.feeds.Items(ctx, u.String())
	if err != nil {
		s.logger.Printf("Error fetching feed %s: %v", u, err)
		RespondWithError(w, http.StatusBadGateway, "Failed to fetch feed")
		return
	}
	w.Header().Set("Cache-Control", "private, max-age=60")
	RespondWithJSON(w, http.StatusOK, result)
}

func (s *Server) handleFavicon(w http.ResponseWriter, r *http.Request) {
	if s.favicons == nil {
		http.NotFound(w, r)
		return
	}
	host, err := favicon.NormalizeHost(r.URL.Query().Get("domain"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid domain")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	icon, err := s.favicons.Get(ctx, host)
	if err != nil {
		if !s.config.ProductionMode {
			s.logger.Printf("No favicon for %s: %v", host, err)
		}
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", icon.ContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'none'")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(icon.Data)
}

func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	RespondWithError(w, http.StatusNotFound, "Not found")
}

// handleSPA serves files from the bundle and falls back to index.html for
// every other path so client-side routes survive a reload.
func (s *Server) handleSPA(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name != "" && name != "index.html" {
		if info, err := fs.Stat(s.web, name); err == nil && !info.IsDir() {
			http.ServeFileFS(w, r, s.web, name)
			return
		}
	}

	index, err := fs.ReadFile(s.web, "index.html")
	if err != nil {
		s.logger.Printf("Error reading index.html: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(index)
	}
}
