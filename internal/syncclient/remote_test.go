package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"glassdash/internal/server"
	"glassdash/internal/settings"
	"glassdash/internal/store"
)

func TestHTTPRemote_FetchBustsCaches(t *testing.T) {
	var gotQuery, gotCacheControl, gotPragma string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/settings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("_t")
		gotCacheControl = r.Header.Get("Cache-Control")
		gotPragma = r.Header.Get("Pragma")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"themeId":"forest","links":[{"id":"1","title":"A","url":"https://a.example"}]}`)
	}))
	defer srv.Close()

	remote := NewHTTPRemote(srv.URL + "/")
	remote.Now = func() time.Time { return time.UnixMilli(1700000000123) }

	doc, err := remote.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotQuery != "1700000000123" {
		t.Errorf("_t = %q", gotQuery)
	}
	if gotCacheControl != "no-cache" || gotPragma != "no-cache" {
		t.Errorf("cache headers = %q / %q", gotCacheControl, gotPragma)
	}
	if doc.ThemeID != "forest" || len(doc.Links) != 1 {
		t.Errorf("doc = %+v", doc)
	}
	// absent fields come from the client defaults
	if doc.ViewMode != settings.ViewRegular || !doc.ShowRSS || doc.RSSURL != settings.DefaultRSSURL {
		t.Errorf("defaults not applied: %+v", doc)
	}
}

func TestHTTPRemote_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	remote := NewHTTPRemote(srv.URL)
	if _, err := remote.Fetch(context.Background()); !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("Fetch error = %v", err)
	}
	if err := remote.Save(context.Background(), settings.ServerDefaults()); !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("Save error = %v", err)
	}
}

func TestHTTPRemote_SaveSendsWholeDocument(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()

	if err := NewHTTPRemote(srv.URL).Save(context.Background(), settings.ServerDefaults()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, key := range []string{"themeId", "viewMode", "showRss", "rssUrl", "links", "carouselPage"} {
		if _, ok := got[key]; !ok {
			t.Errorf("saved body missing %q", key)
		}
	}
}

// Two clients against a real server: a change made by one shows up in the
// other after its next poll.
func TestTwoClientsConverge(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	st, err := store.NewFileStore(store.Options{Path: filepath.Join(t.TempDir(), "settings.json"), Logger: logger})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer st.Close()

	s, err := server.NewServer(st, logger, nil, nil, server.Config{})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	ctx := context.Background()
	a := New(NewHTTPRemote(srv.URL), Options{PollInterval: time.Hour})
	b := New(NewHTTPRemote(srv.URL), Options{PollInterval: time.Hour})
	for _, c := range []*Client{a, b} {
		if err := c.Start(ctx); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}
	if got := len(a.State().Document.Links); got != 5 {
		t.Fatalf("seeded document has %d links, want 5", got)
	}

	runClient(t, a)
	if err := a.SetTheme("midnight"); err != nil {
		t.Fatalf("SetTheme: %v", err)
	}
	if err := a.RemoveLink("2"); err != nil {
		t.Fatalf("RemoveLink: %v", err)
	}
	waitIdle(t, a)

	if err := b.Poll(ctx); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	doc := b.State().Document
	if doc.ThemeID != "midnight" || len(doc.Links) != 4 {
		t.Errorf("second client sees theme=%s links=%d", doc.ThemeID, len(doc.Links))
	}
	if !settings.Equal(doc, a.State().Document) {
		t.Error("clients did not converge")
	}
}

// Fields written by another client survive this client's writes.
func TestUnknownFieldsKeptAcrossWrites(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	st, err := store.NewFileStore(store.Options{Path: filepath.Join(t.TempDir(), "settings.json"), Logger: logger})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer st.Close()

	s, err := server.NewServer(st, logger, nil, nil, server.Config{})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	other := `{"themeId":"forest","viewMode":"large","showRss":false,"rssUrl":"","links":[],"carouselPage":0,"weatherCity":"Oslo"}`
	resp, err := http.Post(srv.URL+"/api/settings", "application/json", strings.NewReader(other))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()

	c := New(NewHTTPRemote(srv.URL), Options{PollInterval: time.Hour})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	runClient(t, c)
	if err := c.SetTheme("aurora"); err != nil {
		t.Fatalf("SetTheme: %v", err)
	}
	waitIdle(t, c)

	snap, err := st.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	var stored map[string]any
	if err := json.Unmarshal(snap.Body, &stored); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if stored["themeId"] != "aurora" {
		t.Errorf("themeId = %v, want aurora", stored["themeId"])
	}
	if stored["weatherCity"] != "Oslo" {
		t.Errorf("weatherCity = %v, want it kept", stored["weatherCity"])
	}
}
