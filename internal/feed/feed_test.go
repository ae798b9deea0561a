package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	securitynet "glassdash/internal/security/netutil"

	"github.com/google/go-cmp/cmp"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Sample RSS Feed</title>
	<link>http://example.com/rss</link>
	<description>This is a sample RSS feed.</description>
	<item>
		<title>RSS Entry 1</title>
		<link>http://example.com/rss/entry1</link>
		<pubDate>Mon, 01 Jan 2023 10:00:00 +0000</pubDate>
		<description>&lt;p&gt;Description for &lt;b&gt;RSS Entry 1&lt;/b&gt;&lt;/p&gt;</description>
	</item>
	<item>
		<link>http://example.com/rss/entry2</link>
		<pubDate>Tue, 02 Jan 2023 11:00:00 +0000</pubDate>
		<description>Description for RSS Entry 2</description>
	</item>
</channel>
</rss>`

func testLogger() *log.Logger {
	return log.New(os.Stderr, "feed-test: ", log.LstdFlags)
}

// stubStrategy returns fixed items and counts how often it ran.
type stubStrategy struct {
	name  string
	items []Item
	err   error
	calls atomic.Int32
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Fetch(ctx context.Context, feedURL string) ([]Item, error) {
	s.calls.Add(1)
	return s.items, s.err
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hello  world", "Hello world"},
		{"markup", "<p>Hello <b>world</b></p>", "Hello world"},
		{"entities", "Fish &amp; chips", "Fish & chips"},
		{"script dropped", "<script>alert(1)</script>Safe", "Safe"},
		{"long", strings.Repeat("a", 200), strings.Repeat("a", 150) + "..."},
		{"exactly limit", strings.Repeat("é", 150), strings.Repeat("é", 150)},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.in); got != tt.want {
				t.Errorf("Summarize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRSS2JSON(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("rss_url")
		items := make([]map[string]string, 8)
		for i := range items {
			items[i] = map[string]string{
				"title":       fmt.Sprintf("Item %d", i),
				"link":        fmt.Sprintf("https://news.example/%d", i),
				"pubDate":     "2024-05-01 10:00:00",
				"description": "<p>" + strings.Repeat("x", 160) + "</p>",
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "ok", "items": items})
	}))
	defer srv.Close()

	items, err := RSS2JSON{Endpoint: srv.URL, Client: srv.Client()}.Fetch(context.Background(), "https://feeds.example/rss?a=b")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotQuery != "https://feeds.example/rss?a=b" {
		t.Errorf("rss_url = %q", gotQuery)
	}
	if len(items) != MaxItems {
		t.Fatalf("got %d items, want %d", len(items), MaxItems)
	}
	if items[0].Description != strings.Repeat("x", 150)+"..." {
		t.Errorf("description not summarized: %q", items[0].Description)
	}
}

func TestRSS2JSON_StatusNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","message":"bad feed"}`))
	}))
	defer srv.Close()

	if _, err := (RSS2JSON{Endpoint: srv.URL, Client: srv.Client()}).Fetch(context.Background(), "https://x"); err == nil {
		t.Error("expected an error for status != ok")
	}
}

func TestAllOrigins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("url") == "" {
			http.Error(w, "missing url", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"contents": sampleRSS})
	}))
	defer srv.Close()

	items, err := AllOrigins{Endpoint: srv.URL, Client: srv.Client()}.Fetch(context.Background(), "https://feeds.example/rss")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := []Item{
		{Title: "RSS Entry 1", Link: "http://example.com/rss/entry1", PubDate: "Mon, 01 Jan 2023 10:00:00 +0000", Description: "Description for RSS Entry 1"},
		{Title: "No Title", Link: "http://example.com/rss/entry2", PubDate: "Tue, 02 Jan 2023 11:00:00 +0000", Description: "Description for RSS Entry 2"},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	items, err := Direct{Client: srv.Client()}.Fetch(context.Background(), srv.URL+"/feed.xml")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 2 || items[0].Title != "RSS Entry 1" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestDirect_RejectsPrivateAndNonFeeds(t *testing.T) {
	ctx := context.Background()
	if _, err := (Direct{}).Fetch(ctx, "http://10.0.0.1/feed"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL for private address, got %v", err)
	}
	if _, err := (Direct{}).Fetch(ctx, "ftp://example.com/feed"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL for ftp, got %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("This is not XML content at all."))
	}))
	defer srv.Close()
	if _, err := (Direct{Client: srv.Client()}).Fetch(ctx, srv.URL); !errors.Is(err, ErrNotAFeed) {
		t.Errorf("expected ErrNotAFeed, got %v", err)
	}
}

func TestDirect_RedirectsAreChecked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/moved.xml":
			http.Redirect(w, r, "/feed.xml", http.StatusMovedPermanently)
		case "/feed.xml":
			w.Write([]byte(sampleRSS))
		default:
			http.Redirect(w, r, "http://10.255.255.1/internal.xml", http.StatusFound)
		}
	}))
	defer srv.Close()

	clients := map[string]*http.Client{
		"caller client":  srv.Client(),
		"guarded client": NewGuardedHTTPClient(5 * time.Second),
	}
	for name, c := range clients {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := (Direct{Client: c}).Fetch(ctx, srv.URL+"/moved.xml"); err != nil {
				t.Errorf("redirect within loopback: %v", err)
			}
			_, err := (Direct{Client: c}).Fetch(ctx, srv.URL+"/private")
			if !errors.Is(err, securitynet.ErrPrivateAddress) {
				t.Errorf("expected ErrPrivateAddress, got %v", err)
			}
		})
	}
}

func TestFetcher_FallsBackWhenPrimaryEmpty(t *testing.T) {
	primary := &stubStrategy{name: "primary"}
	fallback := &stubStrategy{name: "fallback", items: []Item{{Title: "From fallback", Link: "#"}}}
	f := NewFetcher(testLogger(), DefaultCacheTTL, primary, fallback)

	result, err := f.Fetch(context.Background(), "https://feeds.example/rss")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if primary.calls.Load() != 1 || fallback.calls.Load() != 1 {
		t.Errorf("calls: primary=%d fallback=%d", primary.calls.Load(), fallback.calls.Load())
	}
	if result.Source != "fallback" || len(result.Items) != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestFetcher_FallsBackOnError(t *testing.T) {
	primary := &stubStrategy{name: "primary", err: errors.New("boom")}
	fallback := &stubStrategy{name: "fallback", items: []Item{{Title: "ok"}}}
	f := NewFetcher(testLogger(), 0, primary, fallback)

	result, err := f.Fetch(context.Background(), "https://feeds.example/rss")
	if err != nil || result.Source != "fallback" {
		t.Fatalf("Fetch = %+v, %v", result, err)
	}
}

func TestFetcher_AllFail(t *testing.T) {
	f := NewFetcher(testLogger(), DefaultCacheTTL,
		&stubStrategy{name: "a", err: errors.New("down")},
		&stubStrategy{name: "b"},
	)
	if _, err := f.Fetch(context.Background(), "https://feeds.example/rss"); !errors.Is(err, ErrNoItems) {
		t.Errorf("expected ErrNoItems, got %v", err)
	}
	if _, err := f.Fetch(context.Background(), "  "); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL for empty URL, got %v", err)
	}
}

func TestFetcher_Cache(t *testing.T) {
	s := &stubStrategy{name: "only", items: []Item{{Title: "cached"}}}
	f := NewFetcher(testLogger(), time.Minute, s)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.Fetch(ctx, "https://feeds.example/rss"); err != nil {
			t.Fatalf("Fetch: %v", err)
		}
	}
	if s.calls.Load() != 1 {
		t.Errorf("strategy ran %d times, want 1 while cached", s.calls.Load())
	}

	now = now.Add(2 * time.Minute)
	if _, err := f.Fetch(ctx, "https://feeds.example/rss"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if s.calls.Load() != 2 {
		t.Errorf("expired entry was not refetched")
	}

	f.Invalidate("https://feeds.example/rss")
	f.Fetch(ctx, "https://feeds.example/rss")
	if s.calls.Load() != 3 {
		t.Errorf("Invalidate did not drop the cache entry")
	}
}

func TestFetcher_CapsItems(t *testing.T) {
	many := make([]Item, 10)
	f := NewFetcher(testLogger(), 0, &stubStrategy{name: "many", items: many})
	result, err := f.Fetch(context.Background(), "https://feeds.example/rss")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(result.Items) != MaxItems {
		t.Errorf("got %d items, want %d", len(result.Items), MaxItems)
	}
}

func TestService_RefreshesWatchedFeeds(t *testing.T) {
	s := &stubStrategy{name: "only", items: []Item{{Title: "x"}}}
	svc := NewService(NewFetcher(testLogger(), time.Hour, s), testLogger(), time.Hour)
	ctx := context.Background()

	if _, err := svc.Items(ctx, "https://feeds.example/rss"); err != nil {
		t.Fatalf("Items: %v", err)
	}
	svc.RefreshAll(ctx)
	if s.calls.Load() != 2 {
		t.Errorf("strategy ran %d times, want 2 (initial + refresh)", s.calls.Load())
	}

	svc.Start()
	svc.Stop()
	svc.Stop()
}

func TestParseFeedURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "ftp://example.com/feed", "https://"} {
		if _, err := ParseFeedURL(raw); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("ParseFeedURL(%q): expected ErrInvalidURL, got %v", raw, err)
		}
	}
	if _, err := ParseFeedURL(" https://feeds.bbci.co.uk/news/world/rss.xml "); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
