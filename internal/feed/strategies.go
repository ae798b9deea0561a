package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	securitynet "glassdash/internal/security/netutil"

	"github.com/mmcdole/gofeed"
)

const (
	DefaultRSS2JSONEndpoint   = "https://api.rss2json.com/v1/api.json"
	DefaultAllOriginsEndpoint = "https://api.allorigins.win/get"

	maxFeedBytes = 5 << 20
	userAgent    = "GlassDash/1.0"
)

// NewHTTPClient returns the client the strategies use by default.
func NewHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	return newHTTPClient(timeout, dialer, http.ProxyFromEnvironment, limitRedirects)
}

// NewGuardedHTTPClient is for servers fetching user-supplied URLs. Every
// connection and every redirect hop to a private address is refused. It
// ignores proxy settings since a proxy would dial on its behalf.
func NewGuardedHTTPClient(timeout time.Duration) *http.Client {
	return newHTTPClient(timeout, securitynet.NewDialer(10*time.Second), nil, securitynet.GuardRedirects(limitRedirects))
}

func newHTTPClient(timeout time.Duration, dialer *net.Dialer, proxy func(*http.Request) (*url.URL, error), checkRedirect func(*http.Request, []*http.Request) error) *http.Client {
	transport := &http.Transport{
		Proxy:                 proxy,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: transport, CheckRedirect: checkRedirect}
}

func limitRedirects(req *http.Request, via []*http.Request) error {
	if len(via) >= 5 {
		return fmt.Errorf("stopped after 5 redirects")
	}
	return nil
}

// RSS2JSON asks a feed-to-JSON conversion service for the feed.
type RSS2JSON struct {
	Endpoint string
	Client   *http.Client
}

func (s RSS2JSON) Name() string { return "rss2json" }

func (s RSS2JSON) Fetch(ctx context.Context, feedURL string) ([]Item, error) {
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultRSS2JSONEndpoint
	}
	var payload struct {
		Status string `json:"status"`
		Items  []struct {
			Title       string `json:"title"`
			Link        string `json:"link"`
			PubDate     string `json:"pubDate"`
			Description string `json:"description"`
		} `json:"items"`
	}
	if err := getJSON(ctx, s.Client, endpoint+"?rss_url="+url.QueryEscape(feedURL), &payload); err != nil {
		return nil, err
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("rss2json status %q", payload.Status)
	}

	items := make([]Item, 0, min(len(payload.Items), MaxItems))
	for _, it := range payload.Items {
		if len(items) == MaxItems {
			break
		}
		items = append(items, Item{
			Title:       it.Title,
			Link:        it.Link,
			PubDate:     it.PubDate,
			Description: Summarize(it.Description),
		})
	}
	return items, nil
}

// AllOrigins fetches the raw feed through a CORS proxy that wraps it in JSON.
type AllOrigins struct {
	Endpoint string
	Client   *http.Client
}

func (s AllOrigins) Name() string { return "allorigins" }

func (s AllOrigins) Fetch(ctx context.Context, feedURL string) ([]Item, error) {
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultAllOriginsEndpoint
	}
	var payload struct {
		Contents string `json:"contents"`
	}
	if err := getJSON(ctx, s.Client, endpoint+"?url="+url.QueryEscape(feedURL), &payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.Contents) == "" {
		return nil, fmt.Errorf("allorigins returned no contents")
	}
	return parseFeed(strings.NewReader(payload.Contents))
}

// Direct downloads the feed itself. Destinations in private ranges are
// refused unless AllowPrivate is set, including ones reached by redirect;
// loopback is always allowed.
type Direct struct {
	Client       *http.Client
	AllowPrivate bool
}

func (s Direct) Name() string { return "direct" }

func (s Direct) Fetch(ctx context.Context, feedURL string) ([]Item, error) {
	u, err := ParseFeedURL(feedURL)
	if err != nil {
		return nil, err
	}
	if !s.AllowPrivate {
		if err := securitynet.CheckURL(ctx, u); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	c := *client(s.Client)
	if !s.AllowPrivate {
		c.CheckRedirect = securitynet.GuardRedirects(c.CheckRedirect)
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status %d", resp.StatusCode)
	}
	return parseFeed(io.LimitReader(resp.Body, maxFeedBytes))
}

func parseFeed(r io.Reader) ([]Item, error) {
	parsed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAFeed, err)
	}
	if parsed == nil {
		return nil, fmt.Errorf("%w: empty document", ErrNotAFeed)
	}

	items := make([]Item, 0, min(len(parsed.Items), MaxItems))
	for _, it := range parsed.Items {
		if len(items) == MaxItems {
			break
		}
		item := Item{
			Title:       it.Title,
			Link:        it.Link,
			PubDate:     it.Published,
			Description: it.Description,
		}
		if item.Title == "" {
			item.Title = "No Title"
		}
		if item.Link == "" {
			item.Link = "#"
		}
		if item.PubDate == "" {
			item.PubDate = it.Updated
		}
		if item.Description == "" {
			item.Description = it.Content
		}
		item.Description = Summarize(item.Description)
		items = append(items, item)
	}
	return items, nil
}

func getJSON(ctx context.Context, c *http.Client, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client(c).Do(req)
	if err != nil {
		return fmt.Errorf("error fetching %s: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected response status %d from %s", resp.StatusCode, req.URL.Host)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFeedBytes)).Decode(v); err != nil {
		return fmt.Errorf("error decoding response from %s: %w", req.URL.Host, err)
	}
	return nil
}

var defaultClient = NewHTTPClient(15 * time.Second)

func client(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return defaultClient
}

// ClientStrategies is the chain a browser-like client uses: the conversion
// service first, the CORS proxy as fallback.
func ClientStrategies(c *http.Client) []Strategy {
	return []Strategy{RSS2JSON{Client: c}, AllOrigins{Client: c}}
}

// ServerStrategies tries a direct fetch before falling back to the hosted
// services.
func ServerStrategies(c *http.Client) []Strategy {
	return []Strategy{Direct{Client: c}, RSS2JSON{Client: c}, AllOrigins{Client: c}}
}
