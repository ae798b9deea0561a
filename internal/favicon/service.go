package favicon

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	securitynet "glassdash/internal/security/netutil"

	"golang.org/x/net/html"
)

// ServiceURL is the public favicon-by-domain service the dashboard points at.
const ServiceURL = "https://www.google.com/s2/favicons"

const (
	maxIconBytes = 1 << 20
	failureTTL   = time.Hour
)

var (
	ErrInvalidHost = errors.New("invalid host")
	ErrNotFound    = errors.New("no favicon found")
	ErrNotAnImage  = errors.New("response is not an image")
)

// URLFor returns the favicon service URL for the host of linkURL, or "" when
// linkURL has no parsable host.
func URLFor(linkURL string) string {
	u, err := url.Parse(linkURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return fmt.Sprintf("%s?domain=%s&sz=128", ServiceURL, u.Hostname())
}

// Icon is a favicon image.
type Icon struct {
	Data        []byte
	ContentType string
}

// Service fetches favicons server side and keeps them on disk.
type Service struct {
	client      *http.Client
	storageDir  string
	logger      *log.Logger
	serviceURL  string
	siteScheme  string
	failedHosts sync.Map // host -> time of failure
	now         func() time.Time
}

func NewService(storageDir string, logger *log.Logger) (*Service, error) {
	if err := os.MkdirAll(storageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create favicon storage directory: %w", err)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		client: &http.Client{
			Timeout:       10 * time.Second,
			Transport:     &http.Transport{DialContext: securitynet.NewDialer(5 * time.Second).DialContext},
			CheckRedirect: securitynet.GuardRedirects(nil),
		},
		storageDir: storageDir,
		logger:     logger,
		serviceURL: ServiceURL,
		siteScheme: "https",
		now:        time.Now,
	}, nil
}

// WithEndpoints points the service at another favicon service and site
// scheme. An empty serviceURL skips the service and goes straight to the site.
func (s *Service) WithEndpoints(serviceURL, siteScheme string) *Service {
	s.serviceURL = serviceURL
	s.siteScheme = siteScheme
	return s
}

// NormalizeHost lowercases host and rejects anything that is not a bare
// hostname (optionally with a port).
func NormalizeHost(host string) (string, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" || strings.ContainsAny(host, "/\\?#@ ") {
		return "", fmt.Errorf("%w: %q", ErrInvalidHost, host)
	}
	u, err := url.Parse("http://" + host)
	if err != nil || u.Host != host {
		return "", fmt.Errorf("%w: %q", ErrInvalidHost, host)
	}
	return host, nil
}

// Get returns the favicon for host, from disk if it was fetched before.
func (s *Service) Get(ctx context.Context, host string) (Icon, error) {
	host, err := NormalizeHost(host)
	if err != nil {
		return Icon{}, err
	}

	if failedAt, failed := s.failedHosts.Load(host); failed {
		if s.now().Sub(failedAt.(time.Time)) < failureTTL {
			return Icon{}, ErrNotFound
		}
		s.failedHosts.Delete(host)
	}

	path := s.cachePath(host)
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		if ct, err := imageType(data); err == nil {
			return Icon{Data: data, ContentType: ct}, nil
		}
		os.Remove(path)
	}

	methods := []func(context.Context, string) ([]byte, error){
		s.getFaviconFromService,
		s.getFaviconFromHTML,
		s.getFaviconFromRoot,
	}

	var lastError error
	for _, method := range methods {
		data, err := method(ctx, host)
		if err == nil && len(data) > 0 {
			var ct string
			if ct, err = imageType(data); err == nil {
				if err := os.WriteFile(path, data, 0644); err != nil {
					s.logger.Printf("Failed to cache favicon for %s: %v", host, err)
				}
				return Icon{Data: data, ContentType: ct}, nil
			}
		}
		if err != nil {
			lastError = err
		}
	}

	if ctx.Err() == nil {
		s.failedHosts.Store(host, s.now())
	}
	if lastError != nil {
		return Icon{}, fmt.Errorf("%w for %s: %v", ErrNotFound, host, lastError)
	}
	return Icon{}, fmt.Errorf("%w for %s", ErrNotFound, host)
}

func (s *Service) cachePath(host string) string {
	hash := sha256.Sum256([]byte(host))
	return filepath.Join(s.storageDir, hex.EncodeToString(hash[:8])+".ico")
}

func (s *Service) getFaviconFromService(ctx context.Context, host string) ([]byte, error) {
	if s.serviceURL == "" {
		return nil, errors.New("favicon service disabled")
	}
	return s.downloadFavicon(ctx, fmt.Sprintf("%s?domain=%s&sz=128", s.serviceURL, url.QueryEscape(host)))
}

func (s *Service) getFaviconFromHTML(ctx context.Context, host string) ([]byte, error) {
	siteURL := s.siteScheme + "://" + host + "/"
	if err := securitynet.CheckHost(ctx, nil, hostname(host)); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, siteURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("got status %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, err
	}

	faviconURL := findIconHref(doc)
	if faviconURL == "" {
		return nil, fmt.Errorf("no favicon found in HTML")
	}

	base, err := url.Parse(siteURL)
	if err != nil {
		return nil, err
	}
	resolved, err := base.Parse(faviconURL)
	if err != nil {
		return nil, err
	}
	if err := securitynet.CheckURL(ctx, resolved); err != nil {
		return nil, err
	}
	return s.downloadFavicon(ctx, resolved.String())
}

func (s *Service) getFaviconFromRoot(ctx context.Context, host string) ([]byte, error) {
	if err := securitynet.CheckHost(ctx, nil, hostname(host)); err != nil {
		return nil, err
	}
	return s.downloadFavicon(ctx, s.siteScheme+"://"+host+"/favicon.ico")
}

func (s *Service) downloadFavicon(ctx context.Context, iconURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, iconURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("got status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxIconBytes))
}

// findIconHref returns the href of the first <link rel="icon"> style element.
func findIconHref(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "link" {
		var rel, href string
		for _, a := range n.Attr {
			switch a.Key {
			case "rel":
				rel = strings.ToLower(a.Val)
			case "href":
				href = a.Val
			}
		}
		if (rel == "icon" || rel == "shortcut icon" || rel == "apple-touch-icon") && href != "" {
			return href
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href := findIconHref(c); href != "" {
			return href
		}
	}
	return ""
}

func hostname(host string) string {
	u, err := url.Parse("http://" + host)
	if err != nil {
		return host
	}
	return u.Hostname()
}

// imageType sniffs data and accepts only image content types.
func imageType(data []byte) (string, error) {
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotAnImage, ct)
	}
	return ct, nil
}
