package syncclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"glassdash/internal/settings"
)

var ErrUnexpectedStatus = errors.New("unexpected response status")

// Remote is the settings service as seen by a client.
type Remote interface {
	Fetch(ctx context.Context) (settings.Document, error)
	Save(ctx context.Context, doc settings.Document) error
}

// HTTPRemote talks to a GlassDash server over HTTP.
type HTTPRemote struct {
	BaseURL string
	Client  *http.Client
	// Now stamps the cache-busting query parameter; defaults to time.Now.
	Now func() time.Time
}

func NewHTTPRemote(baseURL string) *HTTPRemote {
	return &HTTPRemote{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *HTTPRemote) settingsURL() string {
	return strings.TrimRight(r.BaseURL, "/") + "/api/settings"
}

func (r *HTTPRemote) client() *http.Client {
	if r.Client != nil {
		return r.Client
	}
	return http.DefaultClient
}

// Fetch reads the document, defeating any cache between client and server.
// Missing fields are filled from settings.ClientDefaults.
func (r *HTTPRemote) Fetch(ctx context.Context) (settings.Document, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	url := r.settingsURL() + "?_t=" + strconv.FormatInt(now().UnixMilli(), 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return settings.Document{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client().Do(req)
	if err != nil {
		return settings.Document{}, fmt.Errorf("error fetching settings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return settings.Document{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return settings.Document{}, fmt.Errorf("error reading settings: %w", err)
	}
	doc, err := settings.Decode(body, settings.ClientDefaults())
	if err != nil {
		return settings.Document{}, fmt.Errorf("error decoding settings: %w", err)
	}
	return doc, nil
}

// Save overwrites the server document with doc.
func (r *HTTPRemote) Save(ctx context.Context, doc settings.Document) error {
	body, err := settings.Encode(doc)
	if err != nil {
		return fmt.Errorf("error encoding settings: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.settingsURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client().Do(req)
	if err != nil {
		return fmt.Errorf("error saving settings: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}
