package feed

import (
	"context"
	"errors"
)

const (
	// MaxItems is how many items the dashboard panel shows.
	MaxItems = 6
	// MaxDescription is the rune length descriptions are cut to.
	MaxDescription = 150
)

var (
	ErrNoItems    = errors.New("no feed items")
	ErrInvalidURL = errors.New("invalid feed URL")
	ErrNotAFeed   = errors.New("URL does not point to a valid feed")
)

// Item is one headline shown in the RSS panel.
type Item struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	PubDate     string `json:"pubDate,omitempty"`
	Description string `json:"description"`
}

// Strategy is one way of turning a feed URL into items. A strategy that
// yields nothing returns an empty slice or an error and the next one is tried.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, feedURL string) ([]Item, error)
}

// Result is what a Fetcher hands back for a feed URL.
type Result struct {
	URL    string `json:"url"`
	Source string `json:"source"`
	Items  []Item `json:"items"`
}
