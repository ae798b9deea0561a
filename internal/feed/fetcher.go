package feed

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a successful result is reused.
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	result  Result
	expires time.Time
}

// Fetcher runs its strategies in order and returns the first non-empty
// result. Results are cached per URL.
type Fetcher struct {
	strategies []Strategy
	logger     *log.Logger
	ttl        time.Duration
	cache      *sync.Map
	now        func() time.Time
}

func NewFetcher(logger *log.Logger, ttl time.Duration, strategies ...Strategy) *Fetcher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Fetcher{
		strategies: strategies,
		logger:     logger,
		ttl:        ttl,
		cache:      &sync.Map{},
		now:        time.Now,
	}
}

// Fetch returns cached items for feedURL or runs the strategy chain.
func (f *Fetcher) Fetch(ctx context.Context, feedURL string) (Result, error) {
	feedURL = strings.TrimSpace(feedURL)
	if feedURL == "" {
		return Result{}, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if cached, ok := f.cache.Load(feedURL); ok {
		entry := cached.(cacheEntry)
		if f.now().Before(entry.expires) {
			return entry.result, nil
		}
		f.cache.Delete(feedURL)
	}
	return f.Refresh(ctx, feedURL)
}

// Refresh bypasses the cache and runs the strategy chain.
func (f *Fetcher) Refresh(ctx context.Context, feedURL string) (Result, error) {
	for _, s := range f.strategies {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		items, err := s.Fetch(ctx, feedURL)
		if err != nil {
			f.logger.Printf("Feed strategy %s failed for %s: %v", s.Name(), feedURL, err)
			continue
		}
		if len(items) == 0 {
			f.logger.Printf("Feed strategy %s returned no items for %s, trying next", s.Name(), feedURL)
			continue
		}
		if len(items) > MaxItems {
			items = items[:MaxItems]
		}

		result := Result{URL: feedURL, Source: s.Name(), Items: items}
		if f.ttl > 0 {
			f.cache.Store(feedURL, cacheEntry{result: result, expires: f.now().Add(f.ttl)})
		}
		return result, nil
	}
	return Result{}, fmt.Errorf("%w: all fetch methods failed for %s", ErrNoItems, feedURL)
}

// Invalidate drops any cached result for feedURL.
func (f *Fetcher) Invalidate(feedURL string) {
	f.cache.Delete(strings.TrimSpace(feedURL))
}
