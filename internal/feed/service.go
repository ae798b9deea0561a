package feed

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	defaultRefreshInterval = 15 * time.Minute
	refreshConcurrency     = 4

	// Feeds nobody asked for within this window stop being refreshed.
	watchWindow = 24 * time.Hour
)

// Service keeps the feeds dashboards ask for warm: every URL requested through
// Items is refreshed in the background so the next request is served from
// cache.
type Service struct {
	fetcher  *Fetcher
	logger   *log.Logger
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	watched map[string]time.Time
}

func NewService(fetcher *Fetcher, logger *log.Logger, interval time.Duration) *Service {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	return &Service{
		fetcher:  fetcher,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
		watched:  make(map[string]time.Time),
	}
}

func (s *Service) Start() {
	go s.updateLoop()
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Items returns the items for feedURL and keeps refreshing it from now on.
func (s *Service) Items(ctx context.Context, feedURL string) (Result, error) {
	result, err := s.fetcher.Fetch(ctx, feedURL)
	if err == nil {
		s.Watch(feedURL)
	}
	return result, err
}

// Watch adds feedURL to the background refresh set.
func (s *Service) Watch(feedURL string) {
	if feedURL == "" {
		return
	}
	s.mu.Lock()
	s.watched[feedURL] = time.Now()
	s.mu.Unlock()
}

func (s *Service) updateLoop() {
	s.logger.Printf("Starting feed refresh loop (every %v)", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			s.RefreshAll(ctx)
			cancel()
		case <-s.done:
			s.logger.Printf("Feed service shutting down")
			return
		}
	}
}

// RefreshAll refetches every watched feed, dropping ones not requested recently.
func (s *Service) RefreshAll(ctx context.Context) {
	cutoff := time.Now().Add(-watchWindow)
	s.mu.Lock()
	urls := make([]string, 0, len(s.watched))
	for u, last := range s.watched {
		if last.Before(cutoff) {
			delete(s.watched, u)
			continue
		}
		urls = append(urls, u)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	sem := make(chan struct{}, refreshConcurrency)
	for _, u := range urls {
		wg.Add(1)
		sem <- struct{}{}
		go func(feedURL string) {
			defer wg.Done()
			defer func() { <-sem }()
			if _, err := s.fetcher.Refresh(ctx, feedURL); err != nil {
				s.logger.Printf("Error refreshing feed %s: %v", feedURL, err)
			}
		}(u)
	}
	wg.Wait()
}
