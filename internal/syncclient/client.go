// Package syncclient keeps a local copy of the shared settings document in
// step with the server.
//
// A Client holds two copies: the last document it believes the server has
// and the draft it shows. Local changes go to the draft at once and are
// written in the background; a poll loop pulls in changes made elsewhere.
// Nothing is locked across clients and the last write wins.
package syncclient

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"glassdash/internal/settings"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultPollInterval = 5 * time.Second
	writeTimeout        = 10 * time.Second
)

var (
	ErrNotReady       = errors.New("settings not loaded")
	ErrAlreadyEditing = errors.New("editor already open")
	ErrEditorClosed   = errors.New("editor already closed")
)

type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is what the presentation layer renders.
type State struct {
	Status   Status
	Document settings.Document
	Editing  bool
	// Err is the load failure while Status is StatusError.
	Err error
}

type Options struct {
	PollInterval time.Duration
	Logger       *log.Logger
	// Verbose also logs poll failures and page corrections.
	Verbose bool
	Now     func() time.Time
}

type Client struct {
	remote   Remote
	logger   *log.Logger
	verbose  bool
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	status    Status
	loadErr   error
	server    settings.Document
	draft     settings.Document
	editing   bool
	queued    *settings.Document
	pending   bool
	gen       uint64
	subs      map[int]func(State)
	nextSubID int

	writeCh chan struct{}

	runMu     sync.Mutex
	cancelRun context.CancelFunc
	runDone   chan struct{}
}

func New(remote Remote, opts Options) *Client {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		remote:   remote,
		logger:   opts.Logger,
		verbose:  opts.Verbose,
		interval: opts.PollInterval,
		now:      opts.Now,
		status:   StatusLoading,
		draft:    settings.ClientDefaults(),
		subs:     make(map[int]func(State)),
		writeCh:  make(chan struct{}, 1),
	}
}

func (c *Client) debugf(format string, args ...any) {
	if c.verbose {
		c.logger.Printf(format, args...)
	}
}

// State returns a copy of the current state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Client) stateLocked() State {
	return State{
		Status:   c.status,
		Document: c.draft.Clone(),
		Editing:  c.editing,
		Err:      c.loadErr,
	}
}

// Subscribe registers fn to run after every change to the draft, status or
// editing flag. The returned func removes it.
func (c *Client) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// notify must be called without c.mu held.
func (c *Client) notify() {
	c.mu.Lock()
	st := c.stateLocked()
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

// Start performs the initial load. On failure the client stays in
// StatusError until Reload succeeds; nothing retries on its own.
func (c *Client) Start(ctx context.Context) error {
	doc, err := c.remote.Fetch(ctx)

	c.mu.Lock()
	if err != nil {
		c.status = StatusError
		c.loadErr = err
		c.mu.Unlock()
		c.logger.Printf("Failed to load settings: %v", err)
		c.notify()
		return err
	}
	c.status = StatusReady
	c.loadErr = nil
	c.adoptLocked(doc)
	c.correctPageLocked()
	c.mu.Unlock()

	c.notify()
	return nil
}

// Reload is the manual recovery from StatusError.
func (c *Client) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.status = StatusLoading
	c.mu.Unlock()
	c.notify()
	return c.Start(ctx)
}

func (c *Client) adoptLocked(doc settings.Document) {
	c.server = doc.Clone()
	c.draft = doc.Clone()
}

// Poll fetches the server document and reconciles it with the local copies.
// It does nothing unless the client is ready, not editing and has no write
// outstanding. Fetch failures leave the state alone and are returned.
func (c *Client) Poll(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusReady || c.editing || c.pending {
		c.mu.Unlock()
		return nil
	}
	gen := c.gen
	c.mu.Unlock()

	fetched, err := c.remote.Fetch(ctx)
	if err != nil {
		c.debugf("Poll failed: %v", err)
		return err
	}

	c.mu.Lock()
	// a local write raced this read; the result may predate it
	if c.gen != gen || c.editing || c.pending || c.status != StatusReady {
		c.mu.Unlock()
		return nil
	}
	var changed bool
	c.server, c.draft, changed = Reconcile(c.server, c.draft, fetched)
	if changed {
		c.correctPageLocked()
	}
	c.mu.Unlock()

	if changed {
		c.debugf("Adopted settings from server")
		c.notify()
	}
	return nil
}

// Mutate applies fn to the draft at once and queues a write of the result.
func (c *Client) Mutate(fn func(*settings.Document)) error {
	c.mu.Lock()
	if c.status != StatusReady {
		c.mu.Unlock()
		return ErrNotReady
	}
	next := c.draft.Clone()
	fn(&next)
	c.draft = next
	c.enqueueLocked()
	c.correctPageLocked()
	c.mu.Unlock()

	c.notify()
	return nil
}

// correctPageLocked pulls carouselPage back into range, queueing the fix
// like any other change.
func (c *Client) correctPageLocked() {
	total := settings.TotalPages(len(c.draft.Links), settings.PageSize)
	page := settings.ClampPage(c.draft.CarouselPage, total)
	if page == c.draft.CarouselPage {
		return
	}
	c.debugf("Correcting carousel page %d -> %d", c.draft.CarouselPage, page)
	c.draft.CarouselPage = page
	c.enqueueLocked()
}

// enqueueLocked schedules a write of the current draft. Queued writes
// coalesce: only the newest draft is sent.
func (c *Client) enqueueLocked() {
	doc := c.draft.Clone()
	c.queued = &doc
	c.pending = true
	c.gen++
	select {
	case c.writeCh <- struct{}{}:
	default:
	}
}

func (c *Client) SetTheme(id string) error {
	return c.Mutate(func(d *settings.Document) { d.ThemeID = id })
}

func (c *Client) SetViewMode(m settings.ViewMode) error {
	return c.Mutate(func(d *settings.Document) { d.ViewMode = m })
}

func (c *Client) SetShowRSS(show bool) error {
	return c.Mutate(func(d *settings.Document) { d.ShowRSS = show })
}

func (c *Client) SetRSSURL(url string) error {
	return c.Mutate(func(d *settings.Document) { d.RSSURL = url })
}

// AddLink validates and appends a new link.
func (c *Client) AddLink(title, rawURL, icon string) (settings.Link, error) {
	link, err := settings.NewLink(title, rawURL, icon, c.now())
	if err != nil {
		return settings.Link{}, err
	}
	err = c.Mutate(func(d *settings.Document) { link = d.AddLink(link) })
	return link, err
}

func (c *Client) RemoveLink(id string) error {
	return c.Mutate(func(d *settings.Document) { d.RemoveLink(id) })
}

func (c *Client) MoveLink(from, to int) error {
	return c.Mutate(func(d *settings.Document) { d.Links = settings.Move(d.Links, from, to) })
}

func (c *Client) GoToPage(page int) error {
	return c.Mutate(func(d *settings.Document) { d.CarouselPage = page })
}

// Run drives polling and background writes until ctx is cancelled or Close
// is called. Writes still queued when it stops are sent before it returns.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.runMu.Lock()
	if c.cancelRun != nil {
		c.runMu.Unlock()
		cancel()
		return errors.New("syncclient: already running")
	}
	c.cancelRun = cancel
	c.runDone = done
	c.runMu.Unlock()

	defer func() {
		cancel()
		c.runMu.Lock()
		c.cancelRun = nil
		c.runMu.Unlock()
		close(done)
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.pollLoop(ctx) })
	g.Go(func() error { return c.writeLoop(ctx) })
	return g.Wait()
}

// Close stops Run and waits for it to finish.
func (c *Client) Close() {
	c.runMu.Lock()
	cancel, done := c.cancelRun, c.runDone
	c.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Client) pollLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Poll(ctx)
		}
	}
}

func (c *Client) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.flush(ctx)
			return nil
		case <-c.writeCh:
			c.flush(ctx)
		}
	}
}

// flush sends queued drafts until none is left. Writes outlive ctx so a
// shutdown does not drop the last change.
func (c *Client) flush(ctx context.Context) {
	for {
		c.mu.Lock()
		doc := c.queued
		c.queued = nil
		if doc == nil {
			c.pending = false
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		err := c.remote.Save(wctx, *doc)
		cancel()

		c.mu.Lock()
		c.gen++
		if err == nil {
			c.server = doc.Clone()
		}
		c.mu.Unlock()

		if err != nil {
			c.logger.Printf("Failed to save settings: %v", err)
		}
	}
}
