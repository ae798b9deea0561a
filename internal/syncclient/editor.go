package syncclient

import (
	"context"
	"sync"

	"glassdash/internal/settings"
)

// Editor is a working copy of the draft. Polls are suspended while it is
// open; nothing it does is visible until Save.
type Editor struct {
	c *Client

	mu     sync.Mutex
	doc    settings.Document
	closed bool
}

// BeginEdit refreshes from the server and opens an editor on the result. If
// the refresh fails, or a local write is still outstanding, the editor opens
// on the data already held.
func (c *Client) BeginEdit(ctx context.Context) (*Editor, error) {
	c.mu.Lock()
	if c.status != StatusReady {
		c.mu.Unlock()
		return nil, ErrNotReady
	}
	if c.editing {
		c.mu.Unlock()
		return nil, ErrAlreadyEditing
	}
	gen := c.gen
	c.mu.Unlock()

	fetched, fetchErr := c.remote.Fetch(ctx)

	c.mu.Lock()
	if c.editing {
		c.mu.Unlock()
		return nil, ErrAlreadyEditing
	}
	if fetchErr != nil {
		c.logger.Printf("Could not refresh settings before editing, using held copy: %v", fetchErr)
	} else if c.gen == gen && !c.pending {
		c.adoptLocked(fetched)
		c.correctPageLocked()
	}
	c.editing = true
	e := &Editor{c: c, doc: c.draft.Clone()}
	c.mu.Unlock()

	c.notify()
	return e, nil
}

// Document returns a copy of the working document.
func (e *Editor) Document() settings.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Clone()
}

// Update applies fn to the working document.
func (e *Editor) Update(fn func(*settings.Document)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEditorClosed
	}
	fn(&e.doc)
	return nil
}

// AddLink validates a new link and appends it to the working document.
func (e *Editor) AddLink(title, rawURL, icon string) (settings.Link, error) {
	link, err := settings.NewLink(title, rawURL, icon, e.c.now())
	if err != nil {
		return settings.Link{}, err
	}
	err = e.Update(func(d *settings.Document) { link = d.AddLink(link) })
	return link, err
}

func (e *Editor) RemoveLink(id string) error {
	return e.Update(func(d *settings.Document) { d.RemoveLink(id) })
}

func (e *Editor) MoveLink(from, to int) error {
	return e.Update(func(d *settings.Document) { d.Links = settings.Move(d.Links, from, to) })
}

// Save closes the editor and applies the working document as one local
// mutation.
func (e *Editor) Save() error {
	doc, err := e.close()
	if err != nil {
		return err
	}
	e.c.endEdit()
	return e.c.Mutate(func(d *settings.Document) { *d = doc })
}

// Cancel closes the editor and discards the working document.
func (e *Editor) Cancel() {
	if _, err := e.close(); err != nil {
		return
	}
	e.c.endEdit()
	e.c.notify()
}

func (e *Editor) close() (settings.Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return settings.Document{}, ErrEditorClosed
	}
	e.closed = true
	return e.doc.Clone(), nil
}

func (c *Client) endEdit() {
	c.mu.Lock()
	c.editing = false
	c.mu.Unlock()
}
