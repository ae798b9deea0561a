// Package store persists the single shared settings document.
//
// A store holds one JSON document and hands it back byte-for-byte in meaning:
// no schema checks and no field merging. Every write replaces the whole
// document and the last writer wins. Each write bumps an internal version so a
// compare-and-swap can be layered on later without changing what clients send.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"
)

const (
	KindFile   = "file"
	KindSQLite = "sqlite"

	// DocumentKey names the settings document in keyed backends.
	DocumentKey = "settings"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrInvalidDocument = errors.New("document is not valid JSON")
	ErrUnknownKind     = errors.New("unknown store kind")
)

// Snapshot is the document as of one version.
type Snapshot struct {
	Body      json.RawMessage
	Version   int64
	UpdatedAt time.Time
}

// Store is implemented by every backend.
type Store interface {
	// Read returns the current document. Before anything was written it
	// returns the configured fallback, or ErrNotFound if there is none.
	Read(ctx context.Context) (Snapshot, error)
	// Write replaces the document with body and returns the new snapshot.
	Write(ctx context.Context, body []byte) (Snapshot, error)
	// Seed stores body only if no document exists yet. It reports whether
	// it wrote anything.
	Seed(ctx context.Context, body []byte) (bool, error)
	Close() error
}

type Options struct {
	// Path is the JSON file for the file store or the database file for sqlite.
	Path string
	// Fallback is served by Read while no document exists.
	Fallback []byte
	Logger   *log.Logger
	// Now is used for timestamps; defaults to time.Now.
	Now func() time.Time
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// DefaultPath returns where a backend of the given kind keeps its data below dataDir.
func DefaultPath(kind, dataDir string) string {
	if kind == KindSQLite {
		return filepath.Join(dataDir, "glassdash.db")
	}
	return filepath.Join(dataDir, "settings.json")
}

// Open creates a store of the given kind.
func Open(kind string, opts Options) (Store, error) {
	switch kind {
	case "", KindFile:
		return NewFileStore(opts)
	case KindSQLite:
		return NewSQLiteStore(opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// compact validates body and strips insignificant whitespace.
func compact(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return buf.Bytes(), nil
}

// WriteIfVersion writes body like Write, logging when observed no longer
// matches the stored version. The write still happens: last writer wins.
func WriteIfVersion(ctx context.Context, s Store, observed int64, body []byte, logger *log.Logger) (Snapshot, error) {
	current, err := s.Read(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Snapshot{}, err
	}
	if err == nil && current.Version != observed && logger != nil {
		logger.Printf("Stale settings write: client saw version %d, store is at %d", observed, current.Version)
	}
	return s.Write(ctx, body)
}
