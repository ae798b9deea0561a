package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"glassdash/internal/database"
)

// SQLiteStore keeps the document as a row of the documents table. Unlike the
// file store its version survives restarts.
type SQLiteStore struct {
	opts   Options
	db     *database.DB
	logger *log.Logger
}

func NewSQLiteStore(opts Options) (*SQLiteStore, error) {
	if opts.Path == "" {
		return nil, errors.New("sqlite store: path is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := database.NewDB(opts.Path, database.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &SQLiteStore{opts: opts, db: db, logger: opts.Logger}, nil
}

func (s *SQLiteStore) Read(ctx context.Context) (Snapshot, error) {
	doc, err := s.db.GetDocument(ctx, DocumentKey)
	if errors.Is(err, database.ErrNotFound) {
		if s.opts.Fallback == nil {
			return Snapshot{}, ErrNotFound
		}
		body, err := compact(s.opts.Fallback)
		if err != nil {
			return Snapshot{}, err
		}
		return Snapshot{Body: body}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("error reading document: %w", err)
	}
	body, err := compact(doc.Body)
	if err != nil {
		return Snapshot{}, fmt.Errorf("error parsing stored document: %w", err)
	}
	return Snapshot{Body: body, Version: doc.Version, UpdatedAt: doc.UpdatedAt}, nil
}

func (s *SQLiteStore) Write(ctx context.Context, body []byte) (Snapshot, error) {
	compacted, err := compact(body)
	if err != nil {
		return Snapshot{}, err
	}
	now := s.opts.now()
	version, err := s.db.PutDocument(ctx, DocumentKey, compacted, now)
	if err != nil {
		return Snapshot{}, fmt.Errorf("error writing document: %w", err)
	}
	return Snapshot{Body: compacted, Version: version, UpdatedAt: now}, nil
}

func (s *SQLiteStore) Seed(ctx context.Context, body []byte) (bool, error) {
	compacted, err := compact(body)
	if err != nil {
		return false, err
	}
	inserted, err := s.db.InsertDocumentIfAbsent(ctx, DocumentKey, compacted, s.opts.now())
	if err != nil {
		return false, fmt.Errorf("error seeding document: %w", err)
	}
	return inserted, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
