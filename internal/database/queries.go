package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

const timestampLayout = "2006-01-02 15:04:05"

// Document is a stored row of the documents table.
type Document struct {
	Key       string
	Body      []byte
	Version   int64
	UpdatedAt time.Time
}

// GetDocument loads the document stored under key.
func (db *DB) GetDocument(ctx context.Context, key string) (*Document, error) {
	var (
		doc       Document
		body      string
		updatedAt string
	)
	err := db.QueryRowContext(ctx,
		"SELECT key, body, version, strftime('%Y-%m-%d %H:%M:%S', updated_at) FROM documents WHERE key = ?",
		key,
	).Scan(&doc.Key, &body, &doc.Version, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.Body = []byte(body)
	if t, perr := time.Parse(timestampLayout, updatedAt); perr == nil {
		doc.UpdatedAt = t
	}
	return &doc, nil
}

// PutDocument replaces the body stored under key and bumps its version.
// It returns the version that was written.
func (db *DB) PutDocument(ctx context.Context, key string, body []byte, now time.Time) (int64, error) {
	if key == "" {
		return 0, ErrInvalidInput
	}
	ts := now.UTC().Format(timestampLayout)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (key, body, version, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
		body = excluded.body,
		version = documents.version + 1,
		updated_at = excluded.updated_at`,
		key, string(body), ts, ts,
	)
	if err != nil {
		return 0, err
	}

	var version int64
	if err := tx.QueryRowContext(ctx, "SELECT version FROM documents WHERE key = ?", key).Scan(&version); err != nil {
		return 0, err
	}
	return version, tx.Commit()
}

// InsertDocumentIfAbsent stores body under key only when no row exists yet.
// It reports whether a row was inserted.
func (db *DB) InsertDocumentIfAbsent(ctx context.Context, key string, body []byte, now time.Time) (bool, error) {
	ts := now.UTC().Format(timestampLayout)
	result, err := db.ExecContext(ctx,
		`INSERT INTO documents (key, body, version, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(key) DO NOTHING`,
		key, string(body), ts, ts,
	)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}
