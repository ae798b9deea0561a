package database

import (
	"context"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

func setupTestQueriesDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(":memory:", DefaultConfig())
	if err != nil {
		t.Fatalf("Failed to create in-memory database via NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetDocument_NotFound(t *testing.T) {
	db := setupTestQueriesDB(t)
	_, err := db.GetDocument(context.Background(), "settings")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPutDocument_BumpsVersion(t *testing.T) {
	db := setupTestQueriesDB(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	v1, err := db.PutDocument(ctx, "settings", []byte(`{"a":1}`), now)
	if err != nil {
		t.Fatalf("PutDocument: %v", err)
	}
	v2, err := db.PutDocument(ctx, "settings", []byte(`{"b":2}`), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("PutDocument: %v", err)
	}
	if v1 != 1 || v2 != 2 {
		t.Errorf("versions = %d, %d; want 1, 2", v1, v2)
	}

	doc, err := db.GetDocument(ctx, "settings")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if string(doc.Body) != `{"b":2}` {
		t.Errorf("body = %s, want last write", doc.Body)
	}
	if !doc.UpdatedAt.Equal(now.Add(time.Minute)) {
		t.Errorf("updated_at = %v, want %v", doc.UpdatedAt, now.Add(time.Minute))
	}
}

func TestPutDocument_EmptyKey(t *testing.T) {
	db := setupTestQueriesDB(t)
	if _, err := db.PutDocument(context.Background(), "", []byte(`{}`), time.Now()); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestInsertDocumentIfAbsent(t *testing.T) {
	db := setupTestQueriesDB(t)
	ctx := context.Background()

	inserted, err := db.InsertDocumentIfAbsent(ctx, "settings", []byte(`{"seed":true}`), time.Now())
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}
	inserted, err = db.InsertDocumentIfAbsent(ctx, "settings", []byte(`{"seed":"again"}`), time.Now())
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Error("second insert should be a no-op")
	}

	doc, err := db.GetDocument(ctx, "settings")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if string(doc.Body) != `{"seed":true}` {
		t.Errorf("body = %s, want first seed", doc.Body)
	}
}
