package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type backend struct {
	name string
	open func(t *testing.T, fallback []byte) Store
}

func backends() []backend {
	return []backend{
		{"file", func(t *testing.T, fallback []byte) Store {
			s, err := NewFileStore(Options{Path: filepath.Join(t.TempDir(), "data", "settings.json"), Fallback: fallback})
			if err != nil {
				t.Fatalf("NewFileStore: %v", err)
			}
			return s
		}},
		{"sqlite", func(t *testing.T, fallback []byte) Store {
			s, err := NewSQLiteStore(Options{Path: filepath.Join(t.TempDir(), "glassdash.db"), Fallback: fallback})
			if err != nil {
				t.Fatalf("NewSQLiteStore: %v", err)
			}
			return s
		}},
	}
}

// decode turns a JSON body into a generic value so documents can be compared
// regardless of formatting.
func decode(t *testing.T, body []byte) any {
	t.Helper()
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", body, err)
	}
	return v
}

func TestRoundTrip(t *testing.T) {
	docs := []string{
		`{"themeId":"oceanic","viewMode":"regular","showRss":true,"rssUrl":"","links":[],"carouselPage":0}`,
		`{"themeId":"not-a-theme","links":[{"id":"1","title":"A","url":"https://a","icon":"🏠"}],"carouselPage":7}`,
		`{"unknown":{"nested":[1,2,3]},"links":null}`,
		`{}`,
	}
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, nil)
			defer s.Close()
			ctx := context.Background()

			for _, doc := range docs {
				if _, err := s.Write(ctx, []byte(doc)); err != nil {
					t.Fatalf("Write(%s): %v", doc, err)
				}
				snap, err := s.Read(ctx)
				if err != nil {
					t.Fatalf("Read: %v", err)
				}
				if diff := cmp.Diff(decode(t, []byte(doc)), decode(t, snap.Body)); diff != "" {
					t.Errorf("round trip mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestLastWriteWins(t *testing.T) {
	w1 := `{"themeId":"sunset","showRss":false,"links":[{"id":"1","title":"A","url":"https://a"}]}`
	w2 := `{"themeId":"forest","carouselPage":2}`

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, nil)
			defer s.Close()
			ctx := context.Background()

			first, err := s.Write(ctx, []byte(w1))
			if err != nil {
				t.Fatalf("Write W1: %v", err)
			}
			second, err := s.Write(ctx, []byte(w2))
			if err != nil {
				t.Fatalf("Write W2: %v", err)
			}
			if second.Version <= first.Version {
				t.Errorf("version did not advance: %d then %d", first.Version, second.Version)
			}

			snap, err := s.Read(ctx)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			got := decode(t, snap.Body).(map[string]any)
			if _, ok := got["links"]; ok {
				t.Error("field from W1 leaked into W2")
			}
			if _, ok := got["showRss"]; ok {
				t.Error("field from W1 leaked into W2")
			}
			if diff := cmp.Diff(decode(t, []byte(w2)), any(got)); diff != "" {
				t.Errorf("read mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSeedOnlyOnce(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, nil)
			defer s.Close()
			ctx := context.Background()

			seeded, err := s.Seed(ctx, []byte(`{"themeId":"oceanic"}`))
			if err != nil || !seeded {
				t.Fatalf("first Seed: seeded=%v err=%v", seeded, err)
			}

			// A client empties the document; a later boot must not re-seed.
			if _, err := s.Write(ctx, []byte(`{}`)); err != nil {
				t.Fatalf("Write: %v", err)
			}
			seeded, err = s.Seed(ctx, []byte(`{"themeId":"oceanic"}`))
			if err != nil {
				t.Fatalf("second Seed: %v", err)
			}
			if seeded {
				t.Error("Seed wrote over an existing document")
			}

			snap, err := s.Read(ctx)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if string(snap.Body) != `{}` {
				t.Errorf("body = %s, want {}", snap.Body)
			}
		})
	}
}

func TestReadFallback(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, []byte(`{ "themeId": "oceanic" }`))
			defer s.Close()

			snap, err := s.Read(context.Background())
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if string(snap.Body) != `{"themeId":"oceanic"}` {
				t.Errorf("fallback body = %s", snap.Body)
			}
		})
		t.Run(b.name+"/none", func(t *testing.T) {
			s := b.open(t, nil)
			defer s.Close()
			if _, err := s.Read(context.Background()); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestWriteRejectsInvalidJSON(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, nil)
			defer s.Close()
			for _, body := range []string{"", "{", "not json"} {
				if _, err := s.Write(context.Background(), []byte(body)); !errors.Is(err, ErrInvalidDocument) {
					t.Errorf("Write(%q): expected ErrInvalidDocument, got %v", body, err)
				}
			}
		})
	}
}

func TestFileStoreWritesPrettyJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := NewFileStore(Options{Path: path})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close()

	if _, err := s.Write(context.Background(), []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "{\n  \"a\": 1\n}" {
		t.Errorf("file contents = %q", data)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".settings.json.*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestFileStoreDetectsExternalEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := NewFileStore(Options{Path: path})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close()

	if _, err := s.Write(context.Background(), []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	before := s.Version()

	if err := os.WriteFile(path, []byte(`{"a":2}`), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.Version() == before {
		if time.Now().After(deadline) {
			t.Fatal("external edit did not bump the version")
		}
		time.Sleep(20 * time.Millisecond)
	}

	snap, err := s.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(snap.Body) != `{"a":2}` {
		t.Errorf("body = %s, want the external edit", snap.Body)
	}
}

func TestOpenUnknownKind(t *testing.T) {
	if _, err := Open("redis", Options{Path: "x"}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestWriteIfVersionStillWritesWhenStale(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t, nil)
			defer s.Close()
			ctx := context.Background()

			if _, err := s.Write(ctx, []byte(`{"a":1}`)); err != nil {
				t.Fatalf("Write: %v", err)
			}
			var logs bytes.Buffer
			snap, err := WriteIfVersion(ctx, s, 0, []byte(`{"a":2}`), log.New(&logs, "", 0))
			if err != nil {
				t.Fatalf("WriteIfVersion: %v", err)
			}
			if string(snap.Body) != `{"a":2}` {
				t.Errorf("body = %s", snap.Body)
			}
			if !strings.Contains(logs.String(), "Stale settings write") {
				t.Errorf("expected stale write to be logged, got %q", logs.String())
			}
		})
	}
}
