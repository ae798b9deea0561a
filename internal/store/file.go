package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileStore keeps the document in a single pretty-printed JSON file.
// Writes go to a temp file that is renamed over the target, so readers never
// see a half-written document.
type FileStore struct {
	opts   Options
	path   string
	logger *log.Logger

	mu        sync.Mutex
	version   int64
	updatedAt time.Time
	lastSum   [sha256.Size]byte

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

func NewFileStore(opts Options) (*FileStore, error) {
	if opts.Path == "" {
		return nil, errors.New("file store: path is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &FileStore{
		opts:    opts,
		path:    opts.Path,
		logger:  opts.Logger,
		version: 1,
	}
	if data, err := os.ReadFile(s.path); err == nil {
		s.lastSum = sha256.Sum256(data)
		if info, err := os.Stat(s.path); err == nil {
			s.updatedAt = info.ModTime()
		}
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Read(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		if s.opts.Fallback == nil {
			return Snapshot{}, ErrNotFound
		}
		body, err := compact(s.opts.Fallback)
		if err != nil {
			return Snapshot{}, err
		}
		return Snapshot{Body: body, Version: s.version, UpdatedAt: s.updatedAt}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("error reading %s: %w", s.path, err)
	}
	body, err := compact(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("error parsing %s: %w", s.path, err)
	}
	return Snapshot{Body: body, Version: s.version, UpdatedAt: s.updatedAt}, nil
}

func (s *FileStore) Write(ctx context.Context, body []byte) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	compacted, err := compact(body)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeFileLocked(compacted); err != nil {
		return Snapshot{}, err
	}
	s.version++
	s.updatedAt = s.opts.now()
	return Snapshot{Body: compacted, Version: s.version, UpdatedAt: s.updatedAt}, nil
}

func (s *FileStore) Seed(ctx context.Context, body []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	compacted, err := compact(body)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("error checking %s: %w", s.path, err)
	}
	if err := s.writeFileLocked(compacted); err != nil {
		return false, err
	}
	s.updatedAt = s.opts.now()
	return true, nil
}

func (s *FileStore) writeFileLocked(compacted []byte) error {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, compacted, "", "  "); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	data := pretty.Bytes()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("error syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("error setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("error replacing %s: %w", s.path, err)
	}
	s.lastSum = sha256.Sum256(data)
	return nil
}

// Start watches the data directory so edits made outside the store (by hand,
// or by a restore script) still advance the version.
func (s *FileStore) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return errors.New("file store: watcher already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(s.path), err)
	}
	s.watcher = watcher
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.watchLoop(watcher, s.done)
	return nil
}

func (s *FileStore) watchLoop(watcher *fsnotify.Watcher, done <-chan struct{}) {
	defer s.wg.Done()
	target := filepath.Base(s.path)

	for {
		select {
		case <-done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.checkExternalEdit()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Printf("Settings file watcher error: %v", err)
		}
	}
}

func (s *FileStore) checkExternalEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	sum := sha256.Sum256(data)
	if sum == s.lastSum {
		return
	}
	s.lastSum = sum
	s.version++
	s.updatedAt = s.opts.now()
	if !json.Valid(data) {
		s.logger.Printf("Settings file %s was edited externally and is not valid JSON", s.path)
		return
	}
	s.logger.Printf("Settings file %s changed outside the server (version %d)", s.path, s.version)
}

// Version returns the current internal version.
func (s *FileStore) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	watcher := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if watcher == nil {
		return nil
	}
	close(s.done)
	err := watcher.Close()
	s.wg.Wait()
	return err
}
