package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const fileSnapshotVersion = 1

// fileMeta describes a snapshot written by FileStore.
type fileMeta struct {
	Storage   string    `json:"storage"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// fileSnapshot is the on-disk form of a FileStore.
type fileSnapshot struct {
	Meta    fileMeta          `json:"_meta"`
	Entries map[string][]byte `json:"entries"`
}

// FileStore implements Store on top of a single JSON snapshot file. Every
// write rewrites the snapshot through a temp file and rename so a crash never
// leaves a half-written file behind.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store backed by the snapshot at path. The file is
// created on first write.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileStore{path: filepath.Clean(path)}, nil
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	value, ok := snap.Entries[key]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", key, ErrNotFound)
	}
	return value, nil
}

func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return err
	}
	snap.Entries[key] = value
	return s.save(snap)
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := snap.Entries[key]; !ok {
		return nil
	}
	delete(snap.Entries, key)
	return s.save(snap)
}

// load reads the snapshot. A missing file is an empty snapshot. A file that
// does not decode is moved to CorruptPath and replaced by an empty snapshot.
func (s *FileStore) load() (fileSnapshot, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return emptySnapshot(), nil
	}
	if err != nil {
		return emptySnapshot(), fmt.Errorf("open snapshot: %w", err)
	}

	var snap fileSnapshot
	decodeErr := json.NewDecoder(f).Decode(&snap)
	f.Close()
	if decodeErr != nil {
		if err := os.Rename(s.path, s.CorruptPath()); err != nil {
			return emptySnapshot(), fmt.Errorf("decode snapshot %s: %w (set aside: %v)", s.path, decodeErr, err)
		}
		return emptySnapshot(), nil
	}
	if snap.Entries == nil {
		snap.Entries = map[string][]byte{}
	}
	return snap, nil
}

// CorruptPath is where an undecodable snapshot is moved.
func (s *FileStore) CorruptPath() string {
	return s.path + ".corrupt"
}

func emptySnapshot() fileSnapshot {
	return fileSnapshot{Entries: map[string][]byte{}}
}

func (s *FileStore) save(snap fileSnapshot) error {
	snap.Meta = fileMeta{
		Storage:   "json_snapshot",
		Version:   fileSnapshotVersion,
		Timestamp: time.Now().UTC(),
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
