// Package store persists dataset snapshots between sessions so the
// browse view can serve a cached catalog instantly on startup.
package store

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/hangarshare/cli/pkg/api"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// Entry is one persisted dataset snapshot
type Entry struct {
	Key      string       `json:"key"`
	Records  []api.Record `json:"records"`
	StoredAt time.Time    `json:"stored_at"`
}

// Store is a file-backed key/value store under a single directory.
// The mutex serializes read-modify-write cycles: two concurrent Update
// calls are both reflected, last committed wins per key.
type Store struct {
	dir string
	mu  sync.Mutex
}

// DatasetKey returns the cache key for an entity collection
func DatasetKey(entity api.EntityType) string {
	return "dataset-" + string(entity)
}

// New creates a store rooted at dir, creating it if needed
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Get loads the entry for key, or nil when nothing is stored yet
func (s *Store) Get(key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(key)
}

// Set overwrites the entry for key with the given records
func (s *Store) Set(key string, records []api.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(key, records)
}

// Clear removes the entry for key; clearing an absent key is a no-op
func (s *Store) Clear(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Update applies fn to whatever is currently stored under key and
// commits the result. fn receives nil on a cold key; returning nil for
// a cold key leaves the store untouched, so realtime deltas cannot
// create a cache entry before a full preload has.
func (s *Store) Update(key string, fn func(records []api.Record) []api.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.read(key)
	if err != nil {
		return err
	}

	var current []api.Record
	if entry != nil {
		current = entry.Records
	}

	next := fn(current)
	if next == nil && entry == nil {
		return nil
	}

	return s.write(key, next)
}

// Keys lists the keys with a stored entry
func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(files))
	for _, f := range files {
		keys = append(keys, strings.TrimSuffix(filepath.Base(f), ".json"))
	}
	return keys, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *Store) read(key string) (*Entry, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Nothing cached yet
		}
		return nil, err
	}

	var entry Entry
	if err := jsonCodec.Unmarshal(data, &entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (s *Store) write(key string, records []api.Record) error {
	entry := Entry{
		Key:      key,
		Records:  records,
		StoredAt: time.Now(),
	}

	data, err := jsonCodec.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}

	// Write with restricted permissions (owner read/write only)
	return os.WriteFile(s.path(key), data, 0600)
}
