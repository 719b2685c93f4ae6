package namemap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrConflict is returned by Store.Insert when the key is already held by a
// different original name.
var ErrConflict = errors.New("sanitized key already assigned")

// Store persists the sanitized -> original table.
type Store interface {
	Load(ctx context.Context) (map[string]string, error)
	// Insert records the pair unless the key exists. Re-inserting an identical
	// pair is a no-op; a key held by another name yields ErrConflict.
	Insert(ctx context.Context, sanitized, original string) error
}

// FileStore keeps the mapping in a single JSON object file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read name mapping: %w", err)
	}
	m := map[string]string{}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode name mapping: %w", err)
	}
	return m, nil
}

func (s *FileStore) Insert(ctx context.Context, sanitized, original string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.read()
	if err != nil {
		return err
	}
	if existing, ok := m[sanitized]; ok {
		if existing == original {
			return nil
		}
		return ErrConflict
	}
	m[sanitized] = original
	return s.write(m)
}

func (s *FileStore) write(m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create mapping directory: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode name mapping: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp mapping file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename mapping file: %w", err)
	}
	return nil
}
