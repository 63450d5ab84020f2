// Package local stores images on the filesystem beneath a media root.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sakif/recipe-api/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store writes files to {root}/{key}. Safe for concurrent use.
type Store struct {
	root    string
	baseURL string
	mu      sync.RWMutex
}

// New creates root if needed. baseURL is the URL prefix the HTTP server
// mounts root under, e.g. "/media/".
func New(root, baseURL string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("local: media root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("local: creating media root: %w", err)
	}
	return &Store{root: root, baseURL: baseURL}, nil
}

// Root is the directory served under the media URL.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) Save(_ context.Context, key string, data []byte, _ string) error {
	if len(data) == 0 {
		return fmt.Errorf("local: image data cannot be empty")
	}
	path, err := s.Path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("local: creating directory for %s: %w", key, err)
	}
	// Write to a temp file and rename so readers never see half a file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("local: writing %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("local: moving %s into place: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("local: deleting %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key is present on disk.
func (s *Store) Exists(key string) bool {
	path, err := s.Path(key)
	if err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err = os.Stat(path)
	return err == nil
}

func (s *Store) URL(key string) string {
	return storage.JoinURL(s.baseURL, key)
}

// Path maps key to its file beneath root.
func (s *Store) Path(key string) (string, error) {
	cleaned, err := storage.CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}
