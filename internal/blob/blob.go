// Package blob stores uploaded file bytes on the local filesystem,
// keyed by an opaque identifier. Keys carry no extension on disk.
package blob

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound indicates no blob exists under the requested key.
var ErrNotFound = errors.New("blob: not found")

// Store writes and reads blobs under a single directory.
type Store struct {
	dir string
}

// NewStore creates the blob directory if needed and returns a Store.
func NewStore(dir string) (*Store, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("blob: empty directory")
	}
	if errMkdir := os.MkdirAll(dir, 0o755); errMkdir != nil {
		return nil, fmt.Errorf("blob: create directory: %w", errMkdir)
	}
	return &Store{dir: dir}, nil
}

// NewKey returns a fresh opaque blob key.
func NewKey() string {
	return uuid.NewString()
}

// Dir returns the blob directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Write stores the blob bytes under key.
func (s *Store) Write(key string, r io.Reader) error {
	path, errPath := s.path(key)
	if errPath != nil {
		return errPath
	}
	f, errCreate := os.Create(path)
	if errCreate != nil {
		return fmt.Errorf("blob: create %s: %w", key, errCreate)
	}
	if _, errCopy := io.Copy(f, r); errCopy != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("blob: write %s: %w", key, errCopy)
	}
	if errClose := f.Close(); errClose != nil {
		return fmt.Errorf("blob: close %s: %w", key, errClose)
	}
	return nil
}

// Open returns a reader over the blob bytes together with their size.
// A missing blob yields ErrNotFound.
func (s *Store) Open(key string) (io.ReadCloser, int64, error) {
	path, errPath := s.path(key)
	if errPath != nil {
		return nil, 0, errPath
	}
	f, errOpen := os.Open(path)
	if errOpen != nil {
		if errors.Is(errOpen, fs.ErrNotExist) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("blob: open %s: %w", key, errOpen)
	}
	info, errStat := f.Stat()
	if errStat != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("blob: stat %s: %w", key, errStat)
	}
	return f, info.Size(), nil
}

// Remove deletes the blob under key. A missing blob is treated as
// already deleted.
func (s *Store) Remove(key string) error {
	path, errPath := s.path(key)
	if errPath != nil {
		return errPath
	}
	if errRemove := os.Remove(path); errRemove != nil && !errors.Is(errRemove, fs.ErrNotExist) {
		return fmt.Errorf("blob: remove %s: %w", key, errRemove)
	}
	return nil
}

// path resolves a key to a file path, rejecting anything that could
// escape the blob directory.
func (s *Store) path(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("blob: invalid key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}
