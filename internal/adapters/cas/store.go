// Package cas implements the local content-addressed cache store.
package cas

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/zr/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	dirPerm  = 0o750
	filePerm = 0o644
	markerExt = ".ok"
)

var _ ports.CacheStore = (*Store)(nil)

// Store implements ports.CacheStore as a directory of zero-length marker
// files, one per fingerprint: <dir>/<fingerprint>.ok. Presence means "the
// last run of this exact fingerprint succeeded"; there is no payload to
// read back, only a boolean.
type Store struct {
	dir string
}

// NewStore creates a new Store backed by the directory at the given path,
// creating it if necessary.
func NewStore(path string) (*Store, error) {
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(cleanPath, dirPerm); err != nil {
		return nil, zerr.Wrap(err, "failed to create cache store directory")
	}

	return &Store{dir: cleanPath}, nil
}

// DefaultDir returns $HOME/.zr/cache, falling back to a temp directory if
// HOME cannot be resolved.
func DefaultDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".zr", "cache")
	}
	return filepath.Join(os.TempDir(), ".zr", "cache")
}

// HasHit reports whether a marker exists for the given fingerprint.
func (s *Store) HasHit(key string) (bool, error) {
	_, err := os.Stat(s.markerPath(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, zerr.With(zerr.Wrap(err, "failed to stat cache marker"), "key", key)
}

// RecordHit creates (or refreshes) the marker file for the given fingerprint.
func (s *Store) RecordHit(key string) error {
	//nolint:gosec // Path is constructed from trusted directory and a hex fingerprint.
	if err := os.WriteFile(s.markerPath(key), nil, filePerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to record cache hit"), "key", key)
	}
	return nil
}

// Invalidate removes the marker for the given fingerprint, if present.
func (s *Store) Invalidate(key string) error {
	if err := os.Remove(s.markerPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, "failed to invalidate cache marker"), "key", key)
	}
	return nil
}

// ClearAll removes every marker in the store directory and returns the
// number of markers removed.
func (s *Store) ClearAll() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, zerr.Wrap(err, "failed to list cache store directory")
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != markerExt {
			continue
		}
		//nolint:gosec // Path is constructed from the trusted store directory.
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return count, zerr.Wrap(err, "failed to remove cache marker")
		}
		count++
	}
	return count, nil
}

func (s *Store) markerPath(key string) string {
	return filepath.Join(s.dir, key+markerExt)
}
