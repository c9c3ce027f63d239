// Package media stores image binaries on the local filesystem, keyed by
// the opaque token recorded in the image's database row.
package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store writes and reads image binaries under a single directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating it if needed.
//
// Postcondition: Returns a Store whose directory exists, or a non-nil error.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(token string) string {
	// Tokens are server-generated UUIDs; Base strips any path separators
	// a forged token could carry.
	return filepath.Join(s.dir, filepath.Base(token))
}

// Save writes the binary for the given token, replacing any previous
// content. Returns the number of bytes written.
func (s *Store) Save(token string, r io.Reader) (int64, error) {
	f, err := os.Create(s.path(token))
	if err != nil {
		return 0, fmt.Errorf("creating media file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(s.path(token))
		return 0, fmt.Errorf("writing media file: %w", err)
	}
	return n, nil
}

// Open returns a reader over the binary for the given token.
//
// Postcondition: The caller owns the returned ReadCloser.
func (s *Store) Open(token string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(token))
	if err != nil {
		return nil, fmt.Errorf("opening media file: %w", err)
	}
	return f, nil
}

// Remove deletes the binary for the given token. Removing a token with
// no stored binary is not an error.
func (s *Store) Remove(token string) error {
	err := os.Remove(s.path(token))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing media file: %w", err)
	}
	return nil
}
