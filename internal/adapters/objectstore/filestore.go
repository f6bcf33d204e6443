// Package objectstore keeps uploaded activity images on the local filesystem
// and serves them under a public path prefix.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// PublicPrefix is the URL path uploaded objects are served from.
const PublicPrefix = "/uploads/"

// MaxObjectSize bounds a single upload.
const MaxObjectSize = 10 << 20

var (
	ErrInvalidName = errors.New("invalid object name")
	ErrTooLarge    = errors.New("object exceeds 10 MB")
	ErrNotFound    = errors.New("object not found")
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// FileStore writes objects into a single directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("objectstore: create %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *FileStore) Dir() string { return s.dir }

// CleanName reduces a client-supplied filename to a safe object name.
func CleanName(name string) (string, error) {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.Trim(unsafeChars.ReplaceAllString(base, "_"), "._")
	if base == "" {
		return "", ErrInvalidName
	}
	return base, nil
}

// Put stores r under name, replacing any existing object, and returns the
// public path it is served from.
// POST: A failed write leaves no partial object behind
func (s *FileStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("objectstore: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(r, MaxObjectSize+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("objectstore: write %s: %w", clean, err)
	}
	if n > MaxObjectSize {
		return "", ErrTooLarge
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, clean)); err != nil {
		return "", fmt.Errorf("objectstore: %w", err)
	}
	return PublicPrefix + clean, nil
}

// Open returns a reader for the named object.
func (s *FileStore) Open(name string) (io.ReadCloser, error) {
	clean, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, clean))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", clean, ErrNotFound)
	}
	return f, err
}
