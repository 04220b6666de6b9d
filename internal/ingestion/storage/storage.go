// Package storage writes uploaded files to durable storage, either a local
// directory or an S3-compatible bucket. Files are keyed by the base name of
// the uploaded file; a second upload with the same name replaces the first.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for names that do not reduce to a usable base
// name.
var ErrInvalidName = errors.New("invalid file name")

// FileStore persists and loads uploaded files.
type FileStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Load(ctx context.Context, name string) ([]byte, error)
}

// CleanName reduces an uploaded file name to its base name so that callers
// cannot escape the storage root.
func CleanName(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == ".." || base == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return base, nil
}

// Local stores files under a directory on the local filesystem.
type Local struct {
	dir string
}

// NewLocal creates the directory if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory %s: %w", dir, err)
	}
	return &Local{dir: dir}, nil
}

// Save writes data to <dir>/<base name> and returns the written path.
func (l *Local) Save(_ context.Context, name string, data []byte) (string, error) {
	base, err := CleanName(name)
	if err != nil {
		return "", err
	}
	path := filepath.Join(l.dir, base)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Load reads a previously saved file.
func (l *Local) Load(_ context.Context, name string) ([]byte, error) {
	base, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(l.dir, base)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
