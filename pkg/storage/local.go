package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local implements BlobStore on top of the local filesystem.
// All locators are resolved relative to the configured root directory.
// Blobs are written with 0600 permissions.
type Local struct {
	root string
}

// NewLocal creates a Local store rooted at dir.
// The directory is created (with parents) if it does not already exist.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

// resolve turns a locator into an absolute filesystem path. Locators that
// resolve outside the store root (".." segments, absolute paths) are
// rejected so a hostile locator can never touch files beyond the store.
func (l *Local) resolve(locator string) (string, error) {
	full := filepath.Join(l.root, filepath.FromSlash(locator))
	if full == l.root || !strings.HasPrefix(full, l.root+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: locator %q escapes store root", locator)
	}
	return full, nil
}

// Put writes the blob to disk, creating parent directories as needed.
func (l *Local) Put(_ context.Context, locator string, data []byte) (string, error) {
	full, err := l.resolve(locator)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o700); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o600); err != nil {
		return "", err
	}
	return "file://" + full, nil
}

// Get reads the blob from disk.
func (l *Local) Get(_ context.Context, locator string) ([]byte, error) {
	full, err := l.resolve(locator)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, locator)
	}
	return data, err
}

// Delete removes the blob. Missing locators are not an error.
func (l *Local) Delete(_ context.Context, locator string) error {
	full, err := l.resolve(locator)
	if err != nil {
		return err
	}
	err = os.Remove(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Exists reports whether the locator holds a blob.
func (l *Local) Exists(_ context.Context, locator string) (bool, error) {
	full, err := l.resolve(locator)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Compile-time interface check.
var _ BlobStore = (*Local)(nil)
