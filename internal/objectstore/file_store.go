package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/voice-cloner/internal/core"
)

const (
	clipsDirPermissions  = 0o750
	clipsFilePermissions = 0o600
)

// ErrInvalidKey is returned for keys that would escape the store directory.
var ErrInvalidKey = errors.New("invalid object key")

// FileStore implements core.ClipStore on a local directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve clips dir %s: %w", dir, err)
	}

	err = os.MkdirAll(absDir, clipsDirPermissions)
	if err != nil {
		return nil, fmt.Errorf("failed to create clips dir %s: %w", absDir, err)
	}

	return &FileStore{dir: absDir}, nil
}

// Dir returns the absolute directory backing the store.
func (f *FileStore) Dir() string {
	return f.dir
}

// Upload writes data under key. The file is written to a temporary name and
// renamed so readers never see a partial clip.
func (f *FileStore) Upload(_ context.Context, key string, data []byte) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for '%s': %w", key, err)
	}

	tmpName := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()

	if writeErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("failed to write object '%s': %w", key, errors.Join(writeErr, closeErr))
	}

	err = os.Chmod(tmpName, clipsFilePermissions)
	if err == nil {
		err = os.Rename(tmpName, path)
	}

	if err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("failed to store object '%s': %w", key, err)
	}

	return nil
}

// Download reads the object stored under key.
func (f *FileStore) Download(_ context.Context, key string) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", core.ErrClipNotFound, key)
		}

		return nil, fmt.Errorf("failed to read object '%s': %w", key, err)
	}

	return data, nil
}

// Delete removes the object. Deleting a missing object is not an error.
func (f *FileStore) Delete(_ context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete object '%s': %w", key, err)
	}

	return nil
}

// Sweep deletes objects last modified before now minus maxAge and returns how
// many were removed.
func (f *FileStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list clips dir %s: %w", f.dir, err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}

		if entry.IsDir() {
			continue
		}

		info, infoErr := entry.Info()
		if infoErr != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		removeErr := os.Remove(filepath.Join(f.dir, entry.Name()))
		if removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove expired clip %s: %w", entry.Name(), removeErr)
		}

		removed++
	}

	return removed, nil
}

func (f *FileStore) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return filepath.Join(f.dir, key), nil
}
