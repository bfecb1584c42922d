// Package osfilesystem provides the local filesystem and local media locator.
package osfilesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/user/moviereader/pkg/ports"
)

// FileSystem implements ports.FileSystem and ports.Locator using the os package.
type FileSystem struct{}

// New creates a new FileSystem.
func New() *FileSystem {
	return &FileSystem{}
}

// ReadFile reads the entire contents of a file.
func (fs *FileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to a file, creating it if necessary.
func (fs *FileSystem) WriteFile(path string, data []byte) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

// MkdirAll creates a directory and all parent directories.
func (fs *FileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

// Exists checks if a file or directory exists.
func (fs *FileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Remove deletes a file or empty directory.
func (fs *FileSystem) Remove(path string) error {
	return os.Remove(path)
}

// Stat returns the signature of a local media file.
func (fs *FileSystem) Stat(ctx context.Context, path string) (ports.Signature, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ports.Signature{}, classify(path, err)
	}
	if info.IsDir() {
		return ports.Signature{}, fmt.Errorf("%w: %s is a directory", ports.ErrMediaUnreadable, path)
	}
	return ports.SignatureOf(info.ModTime(), info.Size(), ""), nil
}

// Localize returns the absolute form of path.
func (fs *FileSystem) Localize(ctx context.Context, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ports.ErrMediaUnreadable, err)
	}
	return abs, nil
}

func classify(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ports.ErrMediaNotFound, path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s: %v", ports.ErrMediaUnreadable, path, err)
	default:
		return fmt.Errorf("%w: %v", ports.ErrMediaUnreadable, err)
	}
}

// Ensure FileSystem implements the ports it serves
var (
	_ ports.FileSystem = (*FileSystem)(nil)
	_ ports.Locator    = (*FileSystem)(nil)
)
