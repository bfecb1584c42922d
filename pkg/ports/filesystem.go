package ports

import (
	"context"
	"time"
)

// FileSystem abstracts file system operations.
type FileSystem interface {
	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to a file, creating it if necessary.
	WriteFile(path string, data []byte) error

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string) error

	// Exists checks if a file or directory exists.
	Exists(path string) (bool, error)

	// Remove deletes a file or empty directory.
	Remove(path string) error
}

// Signature identifies one version of a media resource. Two stats of an
// unchanged resource yield equal signatures, so the value is usable with ==.
type Signature struct {
	ModTime int64 // unix nanoseconds
	Size    int64
	ETag    string
}

// SignatureOf builds a Signature from file metadata.
func SignatureOf(modTime time.Time, size int64, etag string) Signature {
	return Signature{ModTime: modTime.UnixNano(), Size: size, ETag: etag}
}

// Locator resolves a media path (local file or remote object) to something
// the media capability can open.
type Locator interface {
	// Stat returns the current signature of the resource.
	// Missing resources report ErrMediaNotFound.
	Stat(ctx context.Context, path string) (Signature, error)

	// Localize returns a local filesystem path holding the resource content.
	// For local files this is the path itself.
	Localize(ctx context.Context, path string) (string, error)
}
