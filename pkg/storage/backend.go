package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo represents metadata about a file or directory
type FileInfo struct {
	Name         string
	Path         string
	RelativePath string
	Size         int64
	ModTime      time.Time
	IsDir        bool
	IsSymlink    bool
	Permissions  uint32

	// Dev and Ino identify the underlying file object where the
	// platform exposes one (zero otherwise). The walker uses them to
	// recognize a symlink revisited through its own loop.
	Dev uint64
	Ino uint64
}

// Backend defines the read-only interface the comparison engine needs.
// Comparison never writes: backends expose listing, metadata and content
// access only. Implementations include the local filesystem; network
// filesystems can satisfy the same contract.
type Backend interface {
	// ReadDir lists the immediate children of a directory, unsorted
	ReadDir(ctx context.Context, path string) ([]FileInfo, error)

	// Stat returns metadata, following symlinks
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Lstat returns metadata without following symlinks
	Lstat(ctx context.Context, path string) (*FileInfo, error)

	// ResolveLink resolves a symlink chain to a canonical absolute path
	ResolveLink(ctx context.Context, path string) (string, error)

	// Read opens a file for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists checks if a path exists
	Exists(ctx context.Context, path string) (bool, error)

	// Root returns the absolute root this backend is anchored at
	Root() string

	// Close releases any resources held by the backend
	Close() error
}
