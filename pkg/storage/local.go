package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local is a filesystem-based storage backend anchored at a root directory
type Local struct {
	rootPath string
}

// NewLocal creates a new local filesystem backend
func NewLocal(rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}

	return &Local{rootPath: absPath}, nil
}

// ReadDir lists the immediate children of a directory
func (l *Local) ReadDir(ctx context.Context, path string) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath := filepath.Join(l.rootPath, path)
	dirEntries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	infos := make([]FileInfo, 0, len(dirEntries))
	for _, de := range dirEntries {
		// Entries that vanish between listing and stat are skipped here;
		// the walker surfaces them as per-entry errors on the next level.
		info, err := de.Info()
		if err != nil {
			continue
		}
		infos = append(infos, l.fileInfo(filepath.Join(fullPath, de.Name()), info))
	}

	return infos, nil
}

// Stat returns file metadata, following symlinks
func (l *Local) Stat(ctx context.Context, path string) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath := filepath.Join(l.rootPath, path)
	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat: %w", err)
	}

	fi := l.fileInfo(fullPath, info)
	return &fi, nil
}

// Lstat returns file metadata without following symlinks
func (l *Local) Lstat(ctx context.Context, path string) (*FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath := filepath.Join(l.rootPath, path)
	info, err := os.Lstat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to lstat: %w", err)
	}

	fi := l.fileInfo(fullPath, info)
	return &fi, nil
}

// ResolveLink resolves a symlink chain to a canonical absolute path
func (l *Local) ResolveLink(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fullPath := filepath.Join(l.rootPath, path)
	resolved, err := filepath.EvalSymlinks(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve symlink: %w", err)
	}
	return resolved, nil
}

// Read opens a file for reading
func (l *Local) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath := filepath.Join(l.rootPath, path)
	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Exists checks if a file or directory exists
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	fullPath := filepath.Join(l.rootPath, path)

	_, err := os.Lstat(fullPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existence: %w", err)
}

// Root returns the absolute root directory of this backend
func (l *Local) Root() string {
	return l.rootPath
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}

func (l *Local) fileInfo(fullPath string, info fs.FileInfo) FileInfo {
	relPath, err := filepath.Rel(l.rootPath, fullPath)
	if err != nil {
		relPath = info.Name()
	}

	dev, ino := fileID(info)
	return FileInfo{
		Name:         info.Name(),
		Path:         fullPath,
		RelativePath: relPath,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		IsDir:        info.IsDir(),
		IsSymlink:    info.Mode()&fs.ModeSymlink != 0,
		Permissions:  uint32(info.Mode().Perm()),
		Dev:          dev,
		Ino:          ino,
	}
}
