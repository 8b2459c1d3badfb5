package models

import (
	"time"
)

// EntryKind classifies what a path points to on one side of a comparison
type EntryKind string

const (
	// KindFile is a regular file
	KindFile EntryKind = "file"
	// KindDir is a directory
	KindDir EntryKind = "dir"
	// KindSymlink is a symbolic link (reported when links are not followed)
	KindSymlink EntryKind = "symlink"
	// KindMissing means the entry does not exist on this side
	KindMissing EntryKind = "missing"
)

// Entry describes one filesystem object on one side of a comparison.
// A tuple of Entries (one per compared root) forms a ComparisonNode.
type Entry struct {
	// Name is the entry name within its parent directory
	Name string

	// RelativePath is the path relative to the comparison root
	RelativePath string

	// AbsolutePath is the full path on the filesystem (empty when missing)
	AbsolutePath string

	// Kind indicates file, dir, symlink or missing
	Kind EntryKind

	// Size in bytes (zero when missing or dir)
	Size int64

	// ModTime is the last modification time
	ModTime time.Time

	// Permissions are the file mode bits
	Permissions uint32

	// Err holds the I/O error that prevented reading this entry, if any
	Err error
}

// Exists reports whether the entry is present on this side
func (e *Entry) Exists() bool {
	return e.Kind != KindMissing
}

// IsDir reports whether the entry is a directory
func (e *Entry) IsDir() bool {
	return e.Kind == KindDir
}

// Missing returns a placeholder entry for a side where the name is absent
func Missing(name, relativePath string) Entry {
	return Entry{
		Name:         name,
		RelativePath: relativePath,
		Kind:         KindMissing,
	}
}
