package compare

import (
	"github.com/sdejongh/diffnorris/pkg/models"
)

const (
	// DefaultBufferSize is the chunk size for deep content reads
	DefaultBufferSize = 65536

	// DefaultTimeResolution is the shallow-mode timestamp tolerance in
	// nanoseconds; matches the precision of common filesystems
	DefaultTimeResolution = int64(100)

	// IgnoreTimestamps disables the mtime check in shallow mode entirely
	IgnoreTimestamps = int64(-1)
)

// Policy holds the tunable knobs deciding whether two payloads are equal.
// The engine never reads ambient state: callers pass a fully-resolved
// Policy at each invocation so runs are reproducible.
type Policy struct {
	// Shallow decides equality from size and mtime only, without reading
	// content. A deliberate approximation for large or slow trees.
	Shallow bool

	// TimeResolution is the tolerance in nanoseconds below which two
	// mtimes are considered equal in shallow mode. IgnoreTimestamps (-1)
	// skips the mtime check. Only meaningful when Shallow is set.
	TimeResolution int64

	// IgnoreSymlinks excludes symlinked entries from the walk without
	// dereferencing them
	IgnoreSymlinks bool

	// ApplyTextFilters runs enabled text filters over content before deep
	// comparison
	ApplyTextFilters bool

	// IgnoreBlankLines drops blank lines (and normalizes line endings)
	// before deep comparison
	IgnoreBlankLines bool

	// IgnoreCase folds entry names case-insensitively when merging sides
	IgnoreCase bool

	// NormalizeEncoding folds entry names to Unicode NFC when merging
	// sides, so composed and decomposed spellings of the same name pair
	// up instead of appearing one-sided
	NormalizeEncoding bool

	// BufferSize is the chunk size for deep content reads
	BufferSize int

	// BandwidthLimit caps deep-read throughput in bytes per second
	// (0 = unlimited)
	BandwidthLimit int64
}

// Default returns the default comparison policy: deep comparison with no
// filtering and symlinks followed.
func Default() Policy {
	return Policy{
		Shallow:        false,
		TimeResolution: DefaultTimeResolution,
		BufferSize:     DefaultBufferSize,
	}
}

// Validate checks the policy for invalid values
func (p Policy) Validate() error {
	if p.TimeResolution < IgnoreTimestamps {
		return &models.ValidationError{
			Field:   "time_resolution_ns",
			Message: "must be >= 0, or -1 to ignore timestamps",
		}
	}
	if p.BufferSize != 0 && p.BufferSize < 1024 {
		return &models.ValidationError{
			Field:   "buffer_size",
			Message: "must be at least 1024 bytes",
		}
	}
	if p.BandwidthLimit < 0 {
		return &models.ValidationError{
			Field:   "bandwidth_limit",
			Message: "must be >= 0",
		}
	}
	return nil
}

// bufferSize returns the effective chunk size
func (p Policy) bufferSize() int {
	if p.BufferSize < 1024 {
		return DefaultBufferSize
	}
	return p.BufferSize
}
