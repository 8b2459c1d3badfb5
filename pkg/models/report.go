package models

import (
	"time"
)

// CompareReport represents the results of one comparison run
type CompareReport struct {
	// Operation details
	OperationID string
	Roots       []string
	Shallow     bool

	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Root of the classified tree; never nil, even under total failure
	Root *ComparisonNode

	// Statistics collected during the run
	Stats Statistics

	// Errors localized to entries during the walk
	Errors []*CompareError

	// Cancelled is set when the run was interrupted; the tree is partial
	Cancelled bool
}

// Statistics holds comparison run metrics
type Statistics struct {
	// Entries seen across all sides
	EntriesScanned int
	DirsScanned    int

	// Classification tallies (nodes, not per-side entries)
	Same      int
	Changed   int
	New       int
	Deleted   int
	Errored   int
	Filtered  int
	EmptyDirs int

	// Content actually read for deep comparison
	FilesRead int
	BytesRead int64
}

// Identical reports whether the run found no differences
func (r *CompareReport) Identical() bool {
	return !r.Cancelled &&
		r.Stats.Changed == 0 && r.Stats.New == 0 &&
		r.Stats.Deleted == 0 && r.Stats.Errored == 0
}

// ExitCode maps the report outcome to a process exit code:
// 0 identical, 1 differences found, 2 errors or cancellation
func (r *CompareReport) ExitCode() int {
	if r.Cancelled || r.Stats.Errored > 0 {
		return 2
	}
	if r.Identical() {
		return 0
	}
	return 1
}
