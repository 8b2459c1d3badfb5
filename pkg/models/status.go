package models

import (
	"fmt"
	"sort"
	"strings"
)

// Status is the classification assigned to a compared entry or subtree.
// It is always derived from the entries and children of a node, never set
// directly by callers; a fresh comparison produces fresh statuses.
type Status string

const (
	// StatusSame indicates the entry is identical on all sides
	StatusSame Status = "same"
	// StatusChanged indicates content or metadata differs between sides
	StatusChanged Status = "changed"
	// StatusNew indicates the entry exists on the reference side only
	StatusNew Status = "new"
	// StatusDeleted indicates the entry is gone from the reference side
	StatusDeleted Status = "deleted"
	// StatusError indicates an I/O failure prevented classification
	StatusError Status = "error"
	// StatusEmpty marks a directory with no visible children
	StatusEmpty Status = "empty"
	// StatusFiltered marks an entry excluded by a filename filter or
	// symlink policy; filtered entries are never compared or descended into
	StatusFiltered Status = "filtered"
	// StatusCancelled marks a subtree left unexplored because the
	// comparison was cancelled before reaching it
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every valid status in display order
func AllStatuses() []Status {
	return []Status{
		StatusSame, StatusChanged, StatusNew, StatusDeleted,
		StatusError, StatusEmpty, StatusFiltered, StatusCancelled,
	}
}

// ParseStatus converts a config or CLI string into a Status
func ParseStatus(s string) (Status, error) {
	for _, status := range AllStatuses() {
		if string(status) == strings.ToLower(strings.TrimSpace(s)) {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown status: %q", s)
}

// StatusSet is a set of statuses, used for visibility filtering
type StatusSet map[Status]bool

// NewStatusSet builds a set from the given statuses
func NewStatusSet(statuses ...Status) StatusSet {
	set := make(StatusSet, len(statuses))
	for _, s := range statuses {
		set[s] = true
	}
	return set
}

// Contains reports whether the status is in the set
func (s StatusSet) Contains(status Status) bool {
	return s[status]
}

// Statuses returns the members of the set in stable order
func (s StatusSet) Statuses() []Status {
	out := make([]Status, 0, len(s))
	for status, ok := range s {
		if ok {
			out = append(out, status)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FoldStatuses derives a directory status from its children. A
// directory whose visible (non-filtered) children are all Same or Empty
// is Same; any other visible child status makes it Changed. With no
// visible children the directory is Empty.
func FoldStatuses(children []Status) Status {
	visible := 0
	clean := true
	for _, status := range children {
		if status == StatusFiltered {
			continue
		}
		visible++
		if status != StatusSame && status != StatusEmpty {
			clean = false
		}
	}
	if visible == 0 {
		return StatusEmpty
	}
	if clean {
		return StatusSame
	}
	return StatusChanged
}
