package walk

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/sdejongh/diffnorris/pkg/compare"
	"github.com/sdejongh/diffnorris/pkg/filter"
	"github.com/sdejongh/diffnorris/pkg/models"
	"github.com/sdejongh/diffnorris/pkg/storage"
)

// Tuple is one merged directory entry: the shared name plus one Entry per
// side. Filtered tuples are reported but never compared or descended into.
type Tuple struct {
	Name     string
	Entries  []models.Entry
	Filtered bool
	Reason   string
}

// Walker enumerates directory levels on N sides (2 or 3) in lock-step.
// Each level unions child names across sides, sorts them and yields one
// tuple per union member. A walk is restartable (a fresh Children pass
// re-reads the filesystem) but not resumable; per-entry races with
// concurrent filesystem activity surface as entry errors, not crashes.
type Walker struct {
	sides             []storage.Backend
	filters           *filter.Set
	ignoreSymlinks    bool
	ignoreCase        bool
	normalizeEncoding bool

	// followed tracks directory links already dereferenced in this walk
	// so that link loops terminate instead of recursing forever
	mu       sync.Mutex
	followed map[linkID]bool
}

// linkID identifies one symlink by side plus the link's own device and
// inode, so a link revisited through its own loop is recognized while
// links on different sides pointing at the same target never collide.
// Where the platform reports no file identity the resolved target path
// stands in, still scoped per side.
type linkID struct {
	side int
	dev  uint64
	ino  uint64
	path string
}

// NewWalker creates a walker over the given sides
func NewWalker(sides []storage.Backend, policy compare.Policy, filters *filter.Set) (*Walker, error) {
	if len(sides) < 2 || len(sides) > 3 {
		return nil, fmt.Errorf("walker requires 2 or 3 sides, got %d", len(sides))
	}
	if filters == nil {
		filters = filter.Empty()
	}
	return &Walker{
		sides:             sides,
		filters:           filters,
		ignoreSymlinks:    policy.IgnoreSymlinks,
		ignoreCase:        policy.IgnoreCase,
		normalizeEncoding: policy.NormalizeEncoding,
		followed:          make(map[linkID]bool),
	}, nil
}

// Sides returns the number of compared sides
func (w *Walker) Sides() int {
	return len(w.sides)
}

// Children reads one merged directory level. present[i] tells whether
// relPath is a readable directory on side i. Per-side listing failures
// are localized into dirErrs so siblings keep being walked; only a
// cancelled context aborts.
func (w *Walker) Children(ctx context.Context, relPath string, present []bool) ([]Tuple, []*models.CompareError, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	merged := newListing(len(w.sides), w.ignoreCase, w.normalizeEncoding)
	infos := make([]map[string]storage.FileInfo, len(w.sides))
	var dirErrs []*models.CompareError

	for i, side := range w.sides {
		if !present[i] {
			continue
		}
		entries, err := side.ReadDir(ctx, relPath)
		if err != nil {
			if ctx.Err() != nil {
				return nil, dirErrs, ctx.Err()
			}
			// Localized: the other sides keep being listed
			dirErrs = append(dirErrs, &models.CompareError{RelativePath: relPath, Side: i, Err: err})
			continue
		}
		infos[i] = make(map[string]storage.FileInfo, len(entries))
		for _, info := range entries {
			merged.add(i, info.Name)
			infos[i][info.Name] = info
		}
	}

	for _, collision := range merged.collisions {
		dirErrs = append(dirErrs, &models.CompareError{
			RelativePath: filepath.Join(relPath, collision.Shadowed),
			Side:         collision.Side,
			Err:          fmt.Errorf("name shadowed by %q under name normalization", collision.Existing),
		})
	}

	rows := merged.sorted()
	tuples := make([]Tuple, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return tuples, dirErrs, err
		}
		tuples = append(tuples, w.buildTuple(ctx, relPath, row, infos))
	}

	return tuples, dirErrs, nil
}

// buildTuple assembles the per-side entries for one merged name and
// decides whether the tuple is filtered out of the comparison
func (w *Walker) buildTuple(ctx context.Context, relPath string, row nameRow, infos []map[string]storage.FileInfo) Tuple {
	tuple := Tuple{
		Name:    row.name,
		Entries: make([]models.Entry, len(w.sides)),
	}

	// Filename filters short-circuit before any stat of the children:
	// matching names are reported as filtered and never walked
	childRel := filepath.Join(relPath, row.name)
	for _, name := range row.perSide {
		if name != "" && w.filters.Excluded(filepath.Join(relPath, name), name) {
			tuple.Filtered = true
			tuple.Reason = "excluded by filename filter"
			break
		}
	}

	symlinks := 0
	for i := range w.sides {
		name := row.perSide[i]
		if name == "" {
			tuple.Entries[i] = models.Missing(row.name, childRel)
			continue
		}

		info, ok := infos[i][name]
		if !ok {
			tuple.Entries[i] = models.Missing(name, childRel)
			continue
		}

		entry := models.Entry{
			Name:         name,
			RelativePath: info.RelativePath,
			AbsolutePath: info.Path,
			Size:         info.Size,
			ModTime:      info.ModTime,
			Permissions:  info.Permissions,
		}

		switch {
		case info.IsSymlink:
			entry.Kind = models.KindSymlink
			symlinks++
			if !tuple.Filtered && !w.ignoreSymlinks {
				w.followSymlink(ctx, i, info, &entry)
			}
		case info.IsDir:
			entry.Kind = models.KindDir
		default:
			entry.Kind = models.KindFile
		}

		tuple.Entries[i] = entry
	}

	// With symlinks ignored, a tuple touching any symlink is excluded
	// without dereferencing, so link loops are never entered
	if w.ignoreSymlinks && symlinks > 0 && !tuple.Filtered {
		tuple.Filtered = true
		tuple.Reason = "symlink ignored"
	}

	return tuple
}

// followSymlink dereferences a link entry in follow mode. The entry kind
// becomes the target's kind; dangling links keep KindSymlink with the
// error attached, and a directory link already dereferenced once in this
// walk stays KindSymlink so loops terminate.
func (w *Walker) followSymlink(ctx context.Context, side int, link storage.FileInfo, entry *models.Entry) {
	resolved, err := w.sides[side].ResolveLink(ctx, entry.RelativePath)
	if err != nil {
		entry.Err = fmt.Errorf("dangling symlink: %w", err)
		return
	}

	target, err := w.sides[side].Stat(ctx, entry.RelativePath)
	if err != nil {
		entry.Err = err
		return
	}

	if target.IsDir {
		id := linkID{side: side, dev: link.Dev, ino: link.Ino}
		if link.Dev == 0 && link.Ino == 0 {
			id.path = resolved
		}
		w.mu.Lock()
		seen := w.followed[id]
		if !seen {
			w.followed[id] = true
		}
		w.mu.Unlock()
		if seen {
			return
		}
		entry.Kind = models.KindDir
	} else {
		entry.Kind = models.KindFile
	}
	entry.Size = target.Size
	entry.ModTime = target.ModTime
	entry.Permissions = target.Permissions
}
