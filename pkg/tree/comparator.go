package tree

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sdejongh/diffnorris/pkg/compare"
	"github.com/sdejongh/diffnorris/pkg/filter"
	"github.com/sdejongh/diffnorris/pkg/logging"
	"github.com/sdejongh/diffnorris/pkg/models"
	"github.com/sdejongh/diffnorris/pkg/storage"
	"github.com/sdejongh/diffnorris/pkg/walk"
)

// DefaultMaxWorkers bounds the number of directory subtrees compared
// concurrently when no explicit limit is given
const DefaultMaxWorkers = 5

// Event is a progress notification emitted while a comparison runs
type Event struct {
	Type   string // "scan_dir", "entry"
	Path   string
	Status models.Status
}

// Option configures a Comparator
type Option func(*Comparator)

// WithLogger attaches a structured logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Comparator) { c.logger = logger }
}

// WithOverlay attaches a VCS status overlay hook
func WithOverlay(overlay Overlay) Option {
	return func(c *Comparator) { c.overlay = overlay }
}

// WithProgress attaches a progress callback. The callback may be invoked
// from multiple goroutines.
func WithProgress(fn func(Event)) Option {
	return func(c *Comparator) { c.progress = fn }
}

// WithMaxWorkers bounds concurrent subtree comparisons
func WithMaxWorkers(n int) Option {
	return func(c *Comparator) {
		if n >= 1 {
			c.maxWorkers = n
		}
	}
}

// WithReferenceSide selects which side is "local" for New/Deleted
// labeling. Affects labeling only, never the tree structure.
func WithReferenceSide(side int) Option {
	return func(c *Comparator) { c.reference = side }
}

// Comparator orchestrates the walker and the equality engine to classify
// every entry of 2 or 3 trees into a status tree. It is read-only on the
// filesystem and holds no mutable state across runs, so a Comparator can
// be reused; each run produces an entirely new tree.
type Comparator struct {
	sides      []storage.Backend
	policy     compare.Policy
	filters    *filter.Set
	equality   *compare.Equality
	overlay    Overlay
	logger     logging.Logger
	progress   func(Event)
	maxWorkers int
	reference  int
}

// New creates a comparator over 2 or 3 sides
func New(sides []storage.Backend, policy compare.Policy, filters *filter.Set, opts ...Option) (*Comparator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if filters == nil {
		filters = filter.Empty()
	}

	c := &Comparator{
		sides:      sides,
		policy:     policy,
		filters:    filters,
		equality:   compare.NewEquality(policy, filters),
		logger:     logging.NewNullLogger(),
		maxWorkers: DefaultMaxWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.reference < 0 || c.reference >= len(sides) {
		return nil, &models.ValidationError{
			Field:   "reference",
			Message: "reference side out of range",
		}
	}

	// Walker construction also validates the side count
	if _, err := walk.NewWalker(sides, policy, filters); err != nil {
		return nil, err
	}

	return c, nil
}

// runState carries the mutable bookkeeping of one run. Nodes themselves
// are each owned by exactly one goroutine during construction; only the
// shared tallies need the lock.
type runState struct {
	walker *walk.Walker
	sem    *semaphore.Weighted

	mu        sync.Mutex
	stats     models.Statistics
	errors    []*models.CompareError
	cancelled bool
}

func (s *runState) addError(err *models.CompareError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, err)
}

func (s *runState) tally(fn func(*models.Statistics)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.stats)
}

func (s *runState) markCancelled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}

// Run performs a full comparison and wraps the classified tree in a
// report with timing, statistics and localized errors
func (c *Comparator) Run(ctx context.Context) (*models.CompareReport, error) {
	report := &models.CompareReport{
		OperationID: uuid.New().String(),
		Roots:       c.rootPaths(),
		Shallow:     c.policy.Shallow,
		StartTime:   time.Now(),
	}

	c.logger.Info(ctx, "comparison started", logging.Fields{
		"operation_id": report.OperationID,
		"roots":        report.Roots,
		"shallow":      c.policy.Shallow,
	})

	root, state := c.compareTree(ctx)

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime)
	report.Root = root
	report.Stats = state.stats
	report.Errors = state.errors
	report.Cancelled = state.cancelled

	c.logger.Info(ctx, "comparison finished", logging.Fields{
		"operation_id": report.OperationID,
		"duration":     report.Duration.String(),
		"changed":      report.Stats.Changed,
		"errors":       len(report.Errors),
		"cancelled":    report.Cancelled,
	})

	return report, nil
}

// Compare performs a full comparison and returns only the classified
// root node
func (c *Comparator) Compare(ctx context.Context) *models.ComparisonNode {
	root, _ := c.compareTree(ctx)
	return root
}

func (c *Comparator) rootPaths() []string {
	paths := make([]string, len(c.sides))
	for i, side := range c.sides {
		paths[i] = side.Root()
	}
	return paths
}

// compareTree builds the root node and recursively classifies the whole
// tree. Errors are always localized; the returned node is never nil.
func (c *Comparator) compareTree(ctx context.Context) (*models.ComparisonNode, *runState) {
	walker, _ := walk.NewWalker(c.sides, c.policy, c.filters)
	state := &runState{
		walker: walker,
		sem:    semaphore.NewWeighted(int64(c.maxWorkers)),
	}

	root := &models.ComparisonNode{
		Name:         ".",
		RelativePath: ".",
		Entries:      make([]models.Entry, len(c.sides)),
	}

	if ctx.Err() != nil {
		c.markCancelledNode(state, root)
		return root, state
	}

	present := make([]bool, len(c.sides))
	for i, side := range c.sides {
		info, err := side.Stat(ctx, ".")
		if err != nil {
			root.Entries[i] = models.Entry{
				Name:         ".",
				RelativePath: ".",
				Kind:         models.KindDir,
				Err:          err,
			}
			state.addError(&models.CompareError{RelativePath: ".", Side: i, Err: err})
			continue
		}
		root.Entries[i] = models.Entry{
			Name:         ".",
			RelativePath: ".",
			AbsolutePath: info.Path,
			Kind:         models.KindDir,
			Size:         info.Size,
			ModTime:      info.ModTime,
			Permissions:  info.Permissions,
		}
		present[i] = true
	}

	anyPresent := false
	for _, ok := range present {
		anyPresent = anyPresent || ok
	}
	if !anyPresent {
		// Even under total failure the caller gets a tree to render
		root.Status = models.StatusError
		root.Reason = "no root could be read"
		return root, state
	}

	c.compareDir(ctx, state, root, "", present)
	return root, state
}

// compareDir fills in the children and status of a directory node. The
// calling goroutine owns the node; children are assembled here and
// published once, immutably, when the function returns.
func (c *Comparator) compareDir(ctx context.Context, state *runState, node *models.ComparisonNode, relPath string, present []bool) {
	if err := ctx.Err(); err != nil {
		c.markCancelledNode(state, node)
		return
	}

	c.emit(Event{Type: "scan_dir", Path: relPath})
	c.logger.Debug(ctx, "scanning directory", logging.Fields{"path": relPath})

	tuples, dirErrs, err := state.walker.Children(ctx, relPath, present)
	if err != nil {
		c.markCancelledNode(state, node)
		return
	}

	for _, dirErr := range dirErrs {
		state.addError(dirErr)
	}
	state.tally(func(s *models.Statistics) { s.DirsScanned++ })

	children := make([]*models.ComparisonNode, len(tuples))
	g, gctx := errgroup.WithContext(ctx)

	for ti := range tuples {
		tuple := &tuples[ti]
		child := &models.ComparisonNode{
			Name:         tuple.Name,
			RelativePath: filepath.Join(relPath, tuple.Name),
			Entries:      tuple.Entries,
		}
		children[ti] = child

		state.tally(func(s *models.Statistics) {
			for i := range tuple.Entries {
				if tuple.Entries[i].Exists() {
					s.EntriesScanned++
				}
			}
		})

		if tuple.Filtered {
			child.Status = models.StatusFiltered
			child.Reason = tuple.Reason
			state.tally(func(s *models.Statistics) { s.Filtered++ })
			c.emit(Event{Type: "entry", Path: child.RelativePath, Status: child.Status})
			continue
		}

		if c.isDirTuple(tuple) {
			c.classifyDir(gctx, g, state, child, tuple)
			continue
		}

		c.classifyLeaf(gctx, state, child, tuple)
	}

	// Tasks localize their own failures; Wait only observes ctx
	_ = g.Wait()

	node.Children = children
	c.foldDirStatus(node, len(dirErrs) > 0)
}

// isDirTuple reports whether every present side of the tuple is a
// directory. Mixed tuples are classified as changed leaves.
func (c *Comparator) isDirTuple(tuple *walk.Tuple) bool {
	dirs, present := 0, 0
	for i := range tuple.Entries {
		if !tuple.Entries[i].Exists() {
			continue
		}
		present++
		if tuple.Entries[i].IsDir() {
			dirs++
		}
	}
	return present > 0 && dirs == present
}

// classifyDir recurses into a directory tuple, concurrently when a worker
// slot is free, inline otherwise. Directories present on a single side
// are classified wholesale as New/Deleted and not descended, which avoids
// pointless I/O under a one-sided subtree.
func (c *Comparator) classifyDir(ctx context.Context, g *errgroup.Group, state *runState, child *models.ComparisonNode, tuple *walk.Tuple) {
	presence, oneSided := c.presenceStatus(tuple.Entries)

	presentDirs := 0
	childPresent := make([]bool, len(tuple.Entries))
	for i := range tuple.Entries {
		if tuple.Entries[i].IsDir() && tuple.Entries[i].Err == nil {
			childPresent[i] = true
			presentDirs++
		}
	}

	if oneSided && presentDirs <= 1 {
		child.Status = presence
		child.Reason = "directory exists on one side only"
		c.tallyStatus(state, child.Status)
		c.emit(Event{Type: "entry", Path: child.RelativePath, Status: child.Status})
		return
	}

	recurse := func() error {
		c.compareDir(ctx, state, child, child.RelativePath, childPresent)
		if presence != "" && child.Status != models.StatusCancelled {
			// Missing sides override the folded status: the subtree is
			// new/deleted as a whole, children keep their own statuses
			child.Status = presence
		}
		c.tallyStatus(state, child.Status)
		c.emit(Event{Type: "entry", Path: child.RelativePath, Status: child.Status})
		return nil
	}

	if state.sem.TryAcquire(1) {
		g.Go(func() error {
			defer state.sem.Release(1)
			return recurse()
		})
		return
	}
	_ = recurse()
}

// classifyLeaf assigns a status to a file (or symlink) tuple
func (c *Comparator) classifyLeaf(ctx context.Context, state *runState, child *models.ComparisonNode, tuple *walk.Tuple) {
	if err := ctx.Err(); err != nil {
		c.markCancelledNode(state, child)
		return
	}

	status, reason := c.leafStatus(ctx, state, tuple)
	status = applyOverlay(c.overlay, child.RelativePath, status)

	child.Status = status
	child.Reason = reason
	c.tallyStatus(state, status)
	c.emit(Event{Type: "entry", Path: child.RelativePath, Status: status})
}

func (c *Comparator) leafStatus(ctx context.Context, state *runState, tuple *walk.Tuple) (models.Status, string) {
	for i := range tuple.Entries {
		if tuple.Entries[i].Err != nil {
			state.addError(&models.CompareError{
				RelativePath: tuple.Entries[i].RelativePath,
				Side:         i,
				Err:          tuple.Entries[i].Err,
			})
			return models.StatusError, tuple.Entries[i].Err.Error()
		}
	}

	if presence, oneSided := c.presenceStatus(tuple.Entries); oneSided {
		if presence == models.StatusNew {
			return presence, "entry exists on the reference side only"
		}
		return presence, "entry is missing from the reference side"
	}

	// Mixed directory/file tuples never reach the equality engine
	dirs := 0
	for i := range tuple.Entries {
		if tuple.Entries[i].IsDir() {
			dirs++
		}
	}
	if dirs > 0 {
		return models.StatusChanged, "entry types differ between sides"
	}

	comp := c.equality.Compare(ctx, c.sides, tuple.Entries)
	state.tally(func(s *models.Statistics) {
		s.FilesRead += comp.FilesRead
		s.BytesRead += comp.BytesRead
	})

	switch comp.Result {
	case compare.Same, compare.SameFiltered:
		return models.StatusSame, comp.Reason
	case compare.Different:
		return models.StatusChanged, comp.Reason
	default:
		if ctx.Err() != nil {
			state.markCancelled()
			return models.StatusCancelled, "comparison cancelled"
		}
		if compErr, ok := comp.Err.(*models.CompareError); ok {
			state.addError(compErr)
		} else if comp.Err != nil {
			state.addError(&models.CompareError{RelativePath: tuple.Entries[0].RelativePath, Err: comp.Err})
		}
		return models.StatusError, comp.Reason
	}
}

// presenceStatus reports New/Deleted when some sides are missing. Which
// label applies depends on the configured reference side.
func (c *Comparator) presenceStatus(entries []models.Entry) (models.Status, bool) {
	missing := 0
	for i := range entries {
		if !entries[i].Exists() {
			missing++
		}
	}
	if missing == 0 {
		return "", false
	}
	if entries[c.reference].Exists() {
		return models.StatusNew, true
	}
	return models.StatusDeleted, true
}

// foldDirStatus derives the directory status from its children per the
// invariant: Same iff every non-filtered child is Same, any difference
// below makes it Changed, no visible children makes it Empty. Listing
// errors taint an otherwise clean directory.
func (c *Comparator) foldDirStatus(node *models.ComparisonNode, dirErrored bool) {
	if node.Status == models.StatusCancelled {
		return
	}

	statuses := make([]models.Status, len(node.Children))
	for i, child := range node.Children {
		statuses[i] = child.Status
	}

	folded := models.FoldStatuses(statuses)
	if dirErrored && (folded == models.StatusSame || folded == models.StatusEmpty) {
		folded = models.StatusError
		node.Reason = "directory could not be fully read"
	}
	node.Status = folded

	if folded == models.StatusEmpty {
		node.Reason = "no visible entries"
	}
}

func (c *Comparator) tallyStatus(state *runState, status models.Status) {
	state.tally(func(s *models.Statistics) {
		switch status {
		case models.StatusSame:
			s.Same++
		case models.StatusChanged:
			s.Changed++
		case models.StatusNew:
			s.New++
		case models.StatusDeleted:
			s.Deleted++
		case models.StatusError:
			s.Errored++
		case models.StatusFiltered:
			s.Filtered++
		case models.StatusEmpty:
			s.EmptyDirs++
		}
	})
}

func (c *Comparator) markCancelledNode(state *runState, node *models.ComparisonNode) {
	state.markCancelled()
	node.Status = models.StatusCancelled
	node.Reason = "comparison cancelled before this subtree was explored"
}

func (c *Comparator) emit(event Event) {
	if c.progress != nil {
		c.progress(event)
	}
}
