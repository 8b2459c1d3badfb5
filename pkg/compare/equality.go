package compare

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sdejongh/diffnorris/pkg/filter"
	"github.com/sdejongh/diffnorris/pkg/models"
	"github.com/sdejongh/diffnorris/pkg/ratelimit"
	"github.com/sdejongh/diffnorris/pkg/storage"
)

// Result represents the outcome of comparing one file tuple
type Result string

const (
	// Same indicates the payloads are identical
	Same Result = "same"
	// SameFiltered indicates the payloads are identical only after text
	// normalization and filtering
	SameFiltered Result = "same_filtered"
	// Different indicates the payloads differ
	Different Result = "different"
	// Error indicates an I/O failure prevented the comparison; this is
	// never silently reported as Same or Different
	Error Result = "error"
)

// Comparison holds the result of comparing the payloads of one tuple
type Comparison struct {
	Result    Result
	Reason    string
	FilesRead int
	BytesRead int64
	Err       error
}

// Equality decides whether the file payloads of a tuple are equivalent
// under a Policy and an active filter set. It is stateless apart from its
// buffer pool and safe for concurrent use.
type Equality struct {
	policy  Policy
	filters *filter.Set
	limiter *ratelimit.Limiter
	bufPool *sync.Pool
}

// NewEquality creates an equality engine for the given policy and filters
func NewEquality(policy Policy, filters *filter.Set) *Equality {
	if filters == nil {
		filters = filter.Empty()
	}
	bufSize := policy.bufferSize()
	return &Equality{
		policy:  policy,
		filters: filters,
		limiter: ratelimit.NewLimiter(policy.BandwidthLimit),
		bufPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, bufSize)
				return &buf
			},
		},
	}
}

// Policy returns the policy this engine was built with
func (e *Equality) Policy() Policy {
	return e.policy
}

// Compare compares the payloads of the present entries in a tuple. The
// caller is responsible for tuples with missing sides (classified as New
// or Deleted upstream) and for directories; this predicate only sees
// regular files and symlinks. Symmetric: the order of sides never changes
// the verdict.
func (e *Equality) Compare(ctx context.Context, sides []storage.Backend, entries []models.Entry) *Comparison {
	present := make([]int, 0, len(entries))
	for i := range entries {
		if entries[i].Exists() {
			present = append(present, i)
		}
	}
	if len(present) < 2 {
		return &Comparison{Result: Different, Reason: "entry is present on one side only"}
	}

	// Symlinks that survive the walk (follow mode resolves them, skip
	// mode filters them) are never content-compared.
	for _, i := range present {
		if entries[i].Kind == models.KindSymlink {
			return &Comparison{Result: Different, Reason: "symbolic link compared against regular file"}
		}
	}

	// Comparing a path against itself is trivially equal
	samePath := true
	for _, i := range present[1:] {
		if entries[i].AbsolutePath != entries[present[0]].AbsolutePath {
			samePath = false
			break
		}
	}
	if samePath {
		return &Comparison{Result: Same, Reason: "all sides are the same file"}
	}

	// Zero-byte files are equal in both modes, no reads needed
	allEmpty := true
	for _, i := range present {
		if entries[i].Size != 0 {
			allEmpty = false
			break
		}
	}
	if allEmpty {
		return &Comparison{Result: Same, Reason: "files are empty"}
	}

	if e.policy.Shallow {
		return e.shallowCompare(entries, present)
	}
	return e.deepCompare(ctx, sides, entries, present)
}

// shallowCompare decides equality from size and mtime alone. This trades
// correctness for speed on large or slow trees; no content is read.
func (e *Equality) shallowCompare(entries []models.Entry, present []int) *Comparison {
	first := &entries[present[0]]

	for _, i := range present[1:] {
		if entries[i].Size != first.Size {
			return &Comparison{
				Result: Different,
				Reason: fmt.Sprintf("file sizes differ (%d vs %d)", first.Size, entries[i].Size),
			}
		}
	}

	if e.policy.TimeResolution == IgnoreTimestamps {
		return &Comparison{Result: Same, Reason: "sizes match (timestamps ignored)"}
	}

	for _, i := range present[1:] {
		delta := entries[i].ModTime.Sub(first.ModTime)
		if delta < 0 {
			delta = -delta
		}
		if delta.Nanoseconds() > e.policy.TimeResolution {
			return &Comparison{
				Result: Different,
				Reason: fmt.Sprintf("timestamps differ by %s (tolerance %dns)", delta, e.policy.TimeResolution),
			}
		}
	}

	return &Comparison{Result: Same, Reason: "size and timestamp match"}
}

// deepCompare reads content from every present side and compares it
// byte-for-byte, falling back to normalized comparison when text filters
// or blank-line handling are active.
func (e *Equality) deepCompare(ctx context.Context, sides []storage.Backend, entries []models.Entry, present []int) *Comparison {
	needContents := e.policy.IgnoreBlankLines ||
		(e.policy.ApplyTextFilters && e.filters.HasTextFilters())

	sameSize := true
	first := &entries[present[0]]
	for _, i := range present[1:] {
		if entries[i].Size != first.Size {
			sameSize = false
			break
		}
	}

	// Without normalization, unequal sizes already prove a difference
	if !needContents && !sameSize {
		return &Comparison{Result: Different, Reason: "file sizes differ"}
	}

	if !needContents {
		return e.streamCompare(ctx, sides, entries, present)
	}
	return e.normalizedCompare(ctx, sides, entries, present, sameSize)
}

// streamCompare compares equally-sized files chunk by chunk without
// holding whole files in memory
func (e *Equality) streamCompare(ctx context.Context, sides []storage.Backend, entries []models.Entry, present []int) *Comparison {
	readers := make([]io.Reader, len(present))
	closers := make([]io.Closer, 0, len(present))
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	for idx, i := range present {
		rc, err := sides[i].Read(ctx, entries[i].RelativePath)
		if err != nil {
			return &Comparison{
				Result: Error,
				Reason: "failed to open file",
				Err:    &models.CompareError{RelativePath: entries[i].RelativePath, Side: i, Err: err},
			}
		}
		throttled := ratelimit.NewReadCloser(ctx, rc, e.limiter)
		closers = append(closers, throttled)
		readers[idx] = throttled
	}

	refBufPtr := e.bufPool.Get().(*[]byte)
	defer e.bufPool.Put(refBufPtr)
	refBuf := *refBufPtr

	otherBufPtr := e.bufPool.Get().(*[]byte)
	defer e.bufPool.Put(otherBufPtr)
	otherBuf := *otherBufPtr

	var bytesRead int64
	for {
		if err := ctx.Err(); err != nil {
			return &Comparison{Result: Error, Reason: "comparison cancelled", Err: err}
		}

		n, err := readers[0].Read(refBuf)
		if n > 0 {
			bytesRead += int64(n)
			for idx := 1; idx < len(readers); idx++ {
				if _, rerr := io.ReadFull(readers[idx], otherBuf[:n]); rerr != nil {
					// Sizes matched at stat time; a short read means the
					// file changed mid-walk
					return &Comparison{
						Result:    Error,
						Reason:    "file changed during comparison",
						BytesRead: bytesRead,
						Err: &models.CompareError{
							RelativePath: entries[present[idx]].RelativePath,
							Side:         present[idx],
							Err:          rerr,
						},
					}
				}
				bytesRead += int64(n)
				if !bytes.Equal(refBuf[:n], otherBuf[:n]) {
					return &Comparison{
						Result:    Different,
						Reason:    "content differs",
						FilesRead: len(present),
						BytesRead: bytesRead,
					}
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return &Comparison{
				Result:    Error,
				Reason:    "read failed",
				BytesRead: bytesRead,
				Err: &models.CompareError{
					RelativePath: entries[present[0]].RelativePath,
					Side:         present[0],
					Err:          err,
				},
			}
		}
	}

	return &Comparison{
		Result:    Same,
		Reason:    "content matches",
		FilesRead: len(present),
		BytesRead: bytesRead,
	}
}

// normalizedCompare reads whole files, tries a raw comparison first, then
// compares the normalized (line-ending folded, blank-line trimmed,
// text-filtered) forms. Binary content is never normalized.
func (e *Equality) normalizedCompare(ctx context.Context, sides []storage.Backend, entries []models.Entry, present []int, sameSize bool) *Comparison {
	contents := make([][]byte, len(present))
	var bytesRead int64

	for idx, i := range present {
		if err := ctx.Err(); err != nil {
			return &Comparison{Result: Error, Reason: "comparison cancelled", BytesRead: bytesRead, Err: err}
		}

		rc, err := sides[i].Read(ctx, entries[i].RelativePath)
		if err != nil {
			return &Comparison{
				Result:    Error,
				Reason:    "failed to open file",
				BytesRead: bytesRead,
				Err:       &models.CompareError{RelativePath: entries[i].RelativePath, Side: i, Err: err},
			}
		}
		throttled := ratelimit.NewReadCloser(ctx, rc, e.limiter)
		data, err := io.ReadAll(throttled)
		throttled.Close()
		if err != nil {
			return &Comparison{
				Result:    Error,
				Reason:    "read failed",
				BytesRead: bytesRead,
				Err:       &models.CompareError{RelativePath: entries[i].RelativePath, Side: i, Err: err},
			}
		}
		contents[idx] = data
		bytesRead += int64(len(data))
	}

	rawEqual := sameSize
	if rawEqual {
		for idx := 1; idx < len(contents); idx++ {
			if !bytes.Equal(contents[0], contents[idx]) {
				rawEqual = false
				break
			}
		}
	}
	if rawEqual {
		return &Comparison{Result: Same, Reason: "content matches", FilesRead: len(present), BytesRead: bytesRead}
	}

	for _, data := range contents {
		if isBinary(data) {
			return &Comparison{Result: Different, Reason: "binary content differs", FilesRead: len(present), BytesRead: bytesRead}
		}
	}

	applyFilters := e.policy.ApplyTextFilters && e.filters.HasTextFilters()
	normEqual := true
	ref := normalize(contents[0], e.filters, applyFilters, e.policy.IgnoreBlankLines)
	for idx := 1; idx < len(contents); idx++ {
		norm := normalize(contents[idx], e.filters, applyFilters, e.policy.IgnoreBlankLines)
		if !bytes.Equal(ref, norm) {
			normEqual = false
			break
		}
	}
	if normEqual {
		return &Comparison{Result: SameFiltered, Reason: "identical after filtering", FilesRead: len(present), BytesRead: bytesRead}
	}
	return &Comparison{Result: Different, Reason: "content differs after filtering", FilesRead: len(present), BytesRead: bytesRead}
}
