package ratelimit

import (
	"context"
	"io"
	"sync"
	"time"
)

// minBucketSize keeps the burst window large enough that chunked reads
// are not throttled one buffer at a time
const minBucketSize = 65536

// Limiter is a token bucket shared by every reader of one comparison
// run, so the configured budget caps aggregate throughput rather than
// per-file throughput. A nil Limiter means no limiting.
type Limiter struct {
	bytesPerSecond int64

	mu         sync.Mutex
	tokens     int64
	bucketSize int64
	lastRefill time.Time
}

// NewLimiter creates a limiter with the given bytes-per-second budget.
// A budget of zero or less disables limiting and returns nil.
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	bucketSize := bytesPerSecond
	if bucketSize < minBucketSize {
		bucketSize = minBucketSize
	}

	return &Limiter{
		bytesPerSecond: bytesPerSecond,
		tokens:         bucketSize,
		bucketSize:     bucketSize,
		lastRefill:     time.Now(),
	}
}

// wait blocks until the bucket holds at least needed tokens
func (l *Limiter) wait(needed int64) {
	for {
		l.mu.Lock()
		l.refill()
		if l.tokens >= needed {
			l.mu.Unlock()
			return
		}
		deficit := needed - l.tokens
		l.mu.Unlock()

		pause := time.Duration(float64(deficit) / float64(l.bytesPerSecond) * float64(time.Second))
		if pause < time.Millisecond {
			pause = time.Millisecond
		}
		time.Sleep(pause)
	}
}

// refill credits tokens for the time elapsed since the last refill.
// Caller holds the lock.
func (l *Limiter) refill() {
	now := time.Now()
	credit := int64(float64(now.Sub(l.lastRefill)) / float64(time.Second) * float64(l.bytesPerSecond))
	if credit <= 0 {
		return
	}
	l.tokens += credit
	if l.tokens > l.bucketSize {
		l.tokens = l.bucketSize
	}
	l.lastRefill = now
}

// consume debits tokens actually read
func (l *Limiter) consume(n int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens -= n
	if l.tokens < 0 {
		l.tokens = 0
	}
}

// Reader throttles an io.Reader against a shared Limiter and honors
// context cancellation between chunks
type Reader struct {
	reader  io.Reader
	limiter *Limiter
	ctx     context.Context
}

// NewReader wraps a reader with rate limiting. With a nil limiter the
// original reader is returned unchanged.
func NewReader(ctx context.Context, reader io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return reader
	}
	return &Reader{reader: reader, limiter: limiter, ctx: ctx}
}

// Read implements io.Reader, waiting for bucket capacity before each
// chunk
func (r *Reader) Read(p []byte) (int, error) {
	select {
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	default:
	}

	toRead := len(p)
	if toRead > int(r.limiter.bucketSize) {
		toRead = int(r.limiter.bucketSize)
	}
	r.limiter.wait(int64(toRead))

	n, err := r.reader.Read(p[:toRead])
	if n > 0 {
		r.limiter.consume(int64(n))
	}
	return n, err
}

// ReadCloser is a Reader that also closes the wrapped source
type ReadCloser struct {
	Reader
	closer io.Closer
}

// NewReadCloser wraps an io.ReadCloser with rate limiting. With a nil
// limiter the original is returned unchanged.
func NewReadCloser(ctx context.Context, rc io.ReadCloser, limiter *Limiter) io.ReadCloser {
	if limiter == nil {
		return rc
	}
	return &ReadCloser{
		Reader: Reader{reader: rc, limiter: limiter, ctx: ctx},
		closer: rc,
	}
}

// Close closes the wrapped source
func (rc *ReadCloser) Close() error {
	return rc.closer.Close()
}
