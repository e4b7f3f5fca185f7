package ratelimit

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// Limiter caps the combined bandwidth of every reader created from it.
// A nil *Limiter means unlimited.
type Limiter struct {
	limiter *rate.Limiter
	burst   int
}

// NewLimiter creates a limiter for bytesPerSecond. Values <= 0 disable
// limiting and return nil.
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	// Allow burst up to one second of traffic, capped so a single Read
	// never waits for more tokens than the bucket holds
	burst := int(bytesPerSecond)
	if burst > 4*1024*1024 {
		burst = 4 * 1024 * 1024
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burst),
		burst:   burst,
	}
}

// Limit returns the configured rate in bytes per second, or 0 if unlimited
func (l *Limiter) Limit() int64 {
	if l == nil {
		return 0
	}
	return int64(l.limiter.Limit())
}

// NewReader wraps reader so that reads draw from the shared bucket.
// The returned reader stops with ctx's error once ctx is done.
func (l *Limiter) NewReader(ctx context.Context, reader io.Reader) io.Reader {
	if l == nil {
		return reader
	}
	return &Reader{ctx: ctx, reader: reader, limiter: l}
}

// Reader wraps an io.Reader with rate limiting
type Reader struct {
	ctx     context.Context
	reader  io.Reader
	limiter *Limiter
}

// Read implements io.Reader with rate limiting
func (rlr *Reader) Read(p []byte) (n int, err error) {
	if len(p) > rlr.limiter.burst {
		p = p[:rlr.limiter.burst]
	}
	n, err = rlr.reader.Read(p)
	if n > 0 {
		if waitErr := rlr.limiter.limiter.WaitN(rlr.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}
