package progress

import (
	"sync"
	"sync/atomic"
	"time"
)

// Sink receives the cumulative number of bytes transferred for one file.
// Values delivered to a Sink never decrease.
type Sink interface {
	Update(transferred, total int64)
}

// SinkFunc adapts a plain function to Sink
type SinkFunc func(transferred, total int64)

// Update implements Sink
func (f SinkFunc) Update(transferred, total int64) {
	f(transferred, total)
}

// Tracker counts transferred bytes for one file. It is safe for concurrent
// use: Update may be called from several part uploads at once.
type Tracker struct {
	totalBytes       int64
	transferredBytes atomic.Int64
	sink             Sink

	mu       sync.Mutex
	reported int64

	startOnce sync.Once
	startTime time.Time
}

// NewTracker creates a new progress tracker. sink may be nil.
func NewTracker(totalBytes int64, sink Sink) *Tracker {
	return &Tracker{
		totalBytes: totalBytes,
		sink:       sink,
		reported:   -1,
	}
}

// Update adds bytes to the transferred counter and forwards the new total
// to the sink
func (pt *Tracker) Update(bytes int64) {
	pt.startOnce.Do(func() {
		pt.startTime = time.Now()
	})

	current := pt.transferredBytes.Add(bytes)
	if pt.sink == nil {
		return
	}

	pt.mu.Lock()
	defer pt.mu.Unlock()
	// a concurrent caller may already have reported a larger value
	if current <= pt.reported {
		return
	}
	pt.reported = current
	pt.sink.Update(current, pt.totalBytes)
}

// Transferred returns the number of bytes counted so far
func (pt *Tracker) Transferred() int64 {
	return pt.transferredBytes.Load()
}

// Total returns the expected number of bytes
func (pt *Tracker) Total() int64 {
	return pt.totalBytes
}

// Elapsed returns the time since the first Update, or zero if nothing was
// transferred yet
func (pt *Tracker) Elapsed() time.Duration {
	if pt.startTime.IsZero() {
		return 0
	}
	return time.Since(pt.startTime)
}
