package upload

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nunu-cli/internal/infra/api"
	apperrors "nunu-cli/internal/pkg/errors"
	"nunu-cli/internal/pkg/progress"
)

type abortCall struct {
	BuildID, UploadID, ObjectKey string
}

// memTransport is a scripted in-memory backend and storage
type memTransport struct {
	partSize       int64
	totalPartsSkew int // added to the announced part count
	failPart       int
	dropURLFor     int
	blockPart      int
	failSingle     bool
	delay          time.Duration
	abortErr       error

	blocked     chan struct{}
	blockedOnce sync.Once

	inFlight atomic.Int32
	peak     atomic.Int32

	mu              sync.Mutex
	requests        []api.UploadRequest
	batches         [][]int
	partData        map[int][]byte
	singleData      []byte
	completed       []api.UploadedPart
	multipartCalls  int
	singleCompletes []string
	aborts          []abortCall
}

func newMemTransport(partSize int64) *memTransport {
	return &memTransport{
		partSize: partSize,
		partData: make(map[int][]byte),
		blocked:  make(chan struct{}),
	}
}

func (m *memTransport) RequestUploadURL(ctx context.Context, req api.UploadRequest) (*api.SinglePartUploadResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return &api.SinglePartUploadResponse{BuildID: "build-s", UploadURL: "mem://single", ObjectKey: "builds/build-s"}, nil
}

func (m *memTransport) InitiateUpload(ctx context.Context, req api.UploadRequest) (*api.MultipartUploadResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	total := int((req.FileSize + m.partSize - 1) / m.partSize)
	if total == 0 {
		total = 1
	}
	return &api.MultipartUploadResponse{
		BuildID:    "build-1",
		UploadID:   "upload-1",
		ObjectKey:  "builds/build-1",
		TotalParts: total + m.totalPartsSkew,
		PartSize:   m.partSize,
	}, nil
}

func (m *memTransport) RequestPartURLs(ctx context.Context, uploadID, objectKey string, partNumbers []int) (*api.PartURLsResponse, error) {
	m.mu.Lock()
	m.batches = append(m.batches, append([]int(nil), partNumbers...))
	m.mu.Unlock()

	resp := &api.PartURLsResponse{}
	for _, n := range partNumbers {
		if n == m.dropURLFor {
			continue
		}
		resp.UploadURLs = append(resp.UploadURLs, api.PartURL{PartNumber: n, URL: fmt.Sprintf("mem://part/%d", n)})
	}
	return resp, nil
}

func (m *memTransport) UploadPart(ctx context.Context, url string, data []byte) (string, error) {
	n, _ := strconv.Atoi(strings.TrimPrefix(url, "mem://part/"))

	current := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.peak.Load()
		if current <= peak || m.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	if n == m.blockPart {
		m.blockedOnce.Do(func() { close(m.blocked) })
		<-ctx.Done()
		return "", apperrors.NewCancelledError("Upload cancelled", ctx.Err())
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if n == m.failPart {
		return "", apperrors.NewUploadError("connection reset", nil)
	}

	m.mu.Lock()
	m.partData[n] = append([]byte(nil), data...)
	m.mu.Unlock()
	return fmt.Sprintf("etag-%d", n), nil
}

func (m *memTransport) UploadBytes(ctx context.Context, url string, data []byte, tracker *progress.Tracker) error {
	if m.failSingle {
		return apperrors.NewStorageError("Storage rejected the upload", 403, "expired")
	}
	for off := 0; off < len(data); off += 1000 {
		end := min(off+1000, len(data))
		tracker.Update(int64(end - off))
	}
	m.mu.Lock()
	m.singleData = append([]byte(nil), data...)
	m.mu.Unlock()
	return nil
}

func (m *memTransport) CompleteUpload(ctx context.Context, buildID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.singleCompletes = append(m.singleCompletes, buildID)
	return nil
}

func (m *memTransport) CompleteMultipartUpload(ctx context.Context, buildID, uploadID, objectKey string, parts []api.UploadedPart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.multipartCalls++
	m.completed = append([]api.UploadedPart(nil), parts...)
	return nil
}

func (m *memTransport) AbortUpload(ctx context.Context, buildID, uploadID, objectKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aborts = append(m.aborts, abortCall{buildID, uploadID, objectKey})
	return m.abortErr
}

// assembled joins the uploaded parts in part order
func (m *memTransport) assembled() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []byte
	for i := 1; i <= len(m.partData); i++ {
		out = append(out, m.partData[i]...)
	}
	return out
}

// recordingSink collects every value delivered to it
type recordingSink struct {
	mu     sync.Mutex
	values []int64
}

func (s *recordingSink) Update(transferred, total int64) {
	s.mu.Lock()
	s.values = append(s.values, transferred)
	s.mu.Unlock()
}

func (s *recordingSink) snapshot() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.values...)
}
