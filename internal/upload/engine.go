// Package upload drives a build artifact through the upload protocol:
// initiate, transfer (one PUT or many parts), then complete or abort.
package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"

	"nunu-cli/internal/infra/api"
	"nunu-cli/internal/infra/storage"
	applog "nunu-cli/internal/log"
	apperrors "nunu-cli/internal/pkg/errors"
	"nunu-cli/internal/pkg/format"
	"nunu-cli/internal/pkg/progress"
)

// MaxSinglePartSize is the largest file sent in a single PUT
const MaxSinglePartSize int64 = 3 << 30

// DefaultAbortTimeout bounds each best-effort abort call
const DefaultAbortTimeout = 30 * time.Second

// ControlPlane is the backend side of the protocol, implemented by *api.Client
type ControlPlane interface {
	RequestUploadURL(ctx context.Context, req api.UploadRequest) (*api.SinglePartUploadResponse, error)
	InitiateUpload(ctx context.Context, req api.UploadRequest) (*api.MultipartUploadResponse, error)
	RequestPartURLs(ctx context.Context, uploadID, objectKey string, partNumbers []int) (*api.PartURLsResponse, error)
	CompleteUpload(ctx context.Context, buildID string) error
	CompleteMultipartUpload(ctx context.Context, buildID, uploadID, objectKey string, parts []api.UploadedPart) error
	AbortUpload(ctx context.Context, buildID, uploadID, objectKey string) error
}

// Engine uploads files and remembers which sessions are still open
type Engine struct {
	control      ControlPlane
	storage      storage.Uploader
	logger       *applog.LogContext
	registry     *registry
	abortTimeout time.Duration

	// largest size sent in one PUT, MaxSinglePartSize outside tests
	singlePartLimit int64
}

// NewEngine creates an engine. logger may be nil.
func NewEngine(control ControlPlane, uploader storage.Uploader, logger *applog.LogContext) *Engine {
	return &Engine{
		control:      control,
		storage:      uploader,
		logger:       logger,
		registry:     newRegistry(),
		abortTimeout: DefaultAbortTimeout,

		singlePartLimit: MaxSinglePartSize,
	}
}

// SetAbortTimeout changes the timeout applied to each abort call
func (e *Engine) SetAbortTimeout(d time.Duration) {
	e.abortTimeout = d
}

// ShouldUseMultipart reports whether a file of size bytes goes through the
// multipart flow. Exactly MaxSinglePartSize still fits in one PUT.
func ShouldUseMultipart(size int64, force bool) bool {
	return multipart(size, force, MaxSinglePartSize)
}

func multipart(size int64, force bool, limit int64) bool {
	return force || size > limit
}

// UploadFile uploads filePath and returns the build ID once the backend has
// confirmed completion.
//
// If ctx is cancelled the flow returns a Cancelled error and its session
// stays registered; call AbortInFlight to release it. Any other failure of
// a multipart flow aborts the session once before the error is returned.
func (e *Engine) UploadFile(ctx context.Context, filePath string, opts Options) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		return "", apperrors.NewFileIOError(fmt.Sprintf("Cannot access %s", filePath), err)
	}
	if stat.IsDir() {
		return "", apperrors.NewFileIOError(fmt.Sprintf("%s is a directory", filePath), nil)
	}

	size := stat.Size()
	if multipart(size, opts.ForceMultipart, e.singlePartLimit) {
		e.logger.WriteLog("UPLOAD", "Uploading %s (%s) using multipart upload", filePath, format.Bytes(size))
		return e.uploadMultipart(ctx, filePath, size, &opts)
	}
	e.logger.WriteLog("UPLOAD", "Uploading %s (%s) using single-part upload", filePath, format.Bytes(size))
	return e.uploadSinglePart(ctx, filePath, size, &opts)
}

func (e *Engine) uploadSinglePart(ctx context.Context, filePath string, size int64, opts *Options) (string, error) {
	resp, err := e.control.RequestUploadURL(ctx, opts.request(filepath.Base(filePath), size))
	if err != nil {
		return "", beforeSession(ctx, err)
	}

	session := Session{FilePath: filePath, BuildID: resp.BuildID, ObjectKey: resp.ObjectKey}
	e.begin(session, opts)

	if err := e.transferSinglePart(ctx, session, resp.UploadURL, size, opts); err != nil {
		// single-part builds that never complete are expired by the backend
		return "", e.fail(ctx, session, err, false)
	}

	e.registry.remove(filePath)
	e.logger.WriteLog("UPLOAD", "Build ID: %s", session.BuildID)
	return session.BuildID, nil
}

func (e *Engine) transferSinglePart(ctx context.Context, session Session, url string, size int64, opts *Options) error {
	data, err := readFile(session.FilePath, size)
	if err != nil {
		return err
	}

	tracker := progress.NewTracker(size, opts.Progress)
	tracker.Update(0)
	if err := e.storage.UploadBytes(ctx, url, data, tracker); err != nil {
		return err
	}
	// the body may be consumed in ways the counting reader cannot see
	if rest := size - tracker.Transferred(); rest > 0 {
		tracker.Update(rest)
	}
	e.logger.WriteLog("UPLOAD", "Transferred %s in %s", format.Bytes(size), format.Duration(tracker.Elapsed()))

	return e.control.CompleteUpload(ctx, session.BuildID)
}

func (e *Engine) uploadMultipart(ctx context.Context, filePath string, size int64, opts *Options) (string, error) {
	resp, err := e.control.InitiateUpload(ctx, opts.request(filepath.Base(filePath), size))
	if err != nil {
		return "", beforeSession(ctx, err)
	}

	session := Session{
		FilePath:   filePath,
		BuildID:    resp.BuildID,
		ObjectKey:  resp.ObjectKey,
		UploadID:   resp.UploadID,
		PartSize:   resp.PartSize,
		TotalParts: resp.TotalParts,
	}
	e.begin(session, opts)
	e.logger.WriteLog("UPLOAD", "Multipart upload initiated - %d parts of %s each",
		session.TotalParts, format.Bytes(session.PartSize))

	if err := e.transferMultipart(ctx, session, size, opts); err != nil {
		return "", e.fail(ctx, session, err, true)
	}

	e.registry.remove(filePath)
	e.logger.WriteLog("UPLOAD", "Build ID: %s", session.BuildID)
	return session.BuildID, nil
}

func (e *Engine) transferMultipart(ctx context.Context, session Session, size int64, opts *Options) error {
	parts, err := PlanParts(size, session.PartSize, session.TotalParts)
	if err != nil {
		return err
	}
	data, err := readFile(session.FilePath, size)
	if err != nil {
		return err
	}

	tracker := progress.NewTracker(size, opts.Progress)
	tracker.Update(0)

	uploader := &partUploader{
		control:     e.control,
		storage:     e.storage,
		session:     session,
		data:        data,
		parts:       parts,
		concurrency: opts.Concurrency,
		tracker:     tracker,
		logger:      e.logger,
	}
	uploaded, err := uploader.run(ctx)
	if err != nil {
		return err
	}

	// storage rejects out-of-order part lists
	sort.Slice(uploaded, func(i, j int) bool {
		return uploaded[i].PartNumber < uploaded[j].PartNumber
	})
	if err := checkPartSet(uploaded, session.TotalParts); err != nil {
		return err
	}

	e.logger.WriteLog("UPLOAD", "Transferred %s in %s, completing multipart upload with %d parts",
		format.Bytes(size), format.Duration(tracker.Elapsed()), len(uploaded))
	return e.control.CompleteMultipartUpload(ctx, session.BuildID, session.UploadID, session.ObjectKey, uploaded)
}

// begin registers the session and notifies the observer
func (e *Engine) begin(session Session, opts *Options) {
	e.registry.add(session)
	if opts.OnSession != nil {
		opts.OnSession(session.BuildID, session.UploadID, session.ObjectKey)
	}
}

// fail ends a flow that got past initiate. A cancelled flow keeps its
// session registered for AbortInFlight; any other failure releases it,
// aborting first when abort is set.
func (e *Engine) fail(ctx context.Context, session Session, err error, abort bool) error {
	if ctx.Err() != nil {
		e.logger.WriteLog("UPLOAD", "Upload of %s cancelled: %v", session.FilePath, err)
		return cancelled(ctx, err)
	}

	e.logger.WriteLog("UPLOAD", "Upload of %s failed: %v", session.FilePath, err)
	if _, ok := e.registry.take(session.FilePath); ok && abort {
		if abortErr := e.abort(session); abortErr != nil {
			e.logger.WriteLog("UPLOAD", "Failed to abort build %s: %v", session.BuildID, abortErr)
		}
	}
	return err
}

// abort releases a session with its own timeout; the flow context may
// already be unusable
func (e *Engine) abort(session Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), e.abortTimeout)
	defer cancel()

	e.logger.WriteLog("UPLOAD", "Aborting build %s (upload %s)", session.BuildID, session.UploadID)
	return e.control.AbortUpload(ctx, session.BuildID, session.UploadID, session.ObjectKey)
}

// InFlight returns the sessions that were initiated but neither completed
// nor released
func (e *Engine) InFlight() []Session {
	return e.registry.snapshot()
}

// AbortInFlight aborts every registered session once and forgets it.
// Failures are collected and returned, they do not stop the sweep.
func (e *Engine) AbortInFlight(ctx context.Context) error {
	var result *multierror.Error
	for _, s := range e.registry.snapshot() {
		session, ok := e.registry.take(s.FilePath)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", session.FilePath, err))
			continue
		}
		if err := e.abort(session); err != nil {
			e.logger.WriteLog("UPLOAD", "Failed to abort build %s: %v", session.BuildID, err)
			result = multierror.Append(result, fmt.Errorf("%s: %w", session.FilePath, err))
			continue
		}
		e.logger.WriteLog("UPLOAD", "Aborted build %s for %s", session.BuildID, session.FilePath)
	}
	return result.ErrorOrNil()
}

// beforeSession maps an initiate/request failure
func beforeSession(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return cancelled(ctx, err)
	}
	return err
}

func cancelled(ctx context.Context, err error) error {
	if apperrors.IsType(err, apperrors.ErrorTypeCancelled) {
		return err
	}
	return apperrors.NewCancelledError("Upload cancelled", ctx.Err())
}

func readFile(filePath string, size int64) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, apperrors.NewFileIOError(fmt.Sprintf("Failed to read %s", filePath), err)
	}
	if int64(len(data)) != size {
		return nil, apperrors.NewFileIOError(fmt.Sprintf(
			"%s changed size during upload (%d bytes, expected %d)", filePath, len(data), size), nil)
	}
	return data, nil
}

// checkPartSet verifies a sorted part list holds 1..totalParts exactly once
func checkPartSet(parts []api.UploadedPart, totalParts int) error {
	if len(parts) != totalParts {
		return apperrors.NewUploadError(fmt.Sprintf(
			"Uploaded %d parts, expected %d", len(parts), totalParts), nil)
	}
	for i, p := range parts {
		if p.PartNumber != i+1 {
			return apperrors.NewUploadError(fmt.Sprintf(
				"Part list is not contiguous at position %d (part %d)", i+1, p.PartNumber), nil)
		}
	}
	return nil
}
