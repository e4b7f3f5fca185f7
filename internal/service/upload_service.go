package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gioco-play/easy-i18n/i18n"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"nunu-cli/internal/domain/build"
	applog "nunu-cli/internal/log"
	"nunu-cli/internal/metadata"
	apperrors "nunu-cli/internal/pkg/errors"
	"nunu-cli/internal/pkg/progress"
	"nunu-cli/internal/upload"
)

// FileUploader uploads one file and can tear down whatever is left open.
// It is implemented by *upload.Engine.
type FileUploader interface {
	UploadFile(ctx context.Context, filePath string, opts upload.Options) (string, error)
	AbortInFlight(ctx context.Context) error
}

// UploadRequest is one invocation of the upload command
type UploadRequest struct {
	Files          []string // paths or glob patterns
	Name           string   // build name, used as a template for several files
	Platform       string   // empty: inferred per file
	Description    string
	UploadTimeout  int
	Tags           []string
	AutoDelete     bool
	DeletionPolicy string
	ForceMultipart bool
	Parallel       int // files in flight, and parts in flight per file
	Details        *metadata.BuildDetails
}

// Result is the outcome for one file
type Result struct {
	File    string
	BuildID string
	Err     error
}

// UploadService fans an invocation out over its files
type UploadService struct {
	uploader     FileUploader
	board        *progress.Board
	logger       *applog.LogContext
	abortTimeout time.Duration
}

// NewUploadService creates an upload service. board receives one bar per file.
func NewUploadService(uploader FileUploader, board *progress.Board, logger *applog.LogContext) *UploadService {
	return &UploadService{
		uploader:     uploader,
		board:        board,
		logger:       logger,
		abortTimeout: upload.DefaultAbortTimeout,
	}
}

// Upload uploads every file of req, at most req.Parallel at a time. A failed
// file does not stop the others. Results keep the order of the expanded file
// list; the returned error aggregates the failed files.
//
// When ctx is cancelled, sessions that were left open are aborted once every
// file has returned.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest) ([]Result, error) {
	files, err := ExpandFiles(req.Files)
	if err != nil {
		return nil, err
	}
	if err := normalize(&req); err != nil {
		return nil, err
	}

	s.logger.WriteLog("UPLOAD", "Uploading %d file(s), parallel=%d", len(files), req.Parallel)
	i18n.Printf("[nunu-cli] Uploading %d file(s)\n", len(files))

	results := make([]Result, len(files))
	var g errgroup.Group
	g.SetLimit(req.Parallel)
	for i, file := range files {
		g.Go(func() error {
			results[i] = s.uploadOne(ctx, file, len(files), req)
			return nil
		})
	}
	_ = g.Wait()
	s.board.Wait()

	if ctx.Err() != nil {
		s.abortInFlight()
	}

	var merr *multierror.Error
	for _, r := range results {
		if r.Err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", r.File, r.Err))
		}
	}
	return results, merr.ErrorOrNil()
}

func (s *UploadService) uploadOne(ctx context.Context, file string, fileCount int, req UploadRequest) Result {
	result := Result{File: file}

	// inferred from the name alone, so .app bundles get the platform hint
	platform := build.Platform(req.Platform)
	if platform == "" {
		inferred, err := build.InferPlatform(file)
		if err != nil {
			result.Err = err
			return result
		}
		platform = inferred
	}

	info := build.ValidateFile(file)
	if !info.IsValid {
		result.Err = apperrors.NewFileIOError(info.ErrorMessage, nil)
		return result
	}

	name := build.Name(req.Name, file, fileCount)
	s.logger.WriteLog("UPLOAD", "Uploading %s as %s (platform: %s)", file, name, platform)

	bar := s.board.NewBar(filepath.Base(file), info.Size)
	opts := upload.Options{
		Name:           name,
		Platform:       string(platform),
		Description:    req.Description,
		UploadTimeout:  req.UploadTimeout,
		Tags:           req.Tags,
		AutoDelete:     req.AutoDelete,
		DeletionPolicy: req.DeletionPolicy,
		ForceMultipart: req.ForceMultipart,
		Concurrency:    req.Parallel,
		Progress:       bar,
		Details:        req.Details,
		OnSession: func(buildID, uploadID, objectKey string) {
			s.logger.WriteLog("UPLOAD", "%s: build %s, upload %q, object %s", file, buildID, uploadID, objectKey)
		},
	}

	result.BuildID, result.Err = s.uploader.UploadFile(ctx, file, opts)
	bar.Done(result.Err == nil)
	if result.Err != nil {
		s.logger.WriteLog("UPLOAD", "%s failed: %v", file, result.Err)
	} else {
		s.logger.WriteLog("UPLOAD", "%s uploaded, build ID %s", file, result.BuildID)
	}
	return result
}

func (s *UploadService) abortInFlight() {
	ctx, cancel := context.WithTimeout(context.Background(), s.abortTimeout)
	defer cancel()

	i18n.Printf("[nunu-cli] Interrupted, aborting unfinished uploads...\n")
	if err := s.uploader.AbortInFlight(ctx); err != nil {
		s.logger.WriteLog("UPLOAD", "Abort sweep finished with errors: %v", err)
		i18n.Printf("[nunu-cli] Some uploads could not be aborted: %v\n", err)
	}
}

// normalize checks the invocation wide values and fills in defaults
func normalize(req *UploadRequest) error {
	if req.Parallel == 0 {
		req.Parallel = upload.DefaultConcurrency
	}
	if req.Parallel < 1 || req.Parallel > upload.MaxConcurrency {
		return apperrors.NewConfigError(fmt.Sprintf("Parallel value must be between 1 and %d, got %d", upload.MaxConcurrency, req.Parallel), nil)
	}
	if req.Platform != "" {
		p, err := build.ParsePlatform(req.Platform)
		if err != nil {
			return err
		}
		req.Platform = string(p)
	}
	if req.DeletionPolicy != "" {
		if !req.AutoDelete {
			return apperrors.NewConfigError("Deletion policy requires auto-delete to be enabled", nil)
		}
		p, err := build.ParseDeletionPolicy(req.DeletionPolicy)
		if err != nil {
			return err
		}
		req.DeletionPolicy = string(p)
	}
	return nil
}

// ExpandFiles resolves glob patterns and drops duplicates. Plain paths are
// kept even when missing so they are reported per file.
func ExpandFiles(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, apperrors.NewConfigError("No files specified for upload", nil)
	}

	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		key := filepath.Clean(path)
		if seen[key] {
			return
		}
		seen[key] = true
		files = append(files, path)
	}

	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[") {
			add(pattern)
			continue
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, apperrors.NewParsingError("file pattern", pattern, err)
		}
		if len(matches) == 0 {
			return nil, apperrors.NewConfigError(fmt.Sprintf("No files match pattern: %s", pattern), nil)
		}
		for _, m := range matches {
			add(m)
		}
	}
	return files, nil
}
