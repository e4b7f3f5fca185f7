package upload

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"nunu-cli/internal/infra/api"
	"nunu-cli/internal/infra/storage"
	applog "nunu-cli/internal/log"
	apperrors "nunu-cli/internal/pkg/errors"
	"nunu-cli/internal/pkg/progress"
)

// partUploader transfers the parts of one multipart session in batches of
// concurrency parts: one URL request per batch, then the batch's transfers
// in parallel. A batch starts only after the previous one fully resolved.
type partUploader struct {
	control     ControlPlane
	storage     storage.Uploader
	session     Session
	data        []byte
	parts       []Part
	concurrency int
	tracker     *progress.Tracker
	logger      *applog.LogContext
}

// run uploads every part and returns one UploadedPart per part number, in
// no particular order. The first failure stops the run.
func (u *partUploader) run(ctx context.Context) ([]api.UploadedPart, error) {
	uploaded := make([]api.UploadedPart, 0, len(u.parts))
	for start := 0; start < len(u.parts); start += u.concurrency {
		end := min(start+u.concurrency, len(u.parts))
		batch, err := u.uploadBatch(ctx, u.parts[start:end])
		if err != nil {
			return nil, err
		}
		uploaded = append(uploaded, batch...)
	}
	return uploaded, nil
}

func (u *partUploader) uploadBatch(ctx context.Context, batch []Part) ([]api.UploadedPart, error) {
	numbers := make([]int, len(batch))
	for i, part := range batch {
		numbers[i] = part.Number
	}
	u.logger.WriteLog("UPLOAD", "Requesting URLs for parts %d-%d of %d",
		numbers[0], numbers[len(numbers)-1], u.session.TotalParts)

	resp, err := u.control.RequestPartURLs(ctx, u.session.UploadID, u.session.ObjectKey, numbers)
	if err != nil {
		return nil, err
	}
	urls, err := matchPartURLs(numbers, resp.UploadURLs)
	if err != nil {
		return nil, err
	}

	// No derived context: siblings of a failed part run to completion and
	// the whole batch is dropped.
	var g errgroup.Group
	g.SetLimit(len(batch))

	results := make([]api.UploadedPart, len(batch))
	for i, part := range batch {
		g.Go(func() error {
			u.logger.WriteLog("UPLOAD", "Uploading part %d (%d bytes)", part.Number, part.Length)
			etag, err := u.storage.UploadPart(ctx, urls[part.Number], u.data[part.Offset:part.End()])
			if err != nil {
				return fmt.Errorf("part %d: %w", part.Number, err)
			}
			u.tracker.Update(part.Length)
			results[i] = api.UploadedPart{PartNumber: part.Number, ETag: etag}
			u.logger.WriteLog("UPLOAD", "Part %d uploaded successfully", part.Number)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// matchPartURLs checks that the backend returned exactly one URL for each
// requested part
func matchPartURLs(requested []int, urls []api.PartURL) (map[int]string, error) {
	want := make(map[int]bool, len(requested))
	for _, n := range requested {
		want[n] = true
	}

	got := make(map[int]string, len(urls))
	for _, u := range urls {
		if !want[u.PartNumber] {
			return nil, apperrors.NewParseError(
				fmt.Sprintf("Backend returned an upload URL for unrequested part %d", u.PartNumber), "", nil)
		}
		if _, dup := got[u.PartNumber]; dup {
			return nil, apperrors.NewParseError(
				fmt.Sprintf("Backend returned two upload URLs for part %d", u.PartNumber), "", nil)
		}
		got[u.PartNumber] = u.URL
	}

	var missing []string
	for _, n := range requested {
		if _, ok := got[n]; !ok {
			missing = append(missing, strconv.Itoa(n))
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewParseError(
			fmt.Sprintf("Backend did not return upload URLs for parts %s", strings.Join(missing, ",")), "", nil)
	}
	return got, nil
}
