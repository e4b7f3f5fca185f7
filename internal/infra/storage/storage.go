// Package storage moves bytes to time-limited upload URLs issued by the
// backend. It knows nothing about builds; it only PUTs and reports.
package storage

import (
	"context"

	"nunu-cli/internal/pkg/progress"
)

// Uploader defines the data-plane operations used by the upload engine
type Uploader interface {
	// UploadPart PUTs one part and returns the integrity token (ETag) storage assigned to it
	UploadPart(ctx context.Context, url string, data []byte) (string, error)

	// UploadBytes PUTs a whole file, reporting bytes to tracker as they are streamed
	UploadBytes(ctx context.Context, url string, data []byte, tracker *progress.Tracker) error
}
