package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	applog "nunu-cli/internal/log"
	apperrors "nunu-cli/internal/pkg/errors"
	"nunu-cli/internal/pkg/progress"
	"nunu-cli/internal/pkg/ratelimit"
)

const maxErrorBody = 64 * 1024

// HTTPUploader implements Uploader with plain HTTP PUT requests
type HTTPUploader struct {
	client  *http.Client
	limiter *ratelimit.Limiter
	logger  *applog.LogContext
}

// NewHTTPUploader creates an uploader. limiter and logger may be nil.
func NewHTTPUploader(client *http.Client, limiter *ratelimit.Limiter, logger *applog.LogContext) *HTTPUploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPUploader{client: client, limiter: limiter, logger: logger}
}

// UploadPart uploads one part and returns its ETag
func (u *HTTPUploader) UploadPart(ctx context.Context, url string, data []byte) (string, error) {
	sent := &countingReader{reader: bytes.NewReader(data)}
	resp, err := u.put(ctx, url, sent, int64(len(data)))
	if err != nil {
		return "", transferError(ctx, err, sent.count.Load())
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return "", err
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		return "", apperrors.NewUploadError("Missing ETag in response", nil)
	}
	return etag, nil
}

// UploadBytes uploads a whole file in one request. The tracker advances as
// the request body is consumed.
func (u *HTTPUploader) UploadBytes(ctx context.Context, url string, data []byte, tracker *progress.Tracker) error {
	u.logger.WriteLog("STORAGE", "Uploading %d bytes to URL", len(data))

	sent := &countingReader{reader: bytes.NewReader(data), tracker: tracker}

	resp, err := u.put(ctx, url, sent, int64(len(data)))
	if err != nil {
		return transferError(ctx, err, sent.count.Load())
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return err
	}
	u.logger.WriteLog("STORAGE", "Upload successful")
	return nil
}

func (u *HTTPUploader) put(ctx context.Context, url string, body io.Reader, size int64) (*http.Response, error) {
	body = u.limiter.NewReader(ctx, body)
	if size == 0 {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return nil, apperrors.NewUploadError("Invalid upload URL", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}
	u.logger.WriteLog("STORAGE", "Upload response status: %s", resp.Status)
	return resp, nil
}

// transferError classifies a failed PUT
func transferError(ctx context.Context, err error, bytesSent int64) error {
	if apperrors.TypeOf(err) != "" {
		return err
	}
	if ctx.Err() != nil {
		return apperrors.NewCancelledError("Upload cancelled", ctx.Err())
	}
	if apperrors.IsConnectFailure(err) {
		return apperrors.NewConnectError(
			"Cannot connect to storage. Possible causes:\n"+
				"  - Firewall blocking the storage endpoint\n"+
				"  - Network proxy required (set HTTPS_PROXY environment variable)\n"+
				"  - DNS resolution failure", err)
	}
	return apperrors.NewUploadError(fmt.Sprintf(
		"Request failed after uploading %d bytes. This may indicate:\n"+
			"  - Network interruption during upload\n"+
			"  - Proxy interfering with the request\n"+
			"  - SSL/TLS issue", bytesSent), err)
}

// checkResponse turns a non-2xx storage response into an Upload error
func checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	body := string(raw)

	if code, message, ok := parseServiceError(body); ok {
		return apperrors.NewStorageError(fmt.Sprintf(
			"Storage error: %s - %s\n\n"+
				"To diagnose, test the upload URL directly:\n"+
				"  echo 'test' > test.txt\n"+
				"  curl -X PUT -H 'Content-Type: application/octet-stream' --data-binary @test.txt -v '<upload-url>'",
			code, message), resp.StatusCode, "")
	}
	return apperrors.NewStorageError("Storage rejected the upload", resp.StatusCode, strings.TrimSpace(body))
}

// countingReader counts the bytes handed to the transport and, when a
// tracker is set, reports them as progress
type countingReader struct {
	reader  io.Reader
	tracker *progress.Tracker
	count   atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	if n > 0 {
		c.count.Add(int64(n))
		if c.tracker != nil {
			c.tracker.Update(int64(n))
		}
	}
	return n, err
}
