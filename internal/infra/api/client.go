// Package api is the control-plane client: it asks the backend for upload
// URLs and tells it when an upload is complete or abandoned.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	applog "nunu-cli/internal/log"
	apperrors "nunu-cli/internal/pkg/errors"
)

// Client talks to {api_url}/nexus/projects/{project_id}/builds
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *applog.LogContext
}

// NewClient creates a client. baseURL is the builds endpoint of one project.
func NewClient(baseURL, apiKey string, httpClient *http.Client, logger *applog.LogContext) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger,
	}
}

// RequestUploadURL asks for a single upload URL for the whole file
func (c *Client) RequestUploadURL(ctx context.Context, req UploadRequest) (*SinglePartUploadResponse, error) {
	req.Multipart = false
	c.logger.WriteLog("API", "Requesting upload URL for %s (%d bytes)", req.FileName, req.FileSize)

	var resp SinglePartUploadResponse
	if err := c.do(ctx, http.MethodPost, "/upload", nil, req, true, &resp); err != nil {
		return nil, err
	}
	c.logger.WriteLog("API", "Received upload URL for build %s (object: %s)", resp.BuildID, resp.ObjectKey)
	return &resp, nil
}

// InitiateUpload starts a multipart upload
func (c *Client) InitiateUpload(ctx context.Context, req UploadRequest) (*MultipartUploadResponse, error) {
	req.Multipart = true
	c.logger.WriteLog("API", "Initiating multipart upload for %s (%d bytes)", req.FileName, req.FileSize)

	var resp MultipartUploadResponse
	if err := c.do(ctx, http.MethodPost, "/upload", nil, req, true, &resp); err != nil {
		return nil, err
	}
	c.logger.WriteLog("API", "Initiated multipart upload - build_id: %s, upload_id: %s, total_parts: %d, part_size: %d",
		resp.BuildID, resp.UploadID, resp.TotalParts, resp.PartSize)
	return &resp, nil
}

// RequestPartURLs fetches upload URLs for the given part numbers in one call
func (c *Client) RequestPartURLs(ctx context.Context, uploadID, objectKey string, partNumbers []int) (*PartURLsResponse, error) {
	numbers := make([]string, len(partNumbers))
	for i, n := range partNumbers {
		numbers[i] = strconv.Itoa(n)
	}
	query := url.Values{}
	query.Set("upload_id", uploadID)
	query.Set("object_key", objectKey)
	query.Set("part_numbers", strings.Join(numbers, ","))

	c.logger.WriteLog("API", "Requesting upload URLs for parts %s", query.Get("part_numbers"))

	var resp PartURLsResponse
	// part URL listing is authorized by the upload id alone
	if err := c.do(ctx, http.MethodGet, "/upload/parts", query, nil, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompleteUpload finalizes a single-part upload
func (c *Client) CompleteUpload(ctx context.Context, buildID string) error {
	c.logger.WriteLog("API", "Completing upload for build %s", buildID)
	if err := c.do(ctx, http.MethodPost, "/upload/complete", nil, completeRequest{BuildID: buildID}, true, nil); err != nil {
		return err
	}
	c.logger.WriteLog("API", "Upload completed successfully")
	return nil
}

// CompleteMultipartUpload finalizes a multipart upload. parts must be sorted
// by part number.
func (c *Client) CompleteMultipartUpload(ctx context.Context, buildID, uploadID, objectKey string, parts []UploadedPart) error {
	c.logger.WriteLog("API", "Completing multipart upload for build %s with %d parts", buildID, len(parts))
	req := completeMultipartRequest{
		BuildID:   buildID,
		UploadID:  uploadID,
		ObjectKey: objectKey,
		Parts:     parts,
	}
	if err := c.do(ctx, http.MethodPost, "/upload/complete", nil, req, true, nil); err != nil {
		return err
	}
	c.logger.WriteLog("API", "Multipart upload completed successfully")
	return nil
}

// AbortUpload abandons an upload. uploadID and objectKey are sent only when set.
func (c *Client) AbortUpload(ctx context.Context, buildID, uploadID, objectKey string) error {
	query := url.Values{}
	query.Set("build_id", buildID)
	if uploadID != "" {
		query.Set("upload_id", uploadID)
	}
	if objectKey != "" {
		query.Set("object_key", objectKey)
	}

	c.logger.WriteLog("API", "Aborting upload for build %s", buildID)
	if err := c.do(ctx, http.MethodDelete, "/upload", query, nil, true, nil); err != nil {
		return err
	}
	c.logger.WriteLog("API", "Upload aborted successfully")
	return nil
}

// do sends one request and decodes a JSON response into out (if non-nil)
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, auth bool, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.NewError(apperrors.ErrorTypeAPI, "Failed to encode request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return apperrors.NewConfigError(fmt.Sprintf("Invalid API URL: %s", endpoint), err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		req.Header.Set("x-api-key", c.apiKey)
	}

	c.logger.WriteLog("API", "%s %s", method, c.baseURL+path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return requestError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return requestError(ctx, err)
	}
	c.logger.WriteLog("API", "Response status: %s", resp.Status)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewAPIError(fmt.Sprintf("%s %s failed", method, path), resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.NewParseError("Failed to parse response", string(raw), err)
	}
	return nil
}

func requestError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return apperrors.NewCancelledError("Request cancelled", ctx.Err())
	}
	if apperrors.IsConnectFailure(err) {
		return apperrors.NewConnectError(
			"Cannot connect to the Nunu API. Possible causes:\n"+
				"  - Firewall blocking outbound HTTPS\n"+
				"  - Network proxy required (set HTTPS_PROXY environment variable)\n"+
				"  - DNS resolution failure", err)
	}
	return apperrors.NewError(apperrors.ErrorTypeAPI, "Request failed", err)
}
