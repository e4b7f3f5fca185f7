package api

import "nunu-cli/internal/metadata"

// UploadRequest is the body of POST {base}/upload
type UploadRequest struct {
	Name           string                 `json:"name"`
	Description    string                 `json:"description,omitempty"`
	FileName       string                 `json:"file_name"`
	FileSize       int64                  `json:"file_size"`
	Platform       string                 `json:"platform"`
	Multipart      bool                   `json:"multipart"`
	AutoDelete     bool                   `json:"auto_delete,omitempty"`
	DeletionPolicy string                 `json:"deletion_policy,omitempty"`
	UploadTimeout  int                    `json:"upload_timeout,omitempty"` // minutes
	Details        *metadata.BuildDetails `json:"details,omitempty"`
	Tags           []string               `json:"tags,omitempty"`
}

// SinglePartUploadResponse is returned for a single-part upload request
type SinglePartUploadResponse struct {
	BuildID   string `json:"build_id"`
	UploadURL string `json:"upload_url"`
	ObjectKey string `json:"object_key"`
}

// MultipartUploadResponse is returned when a multipart upload is initiated
type MultipartUploadResponse struct {
	BuildID    string `json:"build_id"`
	UploadID   string `json:"upload_id"`
	ObjectKey  string `json:"object_key"`
	TotalParts int    `json:"total_parts"`
	PartSize   int64  `json:"part_size"`
}

// PartURLsResponse lists upload URLs for a batch of parts
type PartURLsResponse struct {
	UploadURLs []PartURL `json:"upload_urls"`
}

// PartURL is the upload URL of one part
type PartURL struct {
	PartNumber int    `json:"part_number"`
	URL        string `json:"url"`
}

// UploadedPart references a transferred part when completing a multipart upload
type UploadedPart struct {
	PartNumber int    `json:"part_number"`
	ETag       string `json:"etag"`
}

type completeRequest struct {
	BuildID string `json:"build_id"`
}

type completeMultipartRequest struct {
	BuildID   string         `json:"build_id"`
	UploadID  string         `json:"upload_id"`
	ObjectKey string         `json:"object_key"`
	Parts     []UploadedPart `json:"parts"`
}
