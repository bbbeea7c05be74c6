package uploader

import (
	"context"
	"io"
)

// CompletedPart records one finished multipart chunk for the completion
// call. Parts complete in any order but are finalized sorted by number.
type CompletedPart struct {
	Number int32
	ETag   string
}

// ObjectStore is the remote storage surface the manager drives. The s3
// implementation is the production one; tests substitute a fake.
type ObjectStore interface {
	// Put uploads a whole object in one request.
	Put(ctx context.Context, key string, body io.Reader, length int64) error
	// CreateMultipart opens a multipart upload and returns its ID.
	CreateMultipart(ctx context.Context, key string) (string, error)
	// UploadPart sends one chunk and returns its ETag.
	UploadPart(ctx context.Context, key, uploadID string, number int32, body io.Reader, length int64) (string, error)
	// CompleteMultipart finalizes the object from its uploaded parts.
	CompleteMultipart(ctx context.Context, key, uploadID string, parts []CompletedPart) error
	// AbortMultipart discards all partial remote state for an upload.
	AbortMultipart(ctx context.Context, key, uploadID string) error
	// URL returns the public URL the key will be reachable at.
	URL(key string) string
}
