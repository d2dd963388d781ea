// Package storage is the typed adapter over the S3-compatible object store.
// The projection engine only sees the ObjectStore interface; the minio-backed
// and in-memory implementations live alongside it.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// MaxDeleteBatch is the object store's per-request delete-objects limit.
const MaxDeleteBatch = 1000

// ErrNotFound is returned when a bucket or object does not exist.
var ErrNotFound = errors.New("not found")

// BucketInfo describes one bucket.
type BucketInfo struct {
	Name         string
	CreationDate time.Time
}

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
	ContentType  string
}

// ListOptions parameterizes a single list-objects-v2 page request.
type ListOptions struct {
	Prefix            string
	Delimiter         string
	ContinuationToken string
	MaxKeys           int
}

// ListPage is one page of a delimited or flat listing.
type ListPage struct {
	Objects               []ObjectInfo
	CommonPrefixes        []string
	IsTruncated           bool
	NextContinuationToken string
}

// DeleteError reports one failed key of a batch delete.
type DeleteError struct {
	Key     string
	Message string
}

// ObjectStore is the operation surface the projection engine composes.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	ListBuckets(ctx context.Context) ([]BucketInfo, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)

	// ListObjects fetches a single page; callers loop on the continuation
	// token themselves.
	ListObjects(ctx context.Context, bucket string, opts ListOptions) (ListPage, error)

	StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
	PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error
	CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error
	DeleteObject(ctx context.Context, bucket, key string) error

	// DeleteObjects removes up to MaxDeleteBatch keys in one request and
	// reports per-key failures.
	DeleteObjects(ctx context.Context, bucket string, keys []string) ([]DeleteError, error)

	PresignedGetURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}

// UsageReporter is the optional admin-side capability for storage usage.
type UsageReporter interface {
	// BucketUsage returns per-bucket byte usage.
	BucketUsage(ctx context.Context) (map[string]uint64, error)
}
