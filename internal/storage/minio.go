package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioConfig carries the connection settings for the object store. Admin
// credentials are optional and only needed for usage reporting.
type MinioConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Region         string
	UseSSL         bool
	AdminAccessKey string
	AdminSecretKey string
}

// Minio is the production ObjectStore backed by an S3-compatible endpoint.
// The Core client exposes raw list-objects-v2 paging; the high-level client
// covers everything else.
type Minio struct {
	core   *minio.Core
	client *minio.Client
	admin  *madmin.AdminClient
}

var _ ObjectStore = (*Minio)(nil)

// NewMinio connects to the configured endpoint. No network call is made
// until the first operation.
func NewMinio(cfg MinioConfig) (*Minio, error) {
	core, err := minio.NewCore(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object store: %w", err)
	}

	s := &Minio{core: core, client: core.Client}

	if cfg.AdminAccessKey != "" {
		admin, err := madmin.NewWithOptions(cfg.Endpoint, &madmin.Options{
			Creds:  credentials.NewStaticV4(cfg.AdminAccessKey, cfg.AdminSecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("connect admin client: %w", err)
		}
		s.admin = admin
	}

	return s, nil
}

func (s *Minio) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	raw, err := s.client.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}
	buckets := make([]BucketInfo, 0, len(raw))
	for _, b := range raw {
		buckets = append(buckets, BucketInfo{Name: b.Name, CreationDate: b.CreationDate})
	}
	return buckets, nil
}

func (s *Minio) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return s.client.BucketExists(ctx, bucket)
}

func (s *Minio) ListObjects(ctx context.Context, bucket string, opts ListOptions) (ListPage, error) {
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = MaxDeleteBatch
	}

	result, err := s.core.ListObjectsV2(bucket, opts.Prefix, "", opts.ContinuationToken, opts.Delimiter, maxKeys)
	if err != nil {
		return ListPage{}, mapMinioErr(err)
	}

	page := ListPage{
		IsTruncated:           result.IsTruncated,
		NextContinuationToken: result.NextContinuationToken,
	}
	for _, obj := range result.Contents {
		page.Objects = append(page.Objects, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ETag:         obj.ETag,
			ContentType:  obj.ContentType,
		})
	}
	for _, cp := range result.CommonPrefixes {
		page.CommonPrefixes = append(page.CommonPrefixes, cp.Prefix)
	}
	return page, nil
}

func (s *Minio) StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, mapMinioErr(err)
	}
	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		LastModified: info.LastModified,
		ETag:         info.ETag,
		ContentType:  info.ContentType,
	}, nil
}

func (s *Minio) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, mapMinioErr(err)
	}
	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, ObjectInfo{}, mapMinioErr(err)
	}
	return obj, ObjectInfo{
		Key:          stat.Key,
		Size:         stat.Size,
		LastModified: stat.LastModified,
		ETag:         stat.ETag,
		ContentType:  stat.ContentType,
	}, nil
}

func (s *Minio) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return mapMinioErr(err)
}

func (s *Minio) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error {
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: bucket, Object: srcKey},
	)
	return mapMinioErr(err)
}

func (s *Minio) DeleteObject(ctx context.Context, bucket, key string) error {
	return mapMinioErr(s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}))
}

func (s *Minio) DeleteObjects(ctx context.Context, bucket string, keys []string) ([]DeleteError, error) {
	if len(keys) > MaxDeleteBatch {
		return nil, fmt.Errorf("delete batch of %d exceeds limit %d", len(keys), MaxDeleteBatch)
	}

	objectsCh := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		objectsCh <- minio.ObjectInfo{Key: key}
	}
	close(objectsCh)

	var failures []DeleteError
	for rerr := range s.client.RemoveObjects(ctx, bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		failures = append(failures, DeleteError{Key: rerr.ObjectName, Message: rerr.Err.Error()})
	}
	return failures, nil
}

func (s *Minio) PresignedGetURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, bucket, key, expires, nil)
	if err != nil {
		return "", mapMinioErr(err)
	}
	return u.String(), nil
}

// BucketUsage implements UsageReporter via the admin API.
func (s *Minio) BucketUsage(ctx context.Context) (map[string]uint64, error) {
	if s.admin == nil {
		return nil, fmt.Errorf("admin credentials not configured")
	}
	usage, err := s.admin.DataUsageInfo(ctx)
	if err != nil {
		return nil, err
	}
	return usage.BucketSizes, nil
}

// mapMinioErr folds the store's absence codes into ErrNotFound so callers
// can branch without knowing minio error shapes.
func mapMinioErr(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Code)
	}
	return err
}
