package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process ObjectStore with S3 listing semantics, used by dev
// mode and tests in place of a live endpoint.
type Memory struct {
	mu      sync.RWMutex
	buckets map[string]*memBucket
}

type memBucket struct {
	created time.Time
	objects map[string]memObject
}

type memObject struct {
	data         []byte
	contentType  string
	lastModified time.Time
	etag         string
}

var _ ObjectStore = (*Memory)(nil)
var _ UsageReporter = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{buckets: make(map[string]*memBucket)}
}

// CreateBucket makes a bucket; creating an existing bucket is a no-op.
func (m *Memory) CreateBucket(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[name]; !ok {
		m.buckets[name] = &memBucket{created: time.Now(), objects: make(map[string]memObject)}
	}
}

func (m *Memory) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	buckets := make([]BucketInfo, 0, len(m.buckets))
	for name, b := range m.buckets {
		buckets = append(buckets, BucketInfo{Name: name, CreationDate: b.created})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets, nil
}

func (m *Memory) BucketExists(ctx context.Context, bucket string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.buckets[bucket]
	return ok, nil
}

func (m *Memory) ListObjects(ctx context.Context, bucket string, opts ListOptions) (ListPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return ListPage{}, fmt.Errorf("%w: bucket %q", ErrNotFound, bucket)
	}

	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = MaxDeleteBatch
	}

	keys := make([]string, 0, len(b.objects))
	for key := range b.objects {
		if strings.HasPrefix(key, opts.Prefix) && key > opts.ContinuationToken {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var page ListPage
	seenPrefixes := make(map[string]bool)
	count := 0
	for i, key := range keys {
		if count >= maxKeys {
			page.IsTruncated = true
			page.NextContinuationToken = keys[i-1]
			break
		}

		rest := key[len(opts.Prefix):]
		if opts.Delimiter != "" {
			if idx := strings.Index(rest, opts.Delimiter); idx >= 0 {
				cp := opts.Prefix + rest[:idx+len(opts.Delimiter)]
				if !seenPrefixes[cp] {
					seenPrefixes[cp] = true
					page.CommonPrefixes = append(page.CommonPrefixes, cp)
					count++
				}
				continue
			}
		}

		obj := b.objects[key]
		page.Objects = append(page.Objects, ObjectInfo{
			Key:          key,
			Size:         int64(len(obj.data)),
			LastModified: obj.lastModified,
			ETag:         obj.etag,
			ContentType:  obj.contentType,
		})
		count++
	}

	return page, nil
}

func (m *Memory) StatObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, err := m.lookup(bucket, key)
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		LastModified: obj.lastModified,
		ETag:         obj.etag,
		ContentType:  obj.contentType,
	}, nil
}

func (m *Memory) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, err := m.lookup(bucket, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	info := ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		LastModified: obj.lastModified,
		ETag:         obj.etag,
		ContentType:  obj.contentType,
	}
	return io.NopCloser(bytes.NewReader(obj.data)), info, nil
}

func (m *Memory) PutObject(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return fmt.Errorf("%w: bucket %q", ErrNotFound, bucket)
	}
	sum := md5.Sum(data)
	b.objects[key] = memObject{
		data:         data,
		contentType:  contentType,
		lastModified: time.Now(),
		etag:         hex.EncodeToString(sum[:]),
	}
	return nil
}

func (m *Memory) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return fmt.Errorf("%w: bucket %q", ErrNotFound, bucket)
	}
	src, ok := b.objects[srcKey]
	if !ok {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, srcKey)
	}
	dst := src
	dst.data = append([]byte(nil), src.data...)
	dst.lastModified = time.Now()
	b.objects[dstKey] = dst
	return nil
}

func (m *Memory) DeleteObject(ctx context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return fmt.Errorf("%w: bucket %q", ErrNotFound, bucket)
	}
	// Deleting an absent key succeeds, matching S3.
	delete(b.objects, key)
	return nil
}

func (m *Memory) DeleteObjects(ctx context.Context, bucket string, keys []string) ([]DeleteError, error) {
	if len(keys) > MaxDeleteBatch {
		return nil, fmt.Errorf("delete batch of %d exceeds limit %d", len(keys), MaxDeleteBatch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[bucket]
	if !ok {
		return nil, fmt.Errorf("%w: bucket %q", ErrNotFound, bucket)
	}
	for _, key := range keys {
		delete(b.objects, key)
	}
	return nil, nil
}

func (m *Memory) PresignedGetURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, err := m.lookup(bucket, key); err != nil {
		return "", err
	}
	return fmt.Sprintf("memory://%s/%s?expires=%d", bucket, key, int(expires.Seconds())), nil
}

func (m *Memory) BucketUsage(ctx context.Context) (map[string]uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	usage := make(map[string]uint64, len(m.buckets))
	for name, b := range m.buckets {
		var total uint64
		for _, obj := range b.objects {
			total += uint64(len(obj.data))
		}
		usage[name] = total
	}
	return usage, nil
}

// lookup requires m.mu held.
func (m *Memory) lookup(bucket, key string) (memObject, error) {
	b, ok := m.buckets[bucket]
	if !ok {
		return memObject{}, fmt.Errorf("%w: bucket %q", ErrNotFound, bucket)
	}
	obj, ok := b.objects[key]
	if !ok {
		return memObject{}, fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
	}
	return obj, nil
}
