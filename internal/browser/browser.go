// Package browser is the filesystem projection engine: it composes object
// store calls into directory semantics over flat, prefix-delimited keys.
package browser

import (
	"bytes"
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/s3manager/s3manager/internal/apperr"
	"github.com/s3manager/s3manager/internal/contenttype"
	"github.com/s3manager/s3manager/internal/storage"
	"github.com/s3manager/s3manager/internal/vpath"
)

const (
	listPageSize  = 1000
	presignExpiry = time.Hour
)

// Service executes browse and mutation operations against the object store.
// Operations are single request/response; multi-object mutations are
// best-effort, not transactional.
type Service struct {
	store storage.ObjectStore
}

func New(store storage.ObjectStore) *Service {
	return &Service{store: store}
}

// Listing is the browse response: the normalized path, its breadcrumb
// trail, and the sorted directory entries.
type Listing struct {
	Path        string             `json:"path"`
	Breadcrumbs []vpath.Breadcrumb `json:"breadcrumbs"`
	Items       []vpath.Entry      `json:"items"`
}

// Browse lists one level of the virtual hierarchy. The empty path lists all
// buckets as synthetic directories; otherwise a delimited listing of the
// bucket prefix, folders before files.
func (s *Service) Browse(ctx context.Context, rawPath string) (*Listing, error) {
	p := vpath.Parse(rawPath)
	listing := &Listing{
		Path:        p.String(),
		Breadcrumbs: vpath.Breadcrumbs(p),
		Items:       []vpath.Entry{},
	}

	if p.IsRoot() {
		buckets, err := s.store.ListBuckets(ctx)
		if err != nil {
			return nil, upstream("failed to list buckets", err)
		}
		for _, b := range buckets {
			created := b.CreationDate
			listing.Items = append(listing.Items, vpath.Entry{
				Name:         b.Name,
				Type:         vpath.TypeDirectory,
				Path:         b.Name,
				LastModified: &created,
				Icon:         vpath.DirectoryIcon,
			})
		}
		vpath.SortEntries(listing.Items)
		return listing, nil
	}

	exists, err := s.store.BucketExists(ctx, p.Bucket)
	if err != nil {
		return nil, upstream("failed to check bucket", err)
	}
	if !exists {
		return nil, apperr.Newf(apperr.KindNotFound, "bucket %q not found", p.Bucket)
	}

	prefix := p.Prefix()
	seenDirs := make(map[string]bool)
	token := ""
	for {
		page, err := s.store.ListObjects(ctx, p.Bucket, storage.ListOptions{
			Prefix:            prefix,
			Delimiter:         "/",
			ContinuationToken: token,
			MaxKeys:           listPageSize,
		})
		if err != nil {
			return nil, upstream("failed to list objects", err)
		}

		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(cp, prefix), "/")
			if name == "" || seenDirs[name] {
				continue
			}
			seenDirs[name] = true
			listing.Items = append(listing.Items, vpath.Entry{
				Name: name,
				Type: vpath.TypeDirectory,
				Path: p.Join(name).String(),
				Icon: vpath.DirectoryIcon,
			})
		}

		for _, obj := range page.Objects {
			// The prefix's own zero-byte marker is the folder itself.
			if obj.Key == prefix {
				continue
			}
			name := strings.TrimPrefix(obj.Key, prefix)
			size := obj.Size
			modified := obj.LastModified
			listing.Items = append(listing.Items, vpath.Entry{
				Name:         name,
				Type:         vpath.TypeFile,
				Path:         p.Join(name).String(),
				Size:         &size,
				LastModified: &modified,
				ETag:         obj.ETag,
				Icon:         vpath.Icon(name, vpath.TypeFile),
			})
		}

		if !page.IsTruncated {
			break
		}
		token = page.NextContinuationToken
	}

	vpath.SortEntries(listing.Items)
	return listing, nil
}

// UploadFile is one incoming file, fully buffered for MIME sniffing.
type UploadFile struct {
	Filename     string
	RelativePath string
	Content      []byte
}

// UploadedFile reports one stored file.
type UploadedFile struct {
	Filename    string `json:"filename"`
	Path        string `json:"path"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// ItemError is a per-item failure inside a batch operation.
type ItemError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// UploadResult reports a multi-file upload. Atomicity is per file: earlier
// successes stand even when later files fail.
type UploadResult struct {
	Success bool           `json:"success"`
	Count   int            `json:"count"`
	Files   []UploadedFile `json:"files"`
	Errors  []ItemError    `json:"errors,omitempty"`
}

// Upload stores each file under the target path. A non-empty relative path
// (which may contain sub-folder segments) takes precedence over the bare
// filename, letting one request mirror a client-side folder tree.
func (s *Service) Upload(ctx context.Context, rawPath string, files []UploadFile) (*UploadResult, error) {
	p := vpath.Parse(rawPath)
	if p.IsRoot() {
		return nil, apperr.New(apperr.KindInvalidInput, "cannot upload to the virtual root")
	}
	if len(files) == 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "no files provided")
	}

	exists, err := s.store.BucketExists(ctx, p.Bucket)
	if err != nil {
		return nil, upstream("failed to check bucket", err)
	}
	if !exists {
		return nil, apperr.Newf(apperr.KindNotFound, "bucket %q not found", p.Bucket)
	}

	result := &UploadResult{Files: []UploadedFile{}}
	for _, f := range files {
		rel, err := cleanRelativePath(f.RelativePath)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{Path: f.RelativePath, Error: err.Error()})
			continue
		}
		name := f.Filename
		if rel != "" {
			name = rel
		}
		key := p.Prefix() + name
		dest := vpath.Path{Bucket: p.Bucket, Key: key}

		contentType := contenttype.Detect(name, f.Content)
		size := int64(len(f.Content))
		if err := s.store.PutObject(ctx, p.Bucket, key, bytes.NewReader(f.Content), size, contentType); err != nil {
			result.Errors = append(result.Errors, ItemError{Path: dest.String(), Error: "upload failed"})
			continue
		}

		result.Files = append(result.Files, UploadedFile{
			Filename:    f.Filename,
			Path:        dest.String(),
			ContentType: contentType,
			Size:        size,
		})
	}

	result.Count = len(result.Files)
	result.Success = len(result.Errors) == 0
	return result, nil
}

// CreateFolder writes the zero-byte marker object for a new folder and
// returns its virtual path. Re-creating an existing folder succeeds.
func (s *Service) CreateFolder(ctx context.Context, rawPath, name string) (string, error) {
	p, err := vpath.ParseStrict(rawPath)
	if err != nil {
		return "", err
	}
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return "", apperr.New(apperr.KindInvalidInput, "folder name is required")
	}

	exists, err := s.store.BucketExists(ctx, p.Bucket)
	if err != nil {
		return "", upstream("failed to check bucket", err)
	}
	if !exists {
		return "", apperr.Newf(apperr.KindNotFound, "bucket %q not found", p.Bucket)
	}

	key := p.Prefix() + name + "/"
	if err := s.store.PutObject(ctx, p.Bucket, key, bytes.NewReader(nil), 0, ""); err != nil {
		return "", upstream("failed to create folder", err)
	}
	return p.Join(name).String(), nil
}

// DeleteFolder removes every object under the folder's prefix, batching
// deletes at the store's limit, and returns the count removed. An already
// empty prefix is a successful no-op. Buckets themselves are refused.
func (s *Service) DeleteFolder(ctx context.Context, rawPath string) (int, error) {
	p, err := vpath.ParseStrict(rawPath)
	if err != nil {
		return 0, err
	}
	if p.Key == "" {
		return 0, apperr.New(apperr.KindInvalidInput, "refusing to delete a bucket")
	}

	keys, err := s.collectKeys(ctx, p.Bucket, p.Key+"/")
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	deleted, failures, err := s.deleteKeys(ctx, p.Bucket, keys)
	if err != nil {
		return deleted, err
	}
	if len(failures) > 0 {
		return deleted, apperr.Newf(apperr.KindUpstream, "%d objects could not be deleted", len(failures))
	}
	return deleted, nil
}

// RenameResult reports a completed rename.
type RenameResult struct {
	OldPath      string
	NewPath      string
	ItemsRenamed int
	IsFolder     bool
}

// Rename moves a file or folder to a sibling name via server-side
// copy-then-delete. Folder renames copy every descendant before deleting
// any original, so a mid-flight failure duplicates rather than loses.
func (s *Service) Rename(ctx context.Context, oldRawPath, newName string) (*RenameResult, error) {
	p, err := vpath.ParseStrict(oldRawPath)
	if err != nil {
		return nil, err
	}
	if p.Key == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "buckets cannot be renamed")
	}
	newName = strings.TrimSpace(newName)
	if newName == "" || strings.Contains(newName, "/") {
		return nil, apperr.New(apperr.KindInvalidInput, "invalid new name")
	}

	dest := p.Parent().Join(newName)
	result := &RenameResult{OldPath: p.String(), NewPath: dest.String()}

	// An exact key hit is a file; anything else is treated as a prefix.
	_, err = s.store.StatObject(ctx, p.Bucket, p.Key)
	switch {
	case err == nil:
		if err := s.store.CopyObject(ctx, p.Bucket, p.Key, dest.Key); err != nil {
			return nil, upstream("failed to copy object", err)
		}
		if err := s.store.DeleteObject(ctx, p.Bucket, p.Key); err != nil {
			return nil, upstream("failed to remove original object", err)
		}
		result.ItemsRenamed = 1
		return result, nil

	case errors.Is(err, storage.ErrNotFound):
		oldPrefix := p.Key + "/"
		newPrefix := dest.Key + "/"

		keys, err := s.collectKeys(ctx, p.Bucket, oldPrefix)
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, apperr.Newf(apperr.KindNotFound, "%q does not exist", p.String())
		}

		for _, key := range keys {
			dst := newPrefix + strings.TrimPrefix(key, oldPrefix)
			if err := s.store.CopyObject(ctx, p.Bucket, key, dst); err != nil {
				return nil, upstream("failed to copy "+key, err)
			}
		}
		deleted, failures, err := s.deleteKeys(ctx, p.Bucket, keys)
		if err != nil {
			return nil, err
		}
		if len(failures) > 0 {
			return nil, apperr.Newf(apperr.KindUpstream, "renamed but %d originals could not be removed", len(failures))
		}
		result.ItemsRenamed = deleted
		result.IsFolder = true
		return result, nil

	default:
		return nil, upstream("failed to inspect object", err)
	}
}

// DeleteResult aggregates a multi-path delete.
type DeleteResult struct {
	Deleted int
	Errors  []ItemError
}

// DeleteMultiple deletes each path independently, classifying it as a file
// (exact key), a folder (prefix), or an illegal bucket target. Per-path
// failures are collected and never abort the batch.
func (s *Service) DeleteMultiple(ctx context.Context, rawPaths []string) (*DeleteResult, error) {
	if len(rawPaths) == 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "no paths provided")
	}

	result := &DeleteResult{}
	for _, raw := range rawPaths {
		p := vpath.Parse(raw)
		switch {
		case p.Bucket == "":
			result.Errors = append(result.Errors, ItemError{Path: raw, Error: "invalid path"})
			continue
		case p.Key == "":
			result.Errors = append(result.Errors, ItemError{Path: raw, Error: "refusing to delete a bucket"})
			continue
		}

		_, err := s.store.StatObject(ctx, p.Bucket, p.Key)
		switch {
		case err == nil:
			if err := s.store.DeleteObject(ctx, p.Bucket, p.Key); err != nil {
				result.Errors = append(result.Errors, ItemError{Path: p.String(), Error: "delete failed"})
				continue
			}
			result.Deleted++

		case errors.Is(err, storage.ErrNotFound):
			keys, err := s.collectKeys(ctx, p.Bucket, p.Key+"/")
			if err != nil {
				result.Errors = append(result.Errors, ItemError{Path: p.String(), Error: "listing failed"})
				continue
			}
			if len(keys) == 0 {
				result.Errors = append(result.Errors, ItemError{Path: p.String(), Error: "not found"})
				continue
			}
			deleted, failures, err := s.deleteKeys(ctx, p.Bucket, keys)
			result.Deleted += deleted
			if err != nil || len(failures) > 0 {
				result.Errors = append(result.Errors, ItemError{Path: p.String(), Error: "delete incomplete"})
			}

		default:
			result.Errors = append(result.Errors, ItemError{Path: p.String(), Error: "lookup failed"})
		}
	}
	return result, nil
}

// ObjectDetail is the metadata view of a single file, with a time-limited
// download URL.
type ObjectDetail struct {
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"contentType"`
	LastModified time.Time `json:"lastModified"`
	ETag         string    `json:"etag"`
	DownloadURL  string    `json:"downloadUrl"`
}

// ObjectDetail stats a file and attaches a presigned GET URL.
func (s *Service) ObjectDetail(ctx context.Context, rawPath string) (*ObjectDetail, error) {
	p, err := vpath.ParseStrict(rawPath)
	if err != nil {
		return nil, err
	}
	if p.Key == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "path must name an object")
	}

	info, err := s.store.StatObject(ctx, p.Bucket, p.Key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Newf(apperr.KindNotFound, "%q does not exist", p.String())
	}
	if err != nil {
		return nil, upstream("failed to stat object", err)
	}

	url, err := s.store.PresignedGetURL(ctx, p.Bucket, p.Key, presignExpiry)
	if err != nil {
		return nil, upstream("failed to presign download", err)
	}

	return &ObjectDetail{
		Path:         p.String(),
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
		ETag:         info.ETag,
		DownloadURL:  url,
	}, nil
}

// collectKeys accumulates every key under prefix across continuation-token
// pages. The listing is flat (no delimiter) so descendants at any depth are
// included.
func (s *Service) collectKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	token := ""
	for {
		page, err := s.store.ListObjects(ctx, bucket, storage.ListOptions{
			Prefix:            prefix,
			ContinuationToken: token,
			MaxKeys:           listPageSize,
		})
		if err != nil {
			return nil, upstream("failed to list objects", err)
		}
		for _, obj := range page.Objects {
			keys = append(keys, obj.Key)
		}
		if !page.IsTruncated {
			return keys, nil
		}
		token = page.NextContinuationToken
	}
}

// deleteKeys removes keys in batches capped at the store's limit.
func (s *Service) deleteKeys(ctx context.Context, bucket string, keys []string) (int, []storage.DeleteError, error) {
	deleted := 0
	var failures []storage.DeleteError
	for start := 0; start < len(keys); start += storage.MaxDeleteBatch {
		end := start + storage.MaxDeleteBatch
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]
		batchFailures, err := s.store.DeleteObjects(ctx, bucket, batch)
		if err != nil {
			return deleted, failures, upstream("failed to delete objects", err)
		}
		failures = append(failures, batchFailures...)
		deleted += len(batch) - len(batchFailures)
	}
	return deleted, failures, nil
}

func cleanRelativePath(rel string) (string, error) {
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return "", nil
	}
	cleaned := path.Clean(rel)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("invalid relative path")
	}
	return cleaned, nil
}

func upstream(msg string, err error) error {
	return apperr.Wrap(apperr.KindUpstream, msg, err)
}
