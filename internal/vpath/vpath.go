// Package vpath implements the virtual path model: the mapping between
// client-facing "bucket/prefix" path strings and (bucket, key-prefix) pairs,
// plus breadcrumbs and directory-entry presentation.
package vpath

import (
	"sort"
	"strings"
	"time"

	"github.com/s3manager/s3manager/internal/apperr"
)

// RootLabel is the fixed name of the breadcrumb root entry.
const RootLabel = "Root"

// Path is a normalized virtual path. Bucket is empty only at the virtual
// root; Key never carries a leading or trailing slash.
type Path struct {
	Bucket string
	Key    string
}

// Parse normalizes a raw virtual path string. The empty string parses to the
// virtual root; callers that require a bucket use ParseStrict.
func Parse(raw string) Path {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return Path{}
	}
	bucket, rest, found := strings.Cut(trimmed, "/")
	if !found {
		return Path{Bucket: bucket}
	}
	return Path{Bucket: bucket, Key: strings.Trim(rest, "/")}
}

// ParseStrict parses a raw path and fails unless it names a bucket.
func ParseStrict(raw string) (Path, error) {
	p := Parse(raw)
	if p.Bucket == "" {
		return Path{}, apperr.New(apperr.KindInvalidInput, "path must include a bucket")
	}
	return p, nil
}

// IsRoot reports whether p is the virtual root (the bucket list).
func (p Path) IsRoot() bool { return p.Bucket == "" }

// String serializes p back to its normalized form.
func (p Path) String() string {
	if p.Key == "" {
		return p.Bucket
	}
	return p.Bucket + "/" + p.Key
}

// Prefix returns the object-store listing prefix for p: empty at the bucket
// root, otherwise the key with a trailing slash.
func (p Path) Prefix() string {
	if p.Key == "" {
		return ""
	}
	return p.Key + "/"
}

// Base returns the last path segment, or the bucket name at bucket root.
func (p Path) Base() string {
	if p.Key == "" {
		return p.Bucket
	}
	if i := strings.LastIndex(p.Key, "/"); i >= 0 {
		return p.Key[i+1:]
	}
	return p.Key
}

// Parent returns the containing path. The parent of a bucket is the root.
func (p Path) Parent() Path {
	if p.Key == "" {
		return Path{}
	}
	if i := strings.LastIndex(p.Key, "/"); i >= 0 {
		return Path{Bucket: p.Bucket, Key: p.Key[:i]}
	}
	return Path{Bucket: p.Bucket}
}

// Join returns the path of a child entry under p.
func (p Path) Join(name string) Path {
	name = strings.Trim(name, "/")
	if p.IsRoot() {
		return Path{Bucket: name}
	}
	if p.Key == "" {
		return Path{Bucket: p.Bucket, Key: name}
	}
	return Path{Bucket: p.Bucket, Key: p.Key + "/" + name}
}

// Breadcrumb is one step of the navigation trail.
type Breadcrumb struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Breadcrumbs walks every segment of p, accumulating the growing path, with
// the fixed root entry prepended. Output depends only on p.
func Breadcrumbs(p Path) []Breadcrumb {
	crumbs := []Breadcrumb{{Name: RootLabel, Path: ""}}
	if p.IsRoot() {
		return crumbs
	}
	current := Path{}
	for _, segment := range strings.Split(p.String(), "/") {
		current = current.Join(segment)
		crumbs = append(crumbs, Breadcrumb{Name: segment, Path: current.String()})
	}
	return crumbs
}

// EntryType distinguishes files from (synthetic) directories.
type EntryType string

const (
	TypeFile      EntryType = "file"
	TypeDirectory EntryType = "directory"
)

// Entry is one row of a directory listing. Size, LastModified and ETag are
// unset for directories derived from common prefixes; bucket entries carry
// the bucket creation time as LastModified.
type Entry struct {
	Name         string     `json:"name"`
	Type         EntryType  `json:"type"`
	Path         string     `json:"path"`
	Size         *int64     `json:"size,omitempty"`
	LastModified *time.Time `json:"lastModified,omitempty"`
	ETag         string     `json:"etag,omitempty"`
	Icon         string     `json:"icon"`
}

// SortEntries orders a listing: every directory before every file, then
// case-insensitive ascending by name.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Type != entries[j].Type {
			return entries[i].Type == TypeDirectory
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

const DirectoryIcon = "📁"

var iconsByExt = map[string]string{
	".txt": "📄", ".md": "📄", ".log": "📄", ".csv": "📄",
	".json": "📄", ".xml": "📄", ".yaml": "📄", ".yml": "📄",
	".pdf": "📕",
	".jpg": "🖼️", ".jpeg": "🖼️", ".png": "🖼️", ".gif": "🖼️",
	".webp": "🖼️", ".svg": "🖼️", ".bmp": "🖼️",
	".mp4": "🎬", ".webm": "🎬", ".mov": "🎬", ".avi": "🎬", ".mkv": "🎬",
	".mp3": "🎵", ".wav": "🎵", ".ogg": "🎵", ".flac": "🎵",
	".zip": "📦", ".tar": "📦", ".gz": "📦", ".rar": "📦", ".7z": "📦",
}

// Icon picks the display icon for a listing entry by name.
func Icon(name string, entryType EntryType) string {
	if entryType == TypeDirectory {
		return DirectoryIcon
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		if icon, ok := iconsByExt[strings.ToLower(name[i:])]; ok {
			return icon
		}
	}
	return "📄"
}
