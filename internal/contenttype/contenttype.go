// Package contenttype resolves the content type of uploaded bytes: content
// sniffing first, extension lookup as fallback, octet-stream as the default.
package contenttype

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const defaultType = "application/octet-stream"

// Detect returns the MIME type for a file. Non-empty content is sniffed;
// when sniffing is inconclusive the filename extension decides.
func Detect(filename string, content []byte) string {
	if len(content) > 0 {
		if mt := mimetype.Detect(content); !mt.Is(defaultType) {
			return mt.String()
		}
	}
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}
	return defaultType
}
