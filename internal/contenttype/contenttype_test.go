package contenttype

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF")
	pdfBytes  = []byte("%PDF-1.4")
)

func TestDetectByContent(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		want     string
	}{
		{"png magic bytes", "test.png", pngBytes, "image/png"},
		{"jpeg magic bytes", "test.jpg", jpegBytes, "image/jpeg"},
		{"pdf magic bytes", "test.pdf", pdfBytes, "application/pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.filename, tt.content))
		})
	}
}

func TestDetectTextContent(t *testing.T) {
	got := Detect("notes.txt", []byte("This is plain text content"))
	assert.True(t, strings.HasPrefix(got, "text/plain"), "got %q", got)
}

func TestContentOverridesWrongExtension(t *testing.T) {
	// PNG bytes behind a .txt name: sniffing wins.
	assert.Equal(t, "image/png", Detect("not-really.txt", pngBytes))
}

func TestExtensionFallback(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"document.txt", "text/plain"},
		{"index.html", "text/html"},
		{"style.css", "text/css"},
		{"archive.zip", "application/zip"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got := Detect(tt.filename, nil)
			assert.True(t, strings.HasPrefix(got, tt.want), "got %q, want prefix %q", got, tt.want)
		})
	}
}

func TestExtensionIsCaseInsensitive(t *testing.T) {
	upper := Detect("FILE.TXT", nil)
	lower := Detect("file.txt", nil)
	assert.Equal(t, lower, upper)
	assert.True(t, strings.HasPrefix(upper, "text/plain"))
}

func TestUnknownFallsBackToOctetStream(t *testing.T) {
	assert.Equal(t, "application/octet-stream", Detect("file.xyz123unknown", nil))
}
