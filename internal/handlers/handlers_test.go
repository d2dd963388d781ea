package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s3manager/s3manager/internal/apperr"
	"github.com/s3manager/s3manager/internal/auth"
	"github.com/s3manager/s3manager/internal/browser"
	"github.com/s3manager/s3manager/internal/storage"
	"github.com/s3manager/s3manager/internal/utils"
)

func newTestStore(t *testing.T) *storage.Memory {
	t.Helper()
	mem := storage.NewMemory()
	mem.CreateBucket("docs")
	ctx := context.Background()
	require.NoError(t, mem.PutObject(ctx, "docs", "a.txt", bytes.NewReader([]byte("alpha")), 5, "text/plain"))
	require.NoError(t, mem.PutObject(ctx, "docs", "reports/q1.csv", bytes.NewReader([]byte("q1")), 2, "text/csv"))
	return mem
}

func newJSONContext(method, target string, body any) (echo.Context, *httptest.ResponseRecorder) {
	var reader *strings.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func grant(c echo.Context, perms ...auth.Permission) {
	set := make(auth.PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = true
	}
	c.Set(utils.ContextKeySession, &auth.Session{
		Name:        "Test User",
		Email:       "test@example.com",
		Roles:       []string{"S3-Admin"},
		Permissions: set,
	})
}

func TestBrowseRequiresSession(t *testing.T) {
	h := NewBrowseHandler(browser.New(newTestStore(t)), nil)
	c, _ := newJSONContext(http.MethodGet, "/api/s3/browse", nil)

	err := h.Browse(c)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestBrowseRequiresViewPermission(t *testing.T) {
	h := NewBrowseHandler(browser.New(newTestStore(t)), nil)
	c, _ := newJSONContext(http.MethodGet, "/api/s3/browse", nil)
	grant(c, auth.PermissionWrite, auth.PermissionDelete)

	err := h.Browse(c)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestBrowseWildcardPath(t *testing.T) {
	h := NewBrowseHandler(browser.New(newTestStore(t)), nil)
	c, rec := newJSONContext(http.MethodGet, "/api/s3/browse/docs/reports", nil)
	c.SetParamNames("*")
	c.SetParamValues("docs/reports")
	grant(c, auth.PermissionView)

	require.NoError(t, h.Browse(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var listing browser.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, "docs/reports", listing.Path)
	require.Len(t, listing.Items, 1)
	assert.Equal(t, "q1.csv", listing.Items[0].Name)
}

func TestBrowseQueryPath(t *testing.T) {
	h := NewBrowseHandler(browser.New(newTestStore(t)), nil)
	c, rec := newJSONContext(http.MethodGet, "/api/s3/browse?path=docs", nil)
	grant(c, auth.PermissionView)

	require.NoError(t, h.Browse(c))

	var listing browser.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, "docs", listing.Path)
	assert.Len(t, listing.Items, 2) // reports folder + a.txt
}

func TestObjectInfo(t *testing.T) {
	h := NewBrowseHandler(browser.New(newTestStore(t)), nil)
	c, rec := newJSONContext(http.MethodGet, "/api/s3/object-info?path=docs/a.txt", nil)
	grant(c, auth.PermissionView)

	require.NoError(t, h.ObjectInfo(c))

	var detail browser.ObjectDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "docs/a.txt", detail.Path)
	assert.NotEmpty(t, detail.DownloadURL)
}

func TestObjectInfoRequiresPath(t *testing.T) {
	h := NewBrowseHandler(browser.New(newTestStore(t)), nil)
	c, _ := newJSONContext(http.MethodGet, "/api/s3/object-info", nil)
	grant(c, auth.PermissionView)

	err := h.ObjectInfo(c)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestUsage(t *testing.T) {
	mem := newTestStore(t)
	h := NewBrowseHandler(browser.New(mem), mem)
	c, rec := newJSONContext(http.MethodGet, "/api/s3/usage", nil)
	grant(c, auth.PermissionView)

	require.NoError(t, h.Usage(c))

	var resp UsageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(7), resp.TotalBytes)
	assert.Equal(t, uint64(7), resp.Buckets["docs"])
	assert.NotEmpty(t, resp.TotalHuman)
}

func TestUsageUnconfigured(t *testing.T) {
	h := NewBrowseHandler(browser.New(newTestStore(t)), nil)
	c, _ := newJSONContext(http.MethodGet, "/api/s3/usage", nil)
	grant(c, auth.PermissionView)

	err := h.Usage(c)
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
}

func newUploadContext(t *testing.T, path string, files map[string]string, relativePaths []string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("path", path))
	for _, rel := range relativePaths {
		require.NoError(t, w.WriteField("relativePaths", rel))
	}
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/s3/operations/upload", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func TestUpload(t *testing.T) {
	mem := newTestStore(t)
	h := NewOperationsHandler(browser.New(mem))
	c, rec := newUploadContext(t, "docs", map[string]string{"new.txt": "hello"}, nil)
	grant(c, auth.PermissionWrite)

	require.NoError(t, h.Upload(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var result browser.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Count)

	_, err := mem.StatObject(context.Background(), "docs", "new.txt")
	require.NoError(t, err)
}

func TestUploadRequiresWrite(t *testing.T) {
	h := NewOperationsHandler(browser.New(newTestStore(t)))
	c, _ := newUploadContext(t, "docs", map[string]string{"new.txt": "hello"}, nil)
	grant(c, auth.PermissionView)

	err := h.Upload(c)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestUploadRejectsNonMultipart(t *testing.T) {
	h := NewOperationsHandler(browser.New(newTestStore(t)))
	c, _ := newJSONContext(http.MethodPost, "/api/s3/operations/upload", map[string]string{"path": "docs"})
	grant(c, auth.PermissionWrite)

	err := h.Upload(c)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestCreateFolder(t *testing.T) {
	mem := newTestStore(t)
	h := NewOperationsHandler(browser.New(mem))
	c, rec := newJSONContext(http.MethodPost, "/api/s3/operations/create-folder",
		map[string]string{"path": "docs", "folderName": "drafts"})
	grant(c, auth.PermissionWrite)

	require.NoError(t, h.CreateFolder(c))

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "docs/drafts", resp["path"])

	_, err := mem.StatObject(context.Background(), "docs", "drafts/")
	require.NoError(t, err)
}

func TestRename(t *testing.T) {
	h := NewOperationsHandler(browser.New(newTestStore(t)))
	c, rec := newJSONContext(http.MethodPost, "/api/s3/operations/rename",
		map[string]string{"oldPath": "docs/a.txt", "newName": "alpha.txt"})
	grant(c, auth.PermissionWrite)

	require.NoError(t, h.Rename(c))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "docs/alpha.txt", resp["newPath"])
	assert.Equal(t, float64(1), resp["itemsRenamed"])
}

func TestDeleteFolder(t *testing.T) {
	h := NewOperationsHandler(browser.New(newTestStore(t)))
	c, rec := newJSONContext(http.MethodDelete, "/api/s3/operations/delete-folder",
		map[string]string{"path": "docs/reports"})
	grant(c, auth.PermissionDelete)

	require.NoError(t, h.DeleteFolder(c))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["deletedCount"])
}

func TestDeleteFolderRequiresDelete(t *testing.T) {
	h := NewOperationsHandler(browser.New(newTestStore(t)))
	c, _ := newJSONContext(http.MethodDelete, "/api/s3/operations/delete-folder",
		map[string]string{"path": "docs/reports"})
	grant(c, auth.PermissionView, auth.PermissionWrite)

	err := h.DeleteFolder(c)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestDeleteMultiple(t *testing.T) {
	h := NewOperationsHandler(browser.New(newTestStore(t)))
	c, rec := newJSONContext(http.MethodDelete, "/api/s3/operations/delete-multiple",
		map[string]any{"paths": []string{"docs/a.txt", "docs", "docs/missing.txt"}})
	grant(c, auth.PermissionDelete)

	require.NoError(t, h.DeleteMultiple(c))

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["deletedCount"])
	assert.Len(t, resp["errors"], 2)
}
