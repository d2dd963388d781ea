package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/s3manager/s3manager/internal/apperr"
	"github.com/s3manager/s3manager/internal/auth"
	"github.com/s3manager/s3manager/internal/browser"
	"github.com/s3manager/s3manager/internal/storage"
	"github.com/s3manager/s3manager/internal/utils"
)

// BrowseHandler serves the read-only views of the virtual filesystem.
type BrowseHandler struct {
	svc   *browser.Service
	usage storage.UsageReporter // nil when no admin credentials are configured
}

func NewBrowseHandler(svc *browser.Service, usage storage.UsageReporter) *BrowseHandler {
	return &BrowseHandler{svc: svc, usage: usage}
}

// Browse lists one level of the hierarchy. The path comes from the wildcard
// route segment, or from ?path= on the bare route.
func (h *BrowseHandler) Browse(c echo.Context) error {
	if _, err := RequirePermission(c, auth.PermissionView); err != nil {
		return err
	}

	path := c.Param("*")
	if path == "" {
		path = c.QueryParam("path")
	}

	listing, err := h.svc.Browse(c.Request().Context(), path)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listing)
}

// ObjectInfo returns a single file's metadata with a presigned download URL.
func (h *BrowseHandler) ObjectInfo(c echo.Context) error {
	if _, err := RequirePermission(c, auth.PermissionView); err != nil {
		return err
	}

	path := c.QueryParam("path")
	if path == "" {
		return apperr.New(apperr.KindInvalidInput, "path query parameter is required")
	}

	detail, err := h.svc.ObjectDetail(c.Request().Context(), path)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

// UsageResponse reports per-bucket storage consumption.
type UsageResponse struct {
	TotalBytes uint64            `json:"totalBytes"`
	TotalHuman string            `json:"totalHuman"`
	Buckets    map[string]uint64 `json:"buckets"`
}

// Usage reports bucket byte usage via the store's admin API.
func (h *BrowseHandler) Usage(c echo.Context) error {
	if _, err := RequirePermission(c, auth.PermissionView); err != nil {
		return err
	}
	if h.usage == nil {
		return apperr.New(apperr.KindUpstream, "usage reporting is not configured")
	}

	buckets, err := h.usage.BucketUsage(c.Request().Context())
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "failed to fetch storage usage", err)
	}

	var total uint64
	for _, size := range buckets {
		total += size
	}
	return c.JSON(http.StatusOK, UsageResponse{
		TotalBytes: total,
		TotalHuman: utils.FormatBytes(total),
		Buckets:    buckets,
	})
}
