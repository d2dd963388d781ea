package handlers

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/s3manager/s3manager/internal/apperr"
	"github.com/s3manager/s3manager/internal/auth"
	"github.com/s3manager/s3manager/internal/browser"
)

// OperationsHandler serves the mutating filesystem operations.
type OperationsHandler struct {
	svc *browser.Service
}

func NewOperationsHandler(svc *browser.Service) *OperationsHandler {
	return &OperationsHandler{svc: svc}
}

// Upload stores one or more multipart files under the target path. The
// optional relativePaths values pair with the files by position and carry
// client-side folder structure.
func (h *OperationsHandler) Upload(c echo.Context) error {
	if _, err := RequirePermission(c, auth.PermissionWrite); err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "multipart form required", err)
	}

	path := c.FormValue("path")
	headers := form.File["files"]
	relativePaths := form.Value["relativePaths"]

	files := make([]browser.UploadFile, 0, len(headers))
	for i, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			return apperr.Wrap(apperr.KindInvalidInput, "could not read uploaded file", err)
		}
		content, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return apperr.Wrap(apperr.KindInvalidInput, "could not read uploaded file", err)
		}

		rel := ""
		if i < len(relativePaths) {
			rel = relativePaths[i]
		}
		files = append(files, browser.UploadFile{
			Filename:     fh.Filename,
			RelativePath: rel,
			Content:      content,
		})
	}

	result, err := h.svc.Upload(c.Request().Context(), path, files)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

type createFolderRequest struct {
	Path       string `json:"path"`
	FolderName string `json:"folderName"`
}

func (h *OperationsHandler) CreateFolder(c echo.Context) error {
	if _, err := RequirePermission(c, auth.PermissionWrite); err != nil {
		return err
	}

	var req createFolderRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "invalid request body", err)
	}

	newPath, err := h.svc.CreateFolder(c.Request().Context(), req.Path, req.FolderName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "folder created",
		"path":    newPath,
	})
}

type renameRequest struct {
	OldPath string `json:"oldPath"`
	NewName string `json:"newName"`
}

func (h *OperationsHandler) Rename(c echo.Context) error {
	if _, err := RequirePermission(c, auth.PermissionWrite); err != nil {
		return err
	}

	var req renameRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "invalid request body", err)
	}

	result, err := h.svc.Rename(c.Request().Context(), req.OldPath, req.NewName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":      "renamed",
		"oldPath":      result.OldPath,
		"newPath":      result.NewPath,
		"itemsRenamed": result.ItemsRenamed,
	})
}

type deleteFolderRequest struct {
	Path string `json:"path"`
}

func (h *OperationsHandler) DeleteFolder(c echo.Context) error {
	if _, err := RequirePermission(c, auth.PermissionDelete); err != nil {
		return err
	}

	var req deleteFolderRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "invalid request body", err)
	}

	count, err := h.svc.DeleteFolder(c.Request().Context(), req.Path)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":      "folder deleted",
		"deletedCount": count,
	})
}

type deleteMultipleRequest struct {
	Paths []string `json:"paths"`
}

func (h *OperationsHandler) DeleteMultiple(c echo.Context) error {
	if _, err := RequirePermission(c, auth.PermissionDelete); err != nil {
		return err
	}

	var req deleteMultipleRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "invalid request body", err)
	}

	result, err := h.svc.DeleteMultiple(c.Request().Context(), req.Paths)
	if err != nil {
		return err
	}

	resp := map[string]any{
		"message":      "delete completed",
		"deletedCount": result.Deleted,
	}
	if len(result.Errors) > 0 {
		resp["errors"] = result.Errors
	}
	return c.JSON(http.StatusOK, resp)
}
