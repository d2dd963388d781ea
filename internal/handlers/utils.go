package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/s3manager/s3manager/internal/apperr"
	"github.com/s3manager/s3manager/internal/auth"
	"github.com/s3manager/s3manager/internal/utils"
)

// CurrentSession retrieves the authenticated session from the context.
func CurrentSession(c echo.Context) (*auth.Session, error) {
	s, ok := c.Get(utils.ContextKeySession).(*auth.Session)
	if !ok || s == nil {
		return nil, apperr.New(apperr.KindUnauthenticated, "authentication required")
	}
	return s, nil
}

// RequirePermission retrieves the session and checks it grants p.
func RequirePermission(c echo.Context, p auth.Permission) (*auth.Session, error) {
	s, err := CurrentSession(c)
	if err != nil {
		return nil, err
	}
	if !s.Permissions.Has(p) {
		return nil, apperr.Newf(apperr.KindForbidden, "%s permission required", p)
	}
	return s, nil
}
