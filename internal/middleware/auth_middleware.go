package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/s3manager/s3manager/internal/apperr"
	"github.com/s3manager/s3manager/internal/auth"
	"github.com/s3manager/s3manager/internal/utils"
)

// Session resolves the session cookie against the store and puts the live
// session into the request context. Requests without one get a 401 JSON
// error; this is an API, not a page flow, so there is no login redirect.
//
// devSession, when non-nil, stands in for any request that lacks a real
// session. Dev mode only.
func Session(store *auth.SessionStore, devSession *auth.Session) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(auth.CookieName)
			if err == nil {
				if s := store.Get(cookie.Value); s != nil {
					c.Set(utils.ContextKeySession, s)
					return next(c)
				}
			}

			if devSession != nil {
				c.Set(utils.ContextKeySession, devSession)
				return next(c)
			}

			return apperr.New(apperr.KindUnauthenticated, "authentication required")
		}
	}
}
