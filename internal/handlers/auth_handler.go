package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/s3manager/s3manager/internal/apperr"
	"github.com/s3manager/s3manager/internal/auth"
	"github.com/s3manager/s3manager/internal/oidc"
)

// stateCookieName holds the per-login CSRF state between the redirect to the
// provider and the callback.
const stateCookieName = "s3manager_oauth_state"

const stateTTL = 10 * time.Minute

// AuthHandler drives the OIDC login flow and session lifecycle. In dev mode
// the provider is nil and login/logout short-circuit to the root.
type AuthHandler struct {
	provider    oidc.Provider
	sessions    *auth.SessionStore
	roleMap     auth.RoleMap
	defaultRole string
	baseURL     string
	secure      bool
	log         *logrus.Entry
}

func NewAuthHandler(provider oidc.Provider, sessions *auth.SessionStore, roleMap auth.RoleMap, defaultRole, baseURL string, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		provider:    provider,
		sessions:    sessions,
		roleMap:     roleMap,
		defaultRole: defaultRole,
		baseURL:     baseURL,
		secure:      secureCookies,
		log:         logrus.WithField("component", "auth"),
	}
}

// Login starts the authorization-code flow: generate the CSRF state, park it
// in a short-lived cookie, and send the browser to the provider.
func (h *AuthHandler) Login(c echo.Context) error {
	if h.provider == nil {
		return c.Redirect(http.StatusFound, "/")
	}

	state := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(stateTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secure,
	})
	return c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// Callback finishes the flow: verify state, exchange the code, resolve the
// identity, compute permissions once, and establish the session.
func (h *AuthHandler) Callback(c echo.Context) error {
	if h.provider == nil {
		return c.Redirect(http.StatusFound, "/")
	}

	stateCookie, err := c.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		return apperr.New(apperr.KindInvalidState, "login state is missing or expired")
	}
	h.clearCookie(c, stateCookieName)

	if c.QueryParam("state") != stateCookie.Value {
		return apperr.New(apperr.KindInvalidState, "login state mismatch")
	}
	code := c.QueryParam("code")
	if code == "" {
		return apperr.New(apperr.KindInvalidInput, "authorization code is missing")
	}

	ctx := c.Request().Context()
	token, err := h.provider.Exchange(ctx, code)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "token exchange failed", err)
	}
	identity, err := h.provider.Identity(ctx, token)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "could not resolve user identity", err)
	}

	permissions := auth.MapRolesToPermissions(identity.Roles, h.roleMap, h.defaultRole)
	session := h.sessions.Create(auth.Session{
		Name:        identity.Name,
		Email:       identity.Email,
		Roles:       identity.Roles,
		Permissions: permissions,
		AccessToken: token.AccessToken,
		Provider:    h.provider.Name(),
	})

	c.SetCookie(&http.Cookie{
		Name:     auth.CookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secure,
	})

	h.log.WithFields(logrus.Fields{
		"email":    identity.Email,
		"provider": h.provider.Name(),
		"roles":    len(identity.Roles),
	}).Info("user logged in")

	return c.Redirect(http.StatusFound, "/")
}

// Logout drops the server-side session, clears the cookie, and sends the
// browser to the provider's logout endpoint.
func (h *AuthHandler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(auth.CookieName); err == nil {
		h.sessions.Delete(cookie.Value)
	}
	h.clearCookie(c, auth.CookieName)

	if h.provider == nil {
		return c.Redirect(http.StatusFound, "/")
	}
	return c.Redirect(http.StatusFound, h.provider.LogoutURL(h.baseURL))
}

// User returns the authenticated user's profile and effective permissions.
func (h *AuthHandler) User(c echo.Context) error {
	s, err := CurrentSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"name":        s.Name,
		"email":       s.Email,
		"roles":       s.Roles,
		"permissions": s.Permissions.List(),
	})
}

func (h *AuthHandler) clearCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secure,
	})
}
