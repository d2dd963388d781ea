package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymousRequestsAreRejected(t *testing.T) {
	app := newTestApp(t)

	for _, target := range []string{
		"/api/s3/browse",
		"/api/s3/browse/docs",
		"/api/s3/usage",
		"/auth/user",
	} {
		rec := app.request(t, http.MethodGet, target, nil, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)

		var resp map[string]string
		decodeJSON(t, rec, &resp)
		assert.Equal(t, "authentication required", resp["error"], target)
	}
}

func TestViewerCannotWriteOrDelete(t *testing.T) {
	// Unknown directory roles fall back to the default viewer role.
	app := newTestApp(t, "Engineering")
	session := app.login(t)

	rec := app.request(t, http.MethodGet, "/api/s3/browse/docs", nil, "", session)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.requestJSON(t, http.MethodPost, "/api/s3/operations/create-folder",
		map[string]string{"path": "docs", "folderName": "nope"}, session)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.requestJSON(t, http.MethodDelete, "/api/s3/operations/delete-folder",
		map[string]string{"path": "docs/reports"}, session)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEditorCanWriteButNotDelete(t *testing.T) {
	app := newTestApp(t, "S3-Editor")
	session := app.login(t)

	rec := app.requestJSON(t, http.MethodPost, "/api/s3/operations/create-folder",
		map[string]string{"path": "docs", "folderName": "drafts"}, session)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.requestJSON(t, http.MethodDelete, "/api/s3/operations/delete-multiple",
		map[string]any{"paths": []string{"docs/readme.txt"}}, session)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCallbackRejectsTamperedState(t *testing.T) {
	app := newTestApp(t, "S3-Admin")

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	rec := httptest.NewRecorder()
	app.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusFound, rec.Code)

	var state *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "s3manager_oauth_state" {
			state = cookie
		}
	}
	require.NotNil(t, state)

	req = httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=tampered", nil)
	req.AddCookie(state)
	rec = httptest.NewRecorder()
	app.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	decodeJSON(t, rec, &resp)
	assert.Contains(t, resp["error"], "state")
}

func TestUserEndpointReflectsSession(t *testing.T) {
	app := newTestApp(t, "S3-Editor")
	session := app.login(t)

	rec := app.request(t, http.MethodGet, "/auth/user", nil, "", session)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Name        string   `json:"name"`
		Email       string   `json:"email"`
		Roles       []string `json:"roles"`
		Permissions []string `json:"permissions"`
	}
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "Journey User", resp.Name)
	assert.Equal(t, "journey@example.com", resp.Email)
	assert.Equal(t, []string{"S3-Editor"}, resp.Roles)
	assert.Equal(t, []string{"view", "write"}, resp.Permissions)
}

func TestLogoutInvalidatesSession(t *testing.T) {
	app := newTestApp(t, "S3-Admin")
	session := app.login(t)

	rec := app.request(t, http.MethodGet, "/auth/logout", nil, "", session)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "https://idp.test/logout")

	rec = app.request(t, http.MethodGet, "/api/s3/browse", nil, "", session)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
