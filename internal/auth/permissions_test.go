package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRoleMap() RoleMap {
	return RoleMap{
		"S3-Viewer": {PermissionView},
		"S3-Editor": {PermissionView, PermissionWrite},
		"S3-Admin":  {PermissionView, PermissionWrite, PermissionDelete},
		"S3-None":   {},
	}
}

func TestMapRolesToPermissions(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  []Permission
	}{
		{"single role", []string{"S3-Viewer"}, []Permission{PermissionView}},
		{"admin role", []string{"S3-Admin"}, []Permission{PermissionDelete, PermissionView, PermissionWrite}},
		{"union of roles", []string{"S3-Viewer", "S3-Editor"}, []Permission{PermissionView, PermissionWrite}},
		{"unknown roles fall back to default", []string{"Engineering", "HR"}, []Permission{PermissionView}},
		{"no roles fall back to default", nil, []Permission{PermissionView}},
		{"recognized role with empty set also falls back", []string{"S3-None"}, []Permission{PermissionView}},
		{"known role suppresses fallback", []string{"S3-Editor", "Unknown"}, []Permission{PermissionView, PermissionWrite}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := MapRolesToPermissions(tt.roles, testRoleMap(), "S3-Viewer")
			assert.Equal(t, tt.want, set.List())
		})
	}
}

func TestMapRolesToPermissionsNoDefaultConfigured(t *testing.T) {
	set := MapRolesToPermissions([]string{"Unknown"}, testRoleMap(), "missing-role")
	assert.Empty(t, set.List())
	assert.False(t, set.Has(PermissionView))
}

func TestPermissionSetHas(t *testing.T) {
	set := MapRolesToPermissions([]string{"S3-Editor"}, testRoleMap(), "S3-Viewer")
	assert.True(t, set.Has(PermissionView))
	assert.True(t, set.Has(PermissionWrite))
	assert.False(t, set.Has(PermissionDelete))
}
