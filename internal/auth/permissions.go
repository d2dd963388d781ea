// Package auth holds the role-derived permission model and the server-side
// session store.
package auth

import "sort"

// Permission is one of the three capability levels an operation can demand.
type Permission string

const (
	PermissionView   Permission = "view"
	PermissionWrite  Permission = "write"
	PermissionDelete Permission = "delete"
)

// PermissionSet is the cached result of the role mapping.
type PermissionSet map[Permission]bool

// Has reports whether the set grants p.
func (s PermissionSet) Has(p Permission) bool { return s[p] }

// List returns the granted permissions in stable order, for JSON responses.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p, ok := range s {
		if ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RoleMap is the static role-name to permission-list configuration.
type RoleMap map[string][]Permission

// MapRolesToPermissions unions the permission sets of every claimed role
// present in the map. An empty union falls back to the default role's set —
// including the case where a recognized role is deliberately mapped to no
// permissions, which is indistinguishable from "no role matched" here.
// Computed once at login; never per request.
func MapRolesToPermissions(roles []string, roleMap RoleMap, defaultRole string) PermissionSet {
	set := make(PermissionSet)
	for _, role := range roles {
		for _, p := range roleMap[role] {
			set[p] = true
		}
	}
	if len(set) == 0 {
		for _, p := range roleMap[defaultRole] {
			set[p] = true
		}
	}
	return set
}
