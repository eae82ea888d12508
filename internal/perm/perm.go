// Package perm holds the role rules that decide which items a user sees by default.
package perm

import (
	"strings"

	"parrillas/internal/model"
)

// IsManagement reports whether role oversees the whole agency rather than its own assignments.
func IsManagement(role model.Role) bool {
	return role == model.RoleCEO || role == model.RoleCreativeDirector
}

// RelevantItems returns every item for management roles and, for everyone else, the
// items user is assigned to.
func RelevantItems(items []model.ContentItemWithRelations, user model.UserProfile) []model.ContentItemWithRelations {
	if IsManagement(user.Role) {
		return items
	}
	uid := strings.TrimSpace(user.ID)
	if uid == "" {
		return nil
	}
	var out []model.ContentItemWithRelations
	for _, it := range items {
		if it.HasAssignee(uid) {
			out = append(out, it)
		}
	}
	return out
}

// CanManageClients gates client creation and deletion.
// Content managers run client onboarding alongside management.
func CanManageClients(role model.Role) bool {
	return IsManagement(role) || role == model.RoleContentManager
}
