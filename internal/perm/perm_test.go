package perm

import (
	"testing"

	"parrillas/internal/model"
)

func items() []model.ContentItemWithRelations {
	return []model.ContentItemWithRelations{
		{ContentItem: model.ContentItem{ID: "p-1"}, Assignees: []model.UserProfile{{ID: "u-designer"}}},
		{ContentItem: model.ContentItem{ID: "p-2"}, Assignees: []model.UserProfile{{ID: "u-other"}}},
		{ContentItem: model.ContentItem{ID: "p-3"}},
	}
}

func TestRelevantItems_ManagementSeesAll(t *testing.T) {
	for _, role := range []model.Role{model.RoleCEO, model.RoleCreativeDirector} {
		got := RelevantItems(items(), model.UserProfile{ID: "u-boss", Role: role})
		if len(got) != 3 {
			t.Fatalf("%s: expected all 3 items, got %d", role, len(got))
		}
	}
}

func TestRelevantItems_OthersSeeAssignments(t *testing.T) {
	got := RelevantItems(items(), model.UserProfile{ID: "u-designer", Role: model.RoleDesigner})
	if len(got) != 1 || got[0].ID != "p-1" {
		t.Fatalf("expected only p-1, got %+v", got)
	}

	if got := RelevantItems(items(), model.UserProfile{Role: model.RoleContentManager}); len(got) != 0 {
		t.Fatalf("expected nothing for a profile without id, got %d", len(got))
	}
}

func TestCanManageClients(t *testing.T) {
	if CanManageClients(model.RoleDesigner) {
		t.Fatalf("designers should not manage clients")
	}
	if !CanManageClients(model.RoleContentManager) || !CanManageClients(model.RoleCEO) {
		t.Fatalf("content managers and management should manage clients")
	}
}
