package handlers

import (
	"net/http"
	"testing"

	"github.com/courseportal/backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

func TestApprovePendingUser(t *testing.T) {
	env := setupTestEnv(t)
	admin, _ := createTestUser(t, env.db, "admin@example.org", "password123", models.PortalRoleAdmin)
	token := grantTestAdmin(t, env.db, admin)

	pending, _ := createTestUser(t, env.db, "pending@example.org", "password123", models.PortalRoleViewer)
	env.db.Model(pending).Update("status", models.UserStatusPending)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/admin/users/"+pending.ID.String()+"/approve", nil, authHeaders(token))
	assertStatus(t, resp, fiber.StatusOK)

	var updated models.User
	if err := env.db.First(&updated, "id = ?", pending.ID).Error; err != nil {
		t.Fatalf("failed reloading user: %v", err)
	}
	if updated.Status != models.UserStatusActive {
		t.Fatalf("expected active status after approval, got %q", updated.Status)
	}

	// Approving twice is harmless.
	again := performJSONRequest(t, env.app, http.MethodPost, "/api/admin/users/"+pending.ID.String()+"/approve", nil, authHeaders(token))
	assertStatus(t, again, fiber.StatusOK)
}

func TestAdminUpdateUserValidatesRole(t *testing.T) {
	env := setupTestEnv(t)
	admin, _ := createTestUser(t, env.db, "admin@example.org", "password123", models.PortalRoleAdmin)
	token := grantTestAdmin(t, env.db, admin)
	target, _ := createTestUser(t, env.db, "target@example.org", "password123", models.PortalRoleViewer)

	bad := performJSONRequest(t, env.app, http.MethodPut, "/api/admin/users/"+target.ID.String(),
		map[string]any{"role": "owner"}, authHeaders(token))
	assertStatus(t, bad, fiber.StatusBadRequest)

	ok := performJSONRequest(t, env.app, http.MethodPut, "/api/admin/users/"+target.ID.String(),
		map[string]any{"role": "manager"}, authHeaders(token))
	assertStatus(t, ok, fiber.StatusOK)

	var updated models.User
	if err := env.db.First(&updated, "id = ?", target.ID).Error; err != nil {
		t.Fatalf("failed reloading user: %v", err)
	}
	if updated.Role != models.PortalRoleManager {
		t.Fatalf("expected manager role, got %q", updated.Role)
	}
}

func TestAdminCannotDeleteOwnAccount(t *testing.T) {
	env := setupTestEnv(t)
	admin, _ := createTestUser(t, env.db, "admin@example.org", "password123", models.PortalRoleAdmin)
	token := grantTestAdmin(t, env.db, admin)

	resp := performJSONRequest(t, env.app, http.MethodDelete, "/api/admin/users/"+admin.ID.String(), nil, authHeaders(token))
	assertStatus(t, resp, fiber.StatusBadRequest)
}

func TestUserListSearchAndStatusFilter(t *testing.T) {
	env := setupTestEnv(t)
	admin, _ := createTestUser(t, env.db, "admin@example.org", "password123", models.PortalRoleAdmin)
	token := grantTestAdmin(t, env.db, admin)
	createTestUser(t, env.db, "alice@example.org", "password123", models.PortalRoleViewer)
	bob, _ := createTestUser(t, env.db, "bob@example.org", "password123", models.PortalRoleViewer)
	env.db.Model(bob).Update("status", models.UserStatusPending)

	resp := performJSONRequest(t, env.app, http.MethodGet, "/api/admin/users?status=pending", nil, authHeaders(token))
	assertStatus(t, resp, fiber.StatusOK)
	body := decodeJSONMap(t, resp)
	items := body["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one pending user, got %d", len(items))
	}

	search := performJSONRequest(t, env.app, http.MethodGet, "/api/admin/users?search=alice", nil, authHeaders(token))
	assertStatus(t, search, fiber.StatusOK)
	searchBody := decodeJSONMap(t, search)
	searchItems := searchBody["data"].([]any)
	if len(searchItems) != 1 {
		t.Fatalf("expected one match for alice, got %d", len(searchItems))
	}
}
