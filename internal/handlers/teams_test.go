package handlers

import (
	"net/http"
	"testing"

	"github.com/courseportal/backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

func TestLeadershipRoutesRequireManager(t *testing.T) {
	env := setupTestEnv(t)
	_, viewerToken := createTestUser(t, env.db, "viewer@example.org", "password123", models.PortalRoleViewer)
	_, managerToken := createTestUser(t, env.db, "manager@example.org", "password123", models.PortalRoleManager)

	denied := performJSONRequest(t, env.app, http.MethodGet, "/api/leadership/teams", nil, authHeaders(viewerToken))
	assertStatus(t, denied, fiber.StatusForbidden)

	allowed := performJSONRequest(t, env.app, http.MethodGet, "/api/leadership/teams", nil, authHeaders(managerToken))
	assertStatus(t, allowed, fiber.StatusOK)
}

func TestWorkItemStatusTransitionsStampOnce(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "manager@example.org", "password123", models.PortalRoleManager)

	created := performJSONRequest(t, env.app, http.MethodPost, "/api/leadership/work-items",
		map[string]any{"title": "Plan retreat"}, authHeaders(token))
	assertStatus(t, created, fiber.StatusCreated)
	body := decodeJSONMap(t, created)
	data := body["data"].(map[string]any)
	id := data["id"].(string)
	if data["startedAt"] != nil {
		t.Fatal("backlog item must not have startedAt")
	}

	started := performJSONRequest(t, env.app, http.MethodPut, "/api/leadership/work-items/"+id,
		map[string]any{"status": "in_progress"}, authHeaders(token))
	assertStatus(t, started, fiber.StatusOK)
	startedData := decodeJSONMap(t, started)["data"].(map[string]any)
	firstStartedAt, _ := startedData["startedAt"].(string)
	if firstStartedAt == "" {
		t.Fatal("expected startedAt stamped on first in_progress transition")
	}

	done := performJSONRequest(t, env.app, http.MethodPut, "/api/leadership/work-items/"+id,
		map[string]any{"status": "done"}, authHeaders(token))
	assertStatus(t, done, fiber.StatusOK)
	doneData := decodeJSONMap(t, done)["data"].(map[string]any)
	if completedAt, _ := doneData["completedAt"].(string); completedAt == "" {
		t.Fatal("expected completedAt stamped on done transition")
	}

	// Bouncing back and forward must not reset the stamps.
	back := performJSONRequest(t, env.app, http.MethodPut, "/api/leadership/work-items/"+id,
		map[string]any{"status": "todo"}, authHeaders(token))
	assertStatus(t, back, fiber.StatusOK)
	again := performJSONRequest(t, env.app, http.MethodPut, "/api/leadership/work-items/"+id,
		map[string]any{"status": "in_progress"}, authHeaders(token))
	assertStatus(t, again, fiber.StatusOK)
	againData := decodeJSONMap(t, again)["data"].(map[string]any)
	if got, _ := againData["startedAt"].(string); got != firstStartedAt {
		t.Fatalf("startedAt must be write-once, was %q now %q", firstStartedAt, got)
	}
}

func TestWorkItemRejectsUnknownStatus(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "manager@example.org", "password123", models.PortalRoleManager)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/leadership/work-items",
		map[string]any{"title": "Item", "status": "blocked"}, authHeaders(token))
	assertStatus(t, resp, fiber.StatusBadRequest)
}

func TestWorkItemRejectsUnknownLane(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "manager@example.org", "password123", models.PortalRoleManager)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/leadership/work-items",
		map[string]any{"title": "Item", "lane": "vip"}, authHeaders(token))
	assertStatus(t, resp, fiber.StatusBadRequest)

	created := performJSONRequest(t, env.app, http.MethodPost, "/api/leadership/work-items",
		map[string]any{"title": "Item", "lane": "expedited"}, authHeaders(token))
	assertStatus(t, created, fiber.StatusCreated)
	id := decodeJSONMap(t, created)["data"].(map[string]any)["id"].(string)

	updated := performJSONRequest(t, env.app, http.MethodPut, "/api/leadership/work-items/"+id,
		map[string]any{"lane": "vip"}, authHeaders(token))
	assertStatus(t, updated, fiber.StatusBadRequest)
}

func TestTeamCRUD(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "manager@example.org", "password123", models.PortalRoleManager)

	created := performJSONRequest(t, env.app, http.MethodPost, "/api/leadership/teams",
		map[string]any{"name": "Outreach", "memberIds": []string{"u1", "u2"}}, authHeaders(token))
	assertStatus(t, created, fiber.StatusCreated)
	data := decodeJSONMap(t, created)["data"].(map[string]any)
	id := data["id"].(string)

	renamed := performJSONRequest(t, env.app, http.MethodPut, "/api/leadership/teams/"+id,
		map[string]any{"name": "Outreach & Events"}, authHeaders(token))
	assertStatus(t, renamed, fiber.StatusOK)

	deleted := performJSONRequest(t, env.app, http.MethodDelete, "/api/leadership/teams/"+id, nil, authHeaders(token))
	assertStatus(t, deleted, fiber.StatusOK)

	var count int64
	env.db.Model(&models.Team{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected team removed, %d remain", count)
	}
}
