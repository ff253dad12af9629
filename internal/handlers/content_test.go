package handlers

import (
	"net/http"
	"testing"

	"github.com/courseportal/backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

func TestContentSectionReadIsPublicAndOrdered(t *testing.T) {
	env := setupTestEnv(t)

	items := []models.ContentItem{
		{Section: "home", Key: "hero", Value: "Welcome", Type: "text", Order: 2, IsActive: true},
		{Section: "home", Key: "intro", Value: "About the course", Type: "text", Order: 1, IsActive: true},
		{Section: "home", Key: "draft", Value: "Hidden", Type: "text", Order: 3, IsActive: false},
		{Section: "about", Key: "story", Value: "Our story", Type: "text", Order: 1, IsActive: true},
	}
	for i := range items {
		if err := env.db.Create(&items[i]).Error; err != nil {
			t.Fatalf("failed seeding content: %v", err)
		}
	}

	resp := performJSONRequest(t, env.app, http.MethodGet, "/api/content/home", nil, nil)
	assertStatus(t, resp, fiber.StatusOK)

	body := decodeJSONMap(t, resp)
	data := body["data"].([]any)
	if len(data) != 2 {
		t.Fatalf("expected 2 active items in section, got %d", len(data))
	}
	first := data[0].(map[string]any)
	if first["key"] != "intro" {
		t.Fatalf("expected order-sorted items, first was %v", first["key"])
	}
}

func TestContentUpsertCreatesAndUpdates(t *testing.T) {
	env := setupTestEnv(t)
	admin, _ := createTestUser(t, env.db, "admin@example.org", "password123", models.PortalRoleAdmin)
	token := grantTestAdmin(t, env.db, admin)

	created := performJSONRequest(t, env.app, http.MethodPut, "/api/admin/content/home/hero",
		map[string]any{"value": "Welcome", "type": "text", "order": 1}, authHeaders(token))
	assertStatus(t, created, fiber.StatusOK)

	updated := performJSONRequest(t, env.app, http.MethodPut, "/api/admin/content/home/hero",
		map[string]any{"value": "Welcome back"}, authHeaders(token))
	assertStatus(t, updated, fiber.StatusOK)

	var count int64
	env.db.Model(&models.ContentItem{}).Where("section = ? AND key = ?", "home", "hero").Count(&count)
	if count != 1 {
		t.Fatalf("upsert must not duplicate rows, got %d", count)
	}

	var item models.ContentItem
	if err := env.db.First(&item, "section = ? AND key = ?", "home", "hero").Error; err != nil {
		t.Fatalf("failed loading item: %v", err)
	}
	if item.Value != "Welcome back" {
		t.Fatalf("expected updated value, got %v", item.Value)
	}
	if item.UpdatedBy != "admin@example.org" {
		t.Fatalf("expected editor attribution, got %q", item.UpdatedBy)
	}
}

func TestContentDeactivationHidesItemFromPublicRead(t *testing.T) {
	env := setupTestEnv(t)
	admin, _ := createTestUser(t, env.db, "admin@example.org", "password123", models.PortalRoleAdmin)
	token := grantTestAdmin(t, env.db, admin)

	// Created inactive from the first write: the insert must store false,
	// not fall back to an active default.
	created := performJSONRequest(t, env.app, http.MethodPut, "/api/admin/content/home/banner",
		map[string]any{"value": "Sale!", "order": 1, "isActive": false}, authHeaders(token))
	assertStatus(t, created, fiber.StatusOK)

	var item models.ContentItem
	if err := env.db.First(&item, "section = ? AND key = ?", "home", "banner").Error; err != nil {
		t.Fatalf("failed loading item: %v", err)
	}
	if item.IsActive {
		t.Fatal("expected item to be stored inactive")
	}

	resp := performJSONRequest(t, env.app, http.MethodGet, "/api/content/home", nil, nil)
	assertStatus(t, resp, fiber.StatusOK)
	body := decodeJSONMap(t, resp)
	if data, _ := body["data"].([]any); len(data) != 0 {
		t.Fatalf("expected no active items while inactive, got %d", len(data))
	}

	activated := performJSONRequest(t, env.app, http.MethodPut, "/api/admin/content/home/banner",
		map[string]any{"value": "Sale!", "isActive": true}, authHeaders(token))
	assertStatus(t, activated, fiber.StatusOK)

	resp = performJSONRequest(t, env.app, http.MethodGet, "/api/content/home", nil, nil)
	assertStatus(t, resp, fiber.StatusOK)
	body = decodeJSONMap(t, resp)
	if data := body["data"].([]any); len(data) != 1 {
		t.Fatalf("expected 1 active item after activation, got %d", len(data))
	}
}

func TestContentWritesRequireAdmin(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "member@example.org", "password123", models.PortalRoleManager)

	resp := performJSONRequest(t, env.app, http.MethodPut, "/api/admin/content/home/hero",
		map[string]any{"value": "Hacked"}, authHeaders(token))
	assertStatus(t, resp, fiber.StatusForbidden)
}
