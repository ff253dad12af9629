package handlers

import (
	"github.com/courseportal/backend/internal/models"
	"github.com/courseportal/backend/internal/services"
	"github.com/courseportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type PermissionsHandler struct {
	Permissions *services.PermissionService
}

func NewPermissionsHandler(permissions *services.PermissionService) *PermissionsHandler {
	return &PermissionsHandler{Permissions: permissions}
}

func (h *PermissionsHandler) Get(c *fiber.Ctx) error {
	cfg, err := h.Permissions.Get(c.Context())
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading permissions")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"permissions": cfg,
		"available":   models.AllPermissionIDs,
	})
}

type setPermissionsRequest struct {
	Viewer      []string `json:"viewer"`
	Contributor []string `json:"contributor"`
	Manager     []string `json:"manager"`
	Admin       []string `json:"admin"`
}

// Set replaces the whole mapping. Unknown permission ids are rejected so a
// typo cannot silently grant nothing.
func (h *PermissionsHandler) Set(c *fiber.Ctx) error {
	var req setPermissionsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	for _, list := range [][]string{req.Viewer, req.Contributor, req.Manager, req.Admin} {
		for _, id := range list {
			if !validPermissionID(id) {
				return utils.Error(c, fiber.StatusBadRequest, "unknown permission id: "+id)
			}
		}
	}

	cfg := models.RolePermissionsConfig{
		Viewer:      emptyIfNil(req.Viewer),
		Contributor: emptyIfNil(req.Contributor),
		Manager:     emptyIfNil(req.Manager),
		Admin:       emptyIfNil(req.Admin),
	}
	if err := h.Permissions.Set(c.Context(), cfg); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed saving permissions")
	}
	return utils.Success(c, fiber.StatusOK, cfg)
}

func validPermissionID(id string) bool {
	for _, known := range models.AllPermissionIDs {
		if known == id {
			return true
		}
	}
	return false
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
