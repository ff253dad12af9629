package handlers

import (
	"errors"

	"github.com/courseportal/backend/internal/middleware"
	"github.com/courseportal/backend/internal/models"
	"github.com/courseportal/backend/internal/services"
	"github.com/courseportal/backend/pkg/logger"
	"github.com/courseportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminsHandler exposes the back-office operations on admin records.
// Every route behind it is gated by the full role resolution.
type AdminsHandler struct {
	DB    *gorm.DB
	Roles *services.RoleService
}

func NewAdminsHandler(db *gorm.DB, roles *services.RoleService) *AdminsHandler {
	return &AdminsHandler{DB: db, Roles: roles}
}

func (h *AdminsHandler) List(c *fiber.Ctx) error {
	var records []models.AdminRecord
	if err := h.DB.Order("granted_at DESC").Find(&records).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing admins")
	}
	return utils.Success(c, fiber.StatusOK, records)
}

type grantRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

func (h *AdminsHandler) Grant(c *fiber.Ctx) error {
	actor := middleware.GetCurrentUser(c)
	if actor == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req grantRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	targetID, err := parseUUID(req.UserID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	email := services.NormalizeEmail(req.Email)
	if email == "" {
		var target models.User
		if err := h.DB.First(&target, "id = ?", targetID).Error; err != nil {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		email = services.NormalizeEmail(target.Email)
	}

	if err := h.Roles.Grant(c.Context(), actor.Email, targetID, email); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to grant admin access")
	}

	logger.InfoWithUser(actor.ID.String(), "admin_granted", map[string]interface{}{
		"target_uid":   targetID.String(),
		"target_email": email,
	})
	return utils.Success(c, fiber.StatusOK, fiber.Map{"granted": true})
}

func (h *AdminsHandler) Revoke(c *fiber.Ctx) error {
	actor := middleware.GetCurrentUser(c)
	if actor == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	targetID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	err = h.Roles.Revoke(c.Context(), actor.ID, targetID, c.Query("email"))
	if err != nil {
		if errors.Is(err, services.ErrSelfRevocation) {
			return utils.Error(c, fiber.StatusBadRequest, "you cannot revoke your own admin access")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed to revoke admin access")
	}

	logger.InfoWithUser(actor.ID.String(), "admin_revoked", map[string]interface{}{
		"target_uid": targetID.String(),
	})
	return utils.Success(c, fiber.StatusOK, fiber.Map{"revoked": true})
}
