package handlers

import (
	"strings"

	"github.com/courseportal/backend/internal/middleware"
	"github.com/courseportal/backend/internal/models"
	"github.com/courseportal/backend/pkg/logger"
	"github.com/courseportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UsersHandler struct {
	DB *gorm.DB
}

func NewUsersHandler(db *gorm.DB) *UsersHandler {
	return &UsersHandler{DB: db}
}

func (h *UsersHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)
	search := strings.TrimSpace(c.Query("search"))
	status := strings.TrimSpace(c.Query("status"))

	query := h.DB.Model(&models.User{})
	if search != "" {
		searchValue := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", searchValue, searchValue)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting users")
	}

	var users []models.User
	if err := utils.ApplyPagination(query.Order("created_at DESC"), p).Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing users")
	}
	return utils.Paginated(c, users, p.Page, p.Limit, total)
}

func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "user not found")
	}
	return utils.Success(c, fiber.StatusOK, user)
}

// Approve moves a pending account to active so it can use the portal.
func (h *UsersHandler) Approve(c *fiber.Ctx) error {
	actor := middleware.GetCurrentUser(c)
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "user not found")
	}
	if user.Status == models.UserStatusActive {
		return utils.Success(c, fiber.StatusOK, user)
	}

	if err := h.DB.Model(&user).Update("status", models.UserStatusActive).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to approve user")
	}

	if actor != nil {
		logger.InfoWithUser(actor.ID.String(), "user_approved", map[string]interface{}{
			"target_uid": id.String(),
		})
	}
	user.Status = models.UserStatusActive
	return utils.Success(c, fiber.StatusOK, user)
}

type adminUpdateUserRequest struct {
	Name   *string `json:"name"`
	Role   *string `json:"role"`
	Status *string `json:"status"`
	Bio    *string `json:"bio"`
}

func (h *UsersHandler) Update(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "user not found")
	}

	var req adminUpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		role := models.PortalRole(*req.Role)
		if !models.IsValidPortalRole(role) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid role")
		}
		updates["role"] = role
	}
	if req.Status != nil {
		switch models.UserStatus(*req.Status) {
		case models.UserStatusPending, models.UserStatusActive, models.UserStatusDisabled:
			updates["status"] = *req.Status
		default:
			return utils.Error(c, fiber.StatusBadRequest, "invalid status")
		}
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}

	if len(updates) > 0 {
		if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed to update user")
		}
	}

	if err := h.DB.First(&user, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to load user")
	}
	return utils.Success(c, fiber.StatusOK, user)
}

func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	actor := middleware.GetCurrentUser(c)
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}
	if actor != nil && actor.ID == id {
		return utils.Error(c, fiber.StatusBadRequest, "you cannot delete your own account")
	}

	result := h.DB.Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to delete user")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "user not found")
	}

	if actor != nil {
		logger.InfoWithUser(actor.ID.String(), "user_deleted", map[string]interface{}{
			"target_uid": id.String(),
		})
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
