package handlers

import (
	"errors"
	"strings"

	"github.com/courseportal/backend/internal/config"
	"github.com/courseportal/backend/internal/models"
	"github.com/courseportal/backend/internal/services"
	"github.com/courseportal/backend/pkg/logger"
	"github.com/courseportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ProvisionHandler implements the standalone account-provisioning endpoint
// admins call from the back office. It predates the rest of the API surface
// and keeps its own contract: raw JSON bodies without the success envelope,
// and its own CORS handling restricted to the configured origins.
type ProvisionHandler struct {
	DB    *gorm.DB
	Roles *services.RoleService
	Cfg   config.AdminConfig
}

func NewProvisionHandler(db *gorm.DB, roles *services.RoleService, cfg config.AdminConfig) *ProvisionHandler {
	return &ProvisionHandler{DB: db, Roles: roles, Cfg: cfg}
}

type provisionRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	// Older back-office builds send displayName instead of name.
	DisplayName string `json:"displayName"`
}

func (h *ProvisionHandler) applyCORS(c *fiber.Ctx) {
	origin := c.Get("Origin")
	for _, allowed := range h.Cfg.ProvisionOrigins {
		if origin == allowed {
			c.Set("Access-Control-Allow-Origin", origin)
			c.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			c.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			return
		}
	}
	// Unlisted origins get no CORS headers at all; the browser blocks them.
}

// CreateUserByAdmin handles every method on the route. The admin check runs
// the same dual lookup the session resolution uses: UID-keyed record first,
// then the lowercased-email record.
func (h *ProvisionHandler) CreateUserByAdmin(c *fiber.Ctx) error {
	h.applyCORS(c)

	switch c.Method() {
	case fiber.MethodOptions:
		return c.SendStatus(fiber.StatusNoContent)
	case fiber.MethodPost:
	default:
		return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{
			"error": "Method not allowed",
		})
	}

	authHeader := c.Get("Authorization")
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if authHeader == "" || tokenString == authHeader || tokenString == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing or invalid authorization token",
		})
	}

	claims, err := utils.ValidateToken(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing or invalid authorization token",
		})
	}

	resolution := h.Roles.Resolve(c.Context(), services.Identity{
		UID:    claims.UserID,
		Email:  claims.Email,
		Claims: services.TokenClaims{Admin: claims.Admin},
	})
	if !resolution.IsPlatformAdmin {
		logger.WarnWithUser(claims.UserID.String(), "provision_denied", map[string]interface{}{
			"ip": c.IP(),
		})
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Caller is not an administrator",
		})
	}

	var req provisionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	email := services.NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A valid email is required",
		})
	}

	var existing models.User
	err = h.DB.First(&existing, "email = ?", email).Error
	if err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "An account already exists for this email",
		})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create user",
		})
	}

	hash, err := utils.HashPassword(h.Cfg.TempPassword)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create user",
		})
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.TrimSpace(req.DisplayName)
	}
	if name == "" {
		name = email[:strings.IndexByte(email, '@')]
	}

	user := models.User{
		Email:              email,
		PasswordHash:       hash,
		Name:               name,
		Role:               models.PortalRoleViewer,
		Status:             models.UserStatusActive,
		MustChangePassword: true,
		Organizations:      []string{},
	}
	if err := h.DB.Create(&user).Error; err != nil {
		logger.Error("provision_create_failed", err, map[string]interface{}{
			"email": email,
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create user",
		})
	}

	logger.InfoWithUser(claims.UserID.String(), "user_provisioned", map[string]interface{}{
		"created_uid":   user.ID.String(),
		"created_email": email,
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"uid":               user.ID.String(),
		"email":             user.Email,
		"temporaryPassword": h.Cfg.TempPassword,
	})
}
