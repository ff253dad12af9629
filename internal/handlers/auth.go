package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/courseportal/backend/internal/middleware"
	"github.com/courseportal/backend/internal/models"
	"github.com/courseportal/backend/internal/services"
	"github.com/courseportal/backend/pkg/logger"
	"github.com/courseportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB    *gorm.DB
	Roles *services.RoleService
	SSO   *services.SSOService
}

func NewAuthHandler(db *gorm.DB, roles *services.RoleService, sso *services.SSOService) *AuthHandler {
	return &AuthHandler{DB: db, Roles: roles, SSO: sso}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	email := services.NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return utils.Error(c, fiber.StatusBadRequest, "a valid email is required")
	}
	if len(req.Password) < 8 {
		return utils.Error(c, fiber.StatusBadRequest, utils.AuthErrorMessage(utils.ErrCodeWeakPassword))
	}

	var existing models.User
	if err := h.DB.First(&existing, "email = ?", email).Error; err == nil {
		return utils.Error(c, fiber.StatusConflict, utils.AuthErrorMessage(utils.ErrCodeEmailInUse))
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to create account")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = email[:strings.IndexByte(email, '@')]
	}

	user := models.User{
		Email:         email,
		PasswordHash:  hash,
		Name:          name,
		Role:          models.PortalRoleViewer,
		Status:        models.UserStatusPending,
		Organizations: []string{},
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to create account")
	}

	logger.InfoWithUser(user.ID.String(), "user_registered", map[string]interface{}{
		"email": email,
	})

	admin := h.Roles.AdminClaimHint(c.Context(), user.ID, user.Email)
	token, err := utils.GenerateToken(user.ID, user.Email, admin)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to issue token")
	}
	return utils.Success(c, fiber.StatusCreated, authResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	var user models.User
	err := h.DB.First(&user, "email = ?", services.NormalizeEmail(req.Email)).Error
	if err != nil {
		// Same message for missing account and wrong password.
		return utils.Error(c, fiber.StatusUnauthorized, utils.AuthErrorMessage(utils.ErrCodeInvalidCredentials))
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		logger.WarnWithUser(user.ID.String(), "login_failed", map[string]interface{}{
			"ip": c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, utils.AuthErrorMessage(utils.ErrCodeInvalidCredentials))
	}
	if user.Status == models.UserStatusDisabled {
		return utils.Error(c, fiber.StatusForbidden, utils.AuthErrorMessage(utils.ErrCodeUserDisabled))
	}

	admin := h.Roles.AdminClaimHint(c.Context(), user.ID, user.Email)
	token, err := utils.GenerateToken(user.ID, user.Email, admin)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to issue token")
	}

	logger.InfoWithUser(user.ID.String(), "login_success", nil)
	return utils.Success(c, fiber.StatusOK, authResponse{Token: token, User: user})
}

// Me returns the signed-in user together with their resolved access: the
// platform-admin answer and the portal role. The frontend renders its
// navigation from this.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	resolution := h.Roles.Resolve(c.Context(), services.Identity{
		UID:   user.ID,
		Email: user.Email,
		Name:  user.Name,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"user":            user,
		"isPlatformAdmin": resolution.IsPlatformAdmin,
		"portalRole":      resolution.PortalRole,
	})
}

type updateMeRequest struct {
	Name          *string   `json:"name"`
	Bio           *string   `json:"bio"`
	Avatar        *string   `json:"avatar"`
	Organizations *[]string `json:"organizations"`
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateMeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	// The struct mirrors the column map; the response body echoes it.
	updates := map[string]interface{}{}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		user.Name = strings.TrimSpace(*req.Name)
		updates["name"] = user.Name
	}
	if req.Bio != nil {
		user.Bio = req.Bio
		updates["bio"] = *req.Bio
	}
	if req.Avatar != nil {
		user.Avatar = req.Avatar
		updates["avatar"] = *req.Avatar
	}
	if len(updates) > 0 {
		if err := h.DB.Model(user).Updates(updates).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed to update profile")
		}
	}
	if req.Organizations != nil {
		user.Organizations = *req.Organizations
		if err := h.DB.Model(user).Update("organizations", user.Organizations).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed to update profile")
		}
	}
	return utils.Success(c, fiber.StatusOK, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword sets a new password and, for provisioned accounts, clears
// the must-change flag that gates the rest of the portal.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.NewPassword) < 8 {
		return utils.Error(c, fiber.StatusBadRequest, utils.AuthErrorMessage(utils.ErrCodeWeakPassword))
	}
	if !utils.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return utils.Error(c, fiber.StatusUnauthorized, utils.AuthErrorMessage(utils.ErrCodeInvalidCredentials))
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to change password")
	}
	err = h.DB.Model(user).Updates(map[string]interface{}{
		"password_hash":        hash,
		"must_change_password": false,
	}).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to change password")
	}

	logger.InfoWithUser(user.ID.String(), "password_changed", nil)
	return utils.Success(c, fiber.StatusOK, fiber.Map{"changed": true})
}

const oauthStateCookie = "oauth_state"

// GoogleRedirect starts the Google sign-in round trip.
func (h *AuthHandler) GoogleRedirect(c *fiber.Ctx) error {
	url, state, err := h.SSO.AuthURL()
	if err != nil {
		if errors.Is(err, services.ErrSSODisabled) {
			return utils.Error(c, fiber.StatusNotImplemented, "google sign-in is not configured")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed to start google sign-in")
	}

	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Expires:  time.Now().Add(services.StateTTL),
		HTTPOnly: true,
		SameSite: "Lax",
	})
	return c.Redirect(url, fiber.StatusTemporaryRedirect)
}

// GoogleCallback completes the round trip: verifies the state, exchanges the
// code, and signs in the matching portal account, creating one on first use.
func (h *AuthHandler) GoogleCallback(c *fiber.Ctx) error {
	state := c.Query("state")
	if state == "" || state != c.Cookies(oauthStateCookie) {
		return utils.Error(c, fiber.StatusBadRequest, "invalid oauth state")
	}
	c.ClearCookie(oauthStateCookie)

	code := c.Query("code")
	if code == "" {
		return utils.Error(c, fiber.StatusBadRequest, "missing authorization code")
	}

	profile, err := h.SSO.Exchange(c.Context(), code)
	if err != nil {
		return utils.Error(c, fiber.StatusBadGateway, "google sign-in failed")
	}

	user, err := h.SSO.FindOrCreateUser(c.Context(), profile)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to sign in")
	}
	if user.Status == models.UserStatusDisabled {
		return utils.Error(c, fiber.StatusForbidden, utils.AuthErrorMessage(utils.ErrCodeUserDisabled))
	}

	admin := h.Roles.AdminClaimHint(c.Context(), user.ID, user.Email)
	token, err := utils.GenerateToken(user.ID, user.Email, admin)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to issue token")
	}
	return utils.Success(c, fiber.StatusOK, authResponse{Token: token, User: *user})
}
