package middleware

import (
	"strings"

	"github.com/courseportal/backend/internal/models"
	"github.com/courseportal/backend/internal/services"
	"github.com/courseportal/backend/pkg/logger"
	"github.com/courseportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/gorm"
)

const (
	currentUserKey = "currentUser"
	resolutionKey  = "roleResolution"
	claimsKey      = "tokenClaims"
)

type AuthMiddleware struct {
	DB    *gorm.DB
	Roles *services.RoleService
}

func NewAuthMiddleware(db *gorm.DB, roles *services.RoleService) *AuthMiddleware {
	return &AuthMiddleware{DB: db, Roles: roles}
}

func CORS(frontendURL string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: frontendURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	})
}

func (a *AuthMiddleware) RequireAuth(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		logger.Warn("jwt_missing_header", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "missing authorization header")
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if tokenString == authHeader || tokenString == "" {
		logger.Warn("jwt_invalid_format", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid authorization format")
	}

	claims, err := utils.ValidateToken(tokenString)
	if err != nil {
		logger.Warn("jwt_validation_failed", map[string]interface{}{
			"ip":    c.IP(),
			"path":  c.Path(),
			"error": err.Error(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid or expired token")
	}

	var user models.User
	if err := a.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
		logger.Warn("jwt_user_not_found", map[string]interface{}{
			"ip":      c.IP(),
			"path":    c.Path(),
			"user_id": claims.UserID,
		})
		return utils.Error(c, fiber.StatusUnauthorized, "user not found")
	}
	if user.Status == models.UserStatusDisabled {
		return utils.Error(c, fiber.StatusForbidden, "account disabled")
	}

	// A provisioned account must set its own password before touching
	// anything else. The change-password and me endpoints stay reachable.
	if user.MustChangePassword && !passwordChangeExempt(c.Path()) {
		return utils.Error(c, fiber.StatusForbidden, "password change required")
	}

	c.Locals(currentUserKey, &user)
	c.Locals(claimsKey, claims)
	return c.Next()
}

func passwordChangeExempt(path string) bool {
	return strings.HasPrefix(path, "/api/auth/me") ||
		strings.HasPrefix(path, "/api/auth/password")
}

func (a *AuthMiddleware) OptionalAuth(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Next()
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if tokenString == authHeader || tokenString == "" {
		return c.Next()
	}

	claims, err := utils.ValidateToken(tokenString)
	if err != nil {
		return c.Next()
	}

	var user models.User
	if err := a.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
		return c.Next()
	}

	c.Locals(currentUserKey, &user)
	c.Locals(claimsKey, claims)
	return c.Next()
}

// RequireAdmin runs the full role resolution rather than trusting the token
// claim alone. A stale or missing claim still resolves through the admin
// records; an unresolvable check falls through to denial here, never to a
// grant.
func (a *AuthMiddleware) RequireAdmin(c *fiber.Ctx) error {
	user := GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	resolution := a.Roles.Resolve(c.Context(), services.Identity{
		UID:    user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Claims: tokenClaimSource(c),
	})
	c.Locals(resolutionKey, resolution)

	if !resolution.IsPlatformAdmin {
		logger.WarnWithUser(user.ID.String(), "admin_access_denied", map[string]interface{}{
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusForbidden, "admin access required")
	}
	return c.Next()
}

// RequireManager admits platform admins and users whose portal role is
// manager or admin.
func (a *AuthMiddleware) RequireManager(c *fiber.Ctx) error {
	user := GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	resolution := a.Roles.Resolve(c.Context(), services.Identity{
		UID:    user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Claims: tokenClaimSource(c),
	})
	c.Locals(resolutionKey, resolution)

	if resolution.IsPlatformAdmin ||
		resolution.PortalRole == models.PortalRoleManager ||
		resolution.PortalRole == models.PortalRoleAdmin {
		return c.Next()
	}
	return utils.Error(c, fiber.StatusForbidden, "manager access required")
}

func tokenClaimSource(c *fiber.Ctx) services.ClaimSource {
	value := c.Locals(claimsKey)
	if value == nil {
		return nil
	}
	claims, ok := value.(*utils.Claims)
	if !ok {
		return nil
	}
	return services.TokenClaims{Admin: claims.Admin}
}

func GetCurrentUser(c *fiber.Ctx) *models.User {
	value := c.Locals(currentUserKey)
	if value == nil {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

func GetResolution(c *fiber.Ctx) (services.Resolution, bool) {
	value := c.Locals(resolutionKey)
	if value == nil {
		return services.Resolution{}, false
	}
	resolution, ok := value.(services.Resolution)
	return resolution, ok
}
