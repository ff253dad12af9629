package handlers

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/courseportal/backend/internal/config"
	"github.com/courseportal/backend/internal/middleware"
	"github.com/courseportal/backend/internal/models"
	"github.com/courseportal/backend/internal/services"
	"github.com/courseportal/backend/pkg/logger"
	"github.com/courseportal/backend/pkg/utils"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

type testEnv struct {
	app   *fiber.App
	db    *gorm.DB
	tasks *services.TaskRunner
	roles *services.RoleService
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.AdminRecord{},
		&models.RolePermissionsConfig{},
		&models.Whiteboard{},
		&models.WhiteboardMember{},
		&models.UserWhiteboard{},
		&models.WhiteboardState{},
		&models.Webcast{},
		&models.ContentItem{},
		&models.Team{},
		&models.WorkItem{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	tasks := services.NewTaskRunner(16)
	t.Cleanup(tasks.Close)

	adminCfg := config.AdminConfig{
		AllowedEmails: []string{"founder@example.org"},
		TempPassword:  "ChangeMe123!",
		CheckTimeout:  2 * time.Second,
		ProvisionOrigins: []string{
			"http://localhost:5173",
			"http://localhost:4173",
			"https://portal.compassioncourse.org",
		},
	}

	roleService := services.NewRoleService(db, tasks, adminCfg.AllowedEmails, adminCfg.CheckTimeout)
	permissionService := services.NewPermissionService(db)
	boardService := services.NewWhiteboardService(db, newFakeObjectStore())
	ssoService := services.NewSSOService(db, config.SSOConfig{})

	authHandler := NewAuthHandler(db, roleService, ssoService)
	usersHandler := NewUsersHandler(db)
	adminsHandler := NewAdminsHandler(db, roleService)
	provisionHandler := NewProvisionHandler(db, roleService, adminCfg)
	boardsHandler := NewWhiteboardsHandler(boardService)
	webcastsHandler := NewWebcastsHandler(db)
	contentHandler := NewContentHandler(db)
	teamsHandler := NewTeamsHandler(db)
	permissionsHandler := NewPermissionsHandler(permissionService)

	authMiddleware := middleware.NewAuthMiddleware(db, roleService)

	app := fiber.New(fiber.Config{BodyLimit: 50 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS("http://localhost:5173"))
	app.Use(middleware.RequestLogger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	app.All("/createUserByAdmin", provisionHandler.CreateUserByAdmin)

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)

	api.Get("/content/:section", contentHandler.GetSection)
	api.Get("/webcasts", authMiddleware.OptionalAuth, webcastsHandler.List)
	api.Get("/webcasts/:id", authMiddleware.OptionalAuth, webcastsHandler.Get)

	boardRoutes := api.Group("/whiteboards", authMiddleware.RequireAuth)
	boardRoutes.Get("/", boardsHandler.List)
	boardRoutes.Post("/", boardsHandler.Create)
	boardRoutes.Get("/:id", boardsHandler.Get)
	boardRoutes.Put("/:id", boardsHandler.Rename)
	boardRoutes.Delete("/:id", boardsHandler.Delete)
	boardRoutes.Get("/:id/members", boardsHandler.ListMembers)
	boardRoutes.Post("/:id/members", boardsHandler.AddMember)
	boardRoutes.Delete("/:id/members/:userId", boardsHandler.RemoveMember)
	boardRoutes.Get("/:id/state", boardsHandler.GetState)
	boardRoutes.Put("/:id/state", boardsHandler.SaveState)

	leadershipRoutes := api.Group("/leadership", authMiddleware.RequireAuth, authMiddleware.RequireManager)
	leadershipRoutes.Get("/teams", teamsHandler.ListTeams)
	leadershipRoutes.Post("/teams", teamsHandler.CreateTeam)
	leadershipRoutes.Put("/teams/:id", teamsHandler.UpdateTeam)
	leadershipRoutes.Delete("/teams/:id", teamsHandler.DeleteTeam)
	leadershipRoutes.Get("/work-items", teamsHandler.ListWorkItems)
	leadershipRoutes.Post("/work-items", teamsHandler.CreateWorkItem)
	leadershipRoutes.Put("/work-items/:id", teamsHandler.UpdateWorkItem)
	leadershipRoutes.Delete("/work-items/:id", teamsHandler.DeleteWorkItem)

	adminRoutes := api.Group("/admin", authMiddleware.RequireAuth, authMiddleware.RequireAdmin)
	adminRoutes.Get("/users", usersHandler.List)
	adminRoutes.Get("/users/:id", usersHandler.Get)
	adminRoutes.Put("/users/:id", usersHandler.Update)
	adminRoutes.Post("/users/:id/approve", usersHandler.Approve)
	adminRoutes.Delete("/users/:id", usersHandler.Delete)
	adminRoutes.Get("/admins", adminsHandler.List)
	adminRoutes.Post("/admins", adminsHandler.Grant)
	adminRoutes.Delete("/admins/:id", adminsHandler.Revoke)
	adminRoutes.Post("/webcasts", webcastsHandler.Create)
	adminRoutes.Put("/webcasts/:id", webcastsHandler.Update)
	adminRoutes.Delete("/webcasts/:id", webcastsHandler.Delete)
	adminRoutes.Get("/content", contentHandler.ListSections)
	adminRoutes.Put("/content/:section/:key", contentHandler.Upsert)
	adminRoutes.Delete("/content/:section/:key", contentHandler.Delete)
	adminRoutes.Get("/permissions", permissionsHandler.Get)
	adminRoutes.Put("/permissions", permissionsHandler.Set)

	return &testEnv{app: app, db: db, tasks: tasks, roles: roleService}
}

func createTestUser(t *testing.T, db *gorm.DB, email, password string, role models.PortalRole) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Email:         email,
		PasswordHash:  hash,
		Name:          "Test User",
		Role:          role,
		Status:        models.UserStatusActive,
		Organizations: []string{},
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user.ID, user.Email, false)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

// grantTestAdmin writes the UID-keyed admin record for a user and returns a
// token carrying the admin claim hint.
func grantTestAdmin(t *testing.T, db *gorm.DB, user *models.User) string {
	t.Helper()

	record := models.AdminRecord{
		Key:       user.ID.String(),
		UID:       user.ID.String(),
		Email:     user.Email,
		Role:      models.AdminRoleAdmin,
		Status:    models.AdminStatusActive,
		GrantedBy: "test",
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("failed creating admin record: %v", err)
	}

	token, err := utils.GenerateToken(user.ID, user.Email, true)
	if err != nil {
		t.Fatalf("failed generating admin token: %v", err)
	}
	return token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
