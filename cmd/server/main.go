package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courseportal/backend/internal/config"
	"github.com/courseportal/backend/internal/database"
	"github.com/courseportal/backend/internal/handlers"
	"github.com/courseportal/backend/internal/middleware"
	"github.com/courseportal/backend/internal/services"
	"github.com/courseportal/backend/internal/storage"
	"github.com/courseportal/backend/pkg/logger"
	"github.com/courseportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	storageClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := storageClient.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	tasks := services.NewTaskRunner(64)
	defer tasks.Close()

	roleService := services.NewRoleService(db, tasks, cfg.Admin.AllowedEmails, cfg.Admin.CheckTimeout)
	permissionService := services.NewPermissionService(db)
	boardService := services.NewWhiteboardService(db, storageClient)
	ssoService := services.NewSSOService(db, cfg.SSO)

	authHandler := handlers.NewAuthHandler(db, roleService, ssoService)
	usersHandler := handlers.NewUsersHandler(db)
	adminsHandler := handlers.NewAdminsHandler(db, roleService)
	provisionHandler := handlers.NewProvisionHandler(db, roleService, cfg.Admin)
	boardsHandler := handlers.NewWhiteboardsHandler(boardService)
	webcastsHandler := handlers.NewWebcastsHandler(db)
	contentHandler := handlers.NewContentHandler(db)
	teamsHandler := handlers.NewTeamsHandler(db)
	permissionsHandler := handlers.NewPermissionsHandler(permissionService)

	authMiddleware := middleware.NewAuthMiddleware(db, roleService)

	app := fiber.New(fiber.Config{BodyLimit: 50 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.FrontendURL))
	app.Use(middleware.RequestLogger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	// Standalone provisioning endpoint: handles its own CORS and method
	// dispatch, so it registers for every verb at a fixed path.
	app.All("/createUserByAdmin", provisionHandler.CreateUserByAdmin)

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/google", authHandler.GoogleRedirect)
	authRoutes.Get("/google/callback", authHandler.GoogleCallback)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)

	// Public site content and the webcast schedule need no session.
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

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
