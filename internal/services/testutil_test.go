package services

import (
	"database/sql/driver"
	"sync"
	"testing"
	"time"

	"github.com/courseportal/backend/internal/models"
	"github.com/courseportal/backend/pkg/logger"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var testSetupOnce sync.Once

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
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
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.PortalRole) *models.User {
	t.Helper()

	user := &models.User{
		Email:         email,
		Name:          "Test User",
		Role:          role,
		Status:        models.UserStatusActive,
		Organizations: []string{},
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user: %v", err)
	}
	return user
}
