package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/courseportal/backend/internal/config"
	"github.com/courseportal/backend/internal/models"
	"github.com/courseportal/backend/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := seedFirstAdmin(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
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
}

// seedFirstAdmin bootstraps an empty database with one active admin account
// plus its UID-keyed admin record, so the back office is reachable on first run.
func seedFirstAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword("admin123")
	if err != nil {
		return err
	}

	admin := models.User{
		Email:         "admin@portal.local",
		PasswordHash:  hash,
		Name:          "System Admin",
		Role:          models.PortalRoleAdmin,
		Status:        models.UserStatusActive,
		Organizations: []string{},
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	record := models.AdminRecord{
		Key:       admin.ID.String(),
		UID:       admin.ID.String(),
		Email:     strings.ToLower(admin.Email),
		Role:      models.AdminRoleAdmin,
		Status:    models.AdminStatusActive,
		GrantedBy: "seed",
		GrantedAt: time.Now().UTC(),
	}
	return db.Create(&record).Error
}
