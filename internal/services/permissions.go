package services

import (
	"context"
	"errors"

	"github.com/courseportal/backend/internal/models"
	"gorm.io/gorm"
)

// PermissionService owns the singleton role-to-permissions mapping. Reads
// fall back to the built-in defaults until an admin saves a custom mapping.
type PermissionService struct {
	DB *gorm.DB
}

func NewPermissionService(db *gorm.DB) *PermissionService {
	return &PermissionService{DB: db}
}

func DefaultRolePermissions() models.RolePermissionsConfig {
	all := append([]string(nil), models.AllPermissionIDs...)
	return models.RolePermissionsConfig{
		ID: 1,
		Viewer: []string{
			models.PermissionProfile,
			models.PermissionWebcasts,
		},
		Contributor: []string{
			models.PermissionProfile,
			models.PermissionWebcasts,
			models.PermissionWhiteboards,
			models.PermissionMemberHub,
			models.PermissionCommunities,
			models.PermissionCourses,
		},
		Manager: all,
		Admin:   all,
	}
}

func (s *PermissionService) Get(ctx context.Context) (models.RolePermissionsConfig, error) {
	var cfg models.RolePermissionsConfig
	err := s.DB.WithContext(ctx).First(&cfg, "id = ?", 1).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DefaultRolePermissions(), nil
		}
		return models.RolePermissionsConfig{}, err
	}
	return cfg, nil
}

func (s *PermissionService) Set(ctx context.Context, cfg models.RolePermissionsConfig) error {
	cfg.ID = 1
	return s.DB.WithContext(ctx).Save(&cfg).Error
}

// HasPermission answers whether a role may enter a portal section. Platform
// admins bypass the mapping entirely.
func (s *PermissionService) HasPermission(ctx context.Context, role models.PortalRole, permission string, isPlatformAdmin bool) bool {
	if isPlatformAdmin {
		return true
	}
	cfg, err := s.Get(ctx)
	if err != nil {
		cfg = DefaultRolePermissions()
	}

	var granted []string
	switch role {
	case models.PortalRoleViewer:
		granted = cfg.Viewer
	case models.PortalRoleContributor:
		granted = cfg.Contributor
	case models.PortalRoleManager:
		granted = cfg.Manager
	case models.PortalRoleAdmin:
		granted = cfg.Admin
	default:
		return false
	}
	for _, id := range granted {
		if id == permission {
			return true
		}
	}
	return false
}
