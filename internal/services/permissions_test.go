package services

import (
	"context"
	"testing"

	"github.com/courseportal/backend/internal/models"
)

func TestPermissionDefaultsUntilConfigured(t *testing.T) {
	db := openTestDB(t)
	svc := NewPermissionService(db)
	ctx := context.Background()

	if !svc.HasPermission(ctx, models.PortalRoleViewer, models.PermissionWebcasts, false) {
		t.Fatal("viewer should see webcasts by default")
	}
	if svc.HasPermission(ctx, models.PortalRoleViewer, models.PermissionWhiteboards, false) {
		t.Fatal("viewer should not get whiteboards by default")
	}
	if !svc.HasPermission(ctx, models.PortalRoleContributor, models.PermissionWhiteboards, false) {
		t.Fatal("contributor should get whiteboards by default")
	}
	if !svc.HasPermission(ctx, models.PortalRoleManager, models.PermissionCourses, false) {
		t.Fatal("manager should hold every permission by default")
	}
}

func TestPlatformAdminBypassesMapping(t *testing.T) {
	db := openTestDB(t)
	svc := NewPermissionService(db)

	cfg := models.RolePermissionsConfig{
		Viewer:      []string{},
		Contributor: []string{},
		Manager:     []string{},
		Admin:       []string{},
	}
	if err := svc.Set(context.Background(), cfg); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if svc.HasPermission(context.Background(), models.PortalRoleAdmin, models.PermissionCourses, false) {
		t.Fatal("emptied mapping should deny the portal role")
	}
	if !svc.HasPermission(context.Background(), models.PortalRoleViewer, models.PermissionCourses, true) {
		t.Fatal("platform admin must bypass the mapping")
	}
}

func TestPermissionConfigIsSingleton(t *testing.T) {
	db := openTestDB(t)
	svc := NewPermissionService(db)
	ctx := context.Background()

	first := models.RolePermissionsConfig{Viewer: []string{models.PermissionProfile}}
	if err := svc.Set(ctx, first); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	second := models.RolePermissionsConfig{Viewer: []string{models.PermissionProfile, models.PermissionWebcasts}}
	if err := svc.Set(ctx, second); err != nil {
		t.Fatalf("second set failed: %v", err)
	}

	var count int64
	db.Model(&models.RolePermissionsConfig{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected one config row, got %d", count)
	}

	got, err := svc.Get(ctx)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.Viewer) != 2 {
		t.Fatalf("last write should win, got %v", got.Viewer)
	}
}
