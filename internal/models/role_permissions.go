package models

import "time"

// Permission IDs for the portal sections a role may see. Platform admins
// implicitly hold all of them.
const (
	PermissionWebcasts    = "webcasts"
	PermissionMemberHub   = "member_hub"
	PermissionProfile     = "profile"
	PermissionCommunities = "communities"
	PermissionCourses     = "courses"
	PermissionWhiteboards = "whiteboards"
)

var AllPermissionIDs = []string{
	PermissionWebcasts,
	PermissionMemberHub,
	PermissionProfile,
	PermissionCommunities,
	PermissionCourses,
	PermissionWhiteboards,
}

// RolePermissionsConfig is a singleton: one row mapping each portal role to
// the permission ids it grants. Last write wins, no version check.
type RolePermissionsConfig struct {
	ID          uint      `json:"-" gorm:"primaryKey"`
	Viewer      []string  `json:"viewer" gorm:"type:jsonb;serializer:json"`
	Contributor []string  `json:"contributor" gorm:"type:jsonb;serializer:json"`
	Manager     []string  `json:"manager" gorm:"type:jsonb;serializer:json"`
	Admin       []string  `json:"admin" gorm:"type:jsonb;serializer:json"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (RolePermissionsConfig) TableName() string {
	return "role_permissions_config"
}
