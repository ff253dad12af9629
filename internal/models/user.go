package models

// PortalRole is the coarse permission tier for portal sections. It is a
// separate axis from platform-admin status: a non-admin can hold any role,
// and a platform admin has every permission regardless of it.
type PortalRole string

const (
	PortalRoleViewer      PortalRole = "viewer"
	PortalRoleContributor PortalRole = "contributor"
	PortalRoleManager     PortalRole = "manager"
	PortalRoleAdmin       PortalRole = "admin"
)

func IsValidPortalRole(role PortalRole) bool {
	switch role {
	case PortalRoleViewer, PortalRoleContributor, PortalRoleManager, PortalRoleAdmin:
		return true
	default:
		return false
	}
}

type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User is the member profile. Field names on the wire match the persisted
// profile documents existing deployments already hold.
type User struct {
	BaseModel
	Email              string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash       string     `json:"-" gorm:"type:text;not null"`
	Name               string     `json:"name" gorm:"type:varchar(100);not null"`
	Role               PortalRole `json:"role" gorm:"type:varchar(20);not null;default:'viewer'"`
	Status             UserStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	MustChangePassword bool       `json:"mustChangePassword" gorm:"not null;default:false"`
	Organizations      []string   `json:"organizations" gorm:"type:jsonb;serializer:json"`
	Avatar             *string    `json:"avatar,omitempty" gorm:"type:text"`
	Bio                *string    `json:"bio,omitempty" gorm:"type:text"`
	GoogleID           *string    `json:"-" gorm:"type:varchar(255);index"`
}
