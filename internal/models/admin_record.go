package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	AdminRoleAdmin      = "admin"
	AdminRoleSuperAdmin = "superAdmin"

	AdminStatusActive   = "active"
	AdminStatusApproved = "approved"
)

// AdminRecord asserts that a key has administrative rights. The key space is
// ambiguous on purpose: existing data holds records keyed by UID and records
// keyed by lowercased email, sometimes both for the same person, and both
// forms must be consulted. Field names match the stored documents.
type AdminRecord struct {
	Key       string    `json:"-" gorm:"type:varchar(255);primaryKey"`
	UID       string    `json:"uid" gorm:"column:uid;type:varchar(255);index"`
	Email     string    `json:"email" gorm:"type:varchar(255);index"`
	Role      string    `json:"role" gorm:"type:varchar(20);not null"`
	Status    string    `json:"status" gorm:"type:varchar(20);not null"`
	GrantedBy string    `json:"grantedBy" gorm:"type:varchar(255)"`
	GrantedAt time.Time `json:"grantedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (AdminRecord) TableName() string {
	return "admin_records"
}

func (a *AdminRecord) BeforeCreate(_ *gorm.DB) error {
	if a.GrantedAt.IsZero() {
		a.GrantedAt = time.Now().UTC()
	}
	return nil
}

// Grants reports whether this record actually confers admin rights.
func (a *AdminRecord) Grants() bool {
	okRole := a.Role == AdminRoleAdmin || a.Role == AdminRoleSuperAdmin
	okStatus := a.Status == AdminStatusActive || a.Status == AdminStatusApproved
	return okRole && okStatus
}
