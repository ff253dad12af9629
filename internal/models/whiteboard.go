package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BoardRole string

const (
	BoardRoleOwner  BoardRole = "owner"
	BoardRoleEditor BoardRole = "editor"
	BoardRoleViewer BoardRole = "viewer"
	// BoardRoleNone is the resolved role for a user with no access. Never stored.
	BoardRoleNone BoardRole = "none"
)

type Whiteboard struct {
	BaseModel
	Title        string     `json:"title" gorm:"type:varchar(255);not null"`
	OwnerID      uuid.UUID  `json:"ownerId" gorm:"type:uuid;not null;index"`
	LastOpenedAt *time.Time `json:"lastOpenedAt,omitempty"`
	TeamID       *uuid.UUID `json:"teamId,omitempty" gorm:"type:uuid;index"`

	Owner   User              `json:"-" gorm:"foreignKey:OwnerID;references:ID"`
	Members []WhiteboardMember `json:"-" gorm:"foreignKey:BoardID"`
}

// WhiteboardMember associates a user with a board. The owner holds implicit
// full rights and is not stored here.
type WhiteboardMember struct {
	BaseModel
	BoardID uuid.UUID `json:"boardId" gorm:"type:uuid;not null;index;uniqueIndex:idx_board_member"`
	UserID  uuid.UUID `json:"userId" gorm:"type:uuid;not null;index;uniqueIndex:idx_board_member"`
	Role    BoardRole `json:"role" gorm:"type:varchar(20);not null;default:'viewer'"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
}

// UserWhiteboard is the reverse index (userId -> boardId) so a user's boards
// can be listed without scanning every board.
type UserWhiteboard struct {
	BaseModel
	UserID  uuid.UUID `json:"userId" gorm:"type:uuid;not null;index;uniqueIndex:idx_user_board"`
	BoardID uuid.UUID `json:"boardId" gorm:"type:uuid;not null;index;uniqueIndex:idx_user_board"`
}

// FileMeta points at a stored blob for an asset embedded in the drawing state.
type FileMeta struct {
	Path     string `json:"path,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// WhiteboardState holds the persisted drawing state for a board, one row per
// board. File payloads live in object storage; FilesMeta carries the pointers.
type WhiteboardState struct {
	BoardID   uuid.UUID              `json:"boardId" gorm:"type:uuid;primaryKey"`
	Elements  []interface{}          `json:"elements" gorm:"type:jsonb;serializer:json"`
	AppState  map[string]interface{} `json:"appState" gorm:"type:jsonb;serializer:json"`
	FilesMeta map[string]FileMeta    `json:"filesMeta" gorm:"type:jsonb;serializer:json"`
	UpdatedBy uuid.UUID              `json:"updatedBy" gorm:"type:uuid"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

func (WhiteboardState) TableName() string {
	return "whiteboard_states"
}

func (s *WhiteboardState) BeforeSave(_ *gorm.DB) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	return nil
}
