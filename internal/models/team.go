package models

import (
	"time"

	"github.com/google/uuid"
)

// Team is a leadership team. Member and whiteboard ids are stored inline the
// way existing team documents hold them.
type Team struct {
	BaseModel
	Name          string   `json:"name" gorm:"type:varchar(255);not null"`
	MemberIDs     []string `json:"memberIds" gorm:"type:jsonb;serializer:json"`
	WhiteboardIDs []string `json:"whiteboardIds" gorm:"type:jsonb;serializer:json"`
}

type WorkItemStatus string

const (
	WorkItemStatusBacklog    WorkItemStatus = "backlog"
	WorkItemStatusTodo       WorkItemStatus = "todo"
	WorkItemStatusInProgress WorkItemStatus = "in_progress"
	WorkItemStatusDone       WorkItemStatus = "done"
)

func IsValidWorkItemStatus(s WorkItemStatus) bool {
	switch s {
	case WorkItemStatusBacklog, WorkItemStatusTodo, WorkItemStatusInProgress, WorkItemStatusDone:
		return true
	default:
		return false
	}
}

type WorkItemLane string

const (
	WorkItemLaneExpedited  WorkItemLane = "expedited"
	WorkItemLaneFixedDate  WorkItemLane = "fixed_date"
	WorkItemLaneStandard   WorkItemLane = "standard"
	WorkItemLaneIntangible WorkItemLane = "intangible"
)

func IsValidWorkItemLane(l WorkItemLane) bool {
	switch l {
	case WorkItemLaneExpedited, WorkItemLaneFixedDate, WorkItemLaneStandard, WorkItemLaneIntangible:
		return true
	default:
		return false
	}
}

type WorkItem struct {
	BaseModel
	Title       string         `json:"title" gorm:"type:varchar(255);not null"`
	Description *string        `json:"description,omitempty" gorm:"type:text"`
	TeamID      *uuid.UUID     `json:"teamId,omitempty" gorm:"type:uuid;index"`
	Status      WorkItemStatus `json:"status" gorm:"type:varchar(20);not null;default:'backlog';index"`
	AssigneeIDs []string       `json:"assigneeIds" gorm:"type:jsonb;serializer:json"`
	DueDate     *time.Time     `json:"dueDate,omitempty"`
	Blocked     bool           `json:"blocked" gorm:"not null;default:false"`
	Lane        *WorkItemLane  `json:"lane,omitempty" gorm:"type:varchar(20)"`
	Estimate    *int           `json:"estimate,omitempty"`
	Position    *int           `json:"position,omitempty"`
	// Stamped once on the first transition into the respective status.
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
