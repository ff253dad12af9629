package models

import (
	"time"

	"github.com/google/uuid"
)

type WebcastStatus string

const (
	WebcastStatusScheduled WebcastStatus = "scheduled"
	WebcastStatusLive      WebcastStatus = "live"
	WebcastStatusCompleted WebcastStatus = "completed"
	WebcastStatusCancelled WebcastStatus = "cancelled"
)

type WebcastAccessType string

const (
	WebcastAccessFree       WebcastAccessType = "free"
	WebcastAccessPaid       WebcastAccessType = "paid"
	WebcastAccessMemberOnly WebcastAccessType = "member-only"
)

type RecurrencePattern struct {
	Type     string     `json:"type"` // none, daily, weekly, monthly
	Interval int        `json:"interval,omitempty"`
	EndDate  *time.Time `json:"endDate,omitempty"`
}

type Webcast struct {
	BaseModel
	Title                string             `json:"title" gorm:"type:varchar(255);not null"`
	Description          string             `json:"description" gorm:"type:text"`
	ScheduledAt          time.Time          `json:"scheduledAt" gorm:"not null;index"`
	Duration             *int               `json:"duration,omitempty"`
	Price                float64            `json:"price" gorm:"not null;default:0"`
	Currency             string             `json:"currency" gorm:"type:varchar(10);not null;default:'USD'"`
	Status               WebcastStatus      `json:"status" gorm:"type:varchar(20);not null;default:'scheduled';index"`
	AccessType           WebcastAccessType  `json:"accessType" gorm:"type:varchar(20);not null;default:'free'"`
	TranslationLanguages []string           `json:"translationLanguages" gorm:"type:jsonb;serializer:json"`
	HostID               uuid.UUID          `json:"hostId" gorm:"type:uuid;not null;index"`
	MeetURL              *string            `json:"meetUrl,omitempty" gorm:"type:text"`
	RecordingURL         *string            `json:"recordingUrl,omitempty" gorm:"type:text"`
	RecurrencePattern    *RecurrencePattern `json:"recurrencePattern,omitempty" gorm:"type:jsonb;serializer:json"`
	AutoGenerateMeetLink bool               `json:"autoGenerateMeetLink" gorm:"not null;default:false"`
}
