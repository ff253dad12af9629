package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/courseportal/backend/internal/middleware"
	"github.com/courseportal/backend/internal/models"
	"github.com/courseportal/backend/pkg/logger"
	"github.com/courseportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WebcastsHandler struct {
	DB *gorm.DB
}

func NewWebcastsHandler(db *gorm.DB) *WebcastsHandler {
	return &WebcastsHandler{DB: db}
}

// List is public so the site can show upcoming sessions to visitors.
// Members and admins see the same data; access control applies at join time.
func (h *WebcastsHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)
	status := strings.TrimSpace(c.Query("status"))
	upcoming := c.QueryBool("upcoming", false)

	query := h.DB.Model(&models.Webcast{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if upcoming {
		query = query.Where("scheduled_at >= ? AND status = ?", time.Now().UTC(), models.WebcastStatusScheduled)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting webcasts")
	}

	var webcasts []models.Webcast
	if err := utils.ApplyPagination(query.Order("scheduled_at ASC"), p).Find(&webcasts).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing webcasts")
	}
	return utils.Paginated(c, webcasts, p.Page, p.Limit, total)
}

func (h *WebcastsHandler) Get(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid webcast id")
	}

	var webcast models.Webcast
	if err := h.DB.First(&webcast, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "webcast not found")
	}
	return utils.Success(c, fiber.StatusOK, webcast)
}

type webcastRequest struct {
	Title                string                    `json:"title"`
	Description          string                    `json:"description"`
	ScheduledAt          time.Time                 `json:"scheduledAt"`
	Duration             *int                      `json:"duration"`
	Price                float64                   `json:"price"`
	Currency             string                    `json:"currency"`
	AccessType           models.WebcastAccessType  `json:"accessType"`
	TranslationLanguages []string                  `json:"translationLanguages"`
	HostID               string                    `json:"hostId"`
	MeetURL              *string                   `json:"meetUrl"`
	RecurrencePattern    *models.RecurrencePattern `json:"recurrencePattern"`
	AutoGenerateMeetLink bool                      `json:"autoGenerateMeetLink"`
}

func (h *WebcastsHandler) Create(c *fiber.Ctx) error {
	actor := middleware.GetCurrentUser(c)

	var req webcastRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title is required")
	}
	if req.ScheduledAt.IsZero() {
		return utils.Error(c, fiber.StatusBadRequest, "scheduledAt is required")
	}

	hostID := actor.ID
	if req.HostID != "" {
		parsed, err := parseUUID(req.HostID)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid host id")
		}
		hostID = parsed
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}
	accessType := req.AccessType
	if accessType == "" {
		accessType = models.WebcastAccessFree
	}
	if req.TranslationLanguages == nil {
		req.TranslationLanguages = []string{}
	}

	webcast := models.Webcast{
		Title:                strings.TrimSpace(req.Title),
		Description:          req.Description,
		ScheduledAt:          req.ScheduledAt,
		Duration:             req.Duration,
		Price:                req.Price,
		Currency:             currency,
		Status:               models.WebcastStatusScheduled,
		AccessType:           accessType,
		TranslationLanguages: req.TranslationLanguages,
		HostID:               hostID,
		MeetURL:              req.MeetURL,
		RecurrencePattern:    req.RecurrencePattern,
		AutoGenerateMeetLink: req.AutoGenerateMeetLink,
	}
	if webcast.MeetURL == nil && webcast.AutoGenerateMeetLink {
		url := placeholderMeetURL(uuid.New())
		webcast.MeetURL = &url
	}

	if err := h.DB.Create(&webcast).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to create webcast")
	}

	logger.InfoWithUser(actor.ID.String(), "webcast_created", map[string]interface{}{
		"webcast_id": webcast.ID.String(),
		"title":      webcast.Title,
	})
	return utils.Success(c, fiber.StatusCreated, webcast)
}

// placeholderMeetURL stands in until a calendar integration assigns the
// real meeting link.
func placeholderMeetURL(id uuid.UUID) string {
	return fmt.Sprintf("https://meet.google.com/lookup/%s", id)
}

type updateWebcastRequest struct {
	Title                *string                   `json:"title"`
	Description          *string                   `json:"description"`
	ScheduledAt          *time.Time                `json:"scheduledAt"`
	Duration             *int                      `json:"duration"`
	Price                *float64                  `json:"price"`
	Currency             *string                   `json:"currency"`
	Status               *models.WebcastStatus     `json:"status"`
	AccessType           *models.WebcastAccessType `json:"accessType"`
	TranslationLanguages *[]string                 `json:"translationLanguages"`
	MeetURL              *string                   `json:"meetUrl"`
	RecordingURL         *string                   `json:"recordingUrl"`
	RecurrencePattern    *models.RecurrencePattern `json:"recurrencePattern"`
}

func (h *WebcastsHandler) Update(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid webcast id")
	}

	var webcast models.Webcast
	if err := h.DB.First(&webcast, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "webcast not found")
	}

	var req updateWebcastRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if req.Title != nil {
		webcast.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		webcast.Description = *req.Description
	}
	if req.ScheduledAt != nil {
		webcast.ScheduledAt = *req.ScheduledAt
	}
	if req.Duration != nil {
		webcast.Duration = req.Duration
	}
	if req.Price != nil {
		webcast.Price = *req.Price
	}
	if req.Currency != nil {
		webcast.Currency = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.Status != nil {
		switch *req.Status {
		case models.WebcastStatusScheduled, models.WebcastStatusLive,
			models.WebcastStatusCompleted, models.WebcastStatusCancelled:
			webcast.Status = *req.Status
		default:
			return utils.Error(c, fiber.StatusBadRequest, "invalid status")
		}
	}
	if req.AccessType != nil {
		webcast.AccessType = *req.AccessType
	}
	if req.TranslationLanguages != nil {
		webcast.TranslationLanguages = *req.TranslationLanguages
	}
	if req.MeetURL != nil {
		webcast.MeetURL = req.MeetURL
	}
	if req.RecordingURL != nil {
		webcast.RecordingURL = req.RecordingURL
	}
	if req.RecurrencePattern != nil {
		webcast.RecurrencePattern = req.RecurrencePattern
	}

	if err := h.DB.Save(&webcast).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to update webcast")
	}
	return utils.Success(c, fiber.StatusOK, webcast)
}

func (h *WebcastsHandler) Delete(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid webcast id")
	}

	result := h.DB.Delete(&models.Webcast{}, "id = ?", id)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to delete webcast")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "webcast not found")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
