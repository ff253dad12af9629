package handlers

import (
	"strings"
	"time"

	"github.com/courseportal/backend/internal/middleware"
	"github.com/courseportal/backend/internal/models"
	"github.com/courseportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ContentHandler serves the editable site content. Public reads retry with
// backoff so a transient database hiccup does not blank out page sections.
type ContentHandler struct {
	DB *gorm.DB
}

func NewContentHandler(db *gorm.DB) *ContentHandler {
	return &ContentHandler{DB: db}
}

const (
	contentReadAttempts  = 3
	contentReadBaseDelay = 200 * time.Millisecond
)

func (h *ContentHandler) GetSection(c *fiber.Ctx) error {
	section := strings.TrimSpace(c.Params("section"))
	if section == "" {
		return utils.Error(c, fiber.StatusBadRequest, "section is required")
	}

	var items []models.ContentItem
	err := utils.Retry(c.Context(), contentReadAttempts, contentReadBaseDelay, func() error {
		items = nil
		return h.DB.
			Where("section = ? AND is_active = ?", section, true).
			Order("item_order ASC").
			Find(&items).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading content")
	}
	return utils.Success(c, fiber.StatusOK, items)
}

// ListSections enumerates every section for the back-office editor,
// inactive items included.
func (h *ContentHandler) ListSections(c *fiber.Ctx) error {
	var items []models.ContentItem
	err := h.DB.Order("section ASC, item_order ASC").Find(&items).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading content")
	}

	grouped := map[string][]models.ContentItem{}
	for _, item := range items {
		grouped[item.Section] = append(grouped[item.Section], item)
	}
	return utils.Success(c, fiber.StatusOK, grouped)
}

type upsertContentRequest struct {
	Value    interface{} `json:"value"`
	Type     string      `json:"type"`
	Order    *int        `json:"order"`
	IsActive *bool       `json:"isActive"`
}

// Upsert writes one item addressed by section and key, creating it on first
// write.
func (h *ContentHandler) Upsert(c *fiber.Ctx) error {
	actor := middleware.GetCurrentUser(c)
	section := strings.TrimSpace(c.Params("section"))
	key := strings.TrimSpace(c.Params("key"))
	if section == "" || key == "" {
		return utils.Error(c, fiber.StatusBadRequest, "section and key are required")
	}

	var req upsertContentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	var item models.ContentItem
	err := h.DB.First(&item, "section = ? AND key = ?", section, key).Error
	if err != nil {
		item = models.ContentItem{
			Section:  section,
			Key:      key,
			Type:     "text",
			IsActive: true,
		}
	}

	item.Value = req.Value
	if req.Type != "" {
		item.Type = req.Type
	}
	if req.Order != nil {
		item.Order = *req.Order
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}
	if actor != nil {
		item.UpdatedBy = actor.Email
	}

	if err := h.DB.Save(&item).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed saving content")
	}
	return utils.Success(c, fiber.StatusOK, item)
}

func (h *ContentHandler) Delete(c *fiber.Ctx) error {
	section := strings.TrimSpace(c.Params("section"))
	key := strings.TrimSpace(c.Params("key"))

	result := h.DB.Delete(&models.ContentItem{}, "section = ? AND key = ?", section, key)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting content")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "content item not found")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
