package handlers

import (
	"strings"
	"time"

	"github.com/courseportal/backend/internal/models"
	"github.com/courseportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// TeamsHandler backs the leadership dashboard: teams and their work items.
type TeamsHandler struct {
	DB *gorm.DB
}

func NewTeamsHandler(db *gorm.DB) *TeamsHandler {
	return &TeamsHandler{DB: db}
}

func (h *TeamsHandler) ListTeams(c *fiber.Ctx) error {
	var teams []models.Team
	if err := h.DB.Order("name ASC").Find(&teams).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing teams")
	}
	return utils.Success(c, fiber.StatusOK, teams)
}

type teamRequest struct {
	Name          string   `json:"name"`
	MemberIDs     []string `json:"memberIds"`
	WhiteboardIDs []string `json:"whiteboardIds"`
}

func (h *TeamsHandler) CreateTeam(c *fiber.Ctx) error {
	var req teamRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return utils.Error(c, fiber.StatusBadRequest, "name is required")
	}
	if req.MemberIDs == nil {
		req.MemberIDs = []string{}
	}
	if req.WhiteboardIDs == nil {
		req.WhiteboardIDs = []string{}
	}

	team := models.Team{
		Name:          strings.TrimSpace(req.Name),
		MemberIDs:     req.MemberIDs,
		WhiteboardIDs: req.WhiteboardIDs,
	}
	if err := h.DB.Create(&team).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to create team")
	}
	return utils.Success(c, fiber.StatusCreated, team)
}

func (h *TeamsHandler) UpdateTeam(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid team id")
	}

	var team models.Team
	if err := h.DB.First(&team, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "team not found")
	}

	var req teamRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Name) != "" {
		team.Name = strings.TrimSpace(req.Name)
	}
	if req.MemberIDs != nil {
		team.MemberIDs = req.MemberIDs
	}
	if req.WhiteboardIDs != nil {
		team.WhiteboardIDs = req.WhiteboardIDs
	}

	if err := h.DB.Save(&team).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to update team")
	}
	return utils.Success(c, fiber.StatusOK, team)
}

func (h *TeamsHandler) DeleteTeam(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid team id")
	}

	result := h.DB.Delete(&models.Team{}, "id = ?", id)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to delete team")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "team not found")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

func (h *TeamsHandler) ListWorkItems(c *fiber.Ctx) error {
	query := h.DB.Model(&models.WorkItem{})
	if teamParam := c.Query("teamId"); teamParam != "" {
		teamID, err := parseUUID(teamParam)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid team id")
		}
		query = query.Where("team_id = ?", teamID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var items []models.WorkItem
	if err := query.Order("position ASC, created_at ASC").Find(&items).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing work items")
	}
	return utils.Success(c, fiber.StatusOK, items)
}

type workItemRequest struct {
	Title       string                `json:"title"`
	Description *string               `json:"description"`
	TeamID      *string               `json:"teamId"`
	Status      models.WorkItemStatus `json:"status"`
	AssigneeIDs []string              `json:"assigneeIds"`
	DueDate     *time.Time            `json:"dueDate"`
	Blocked     *bool                 `json:"blocked"`
	Lane        *models.WorkItemLane  `json:"lane"`
	Estimate    *int                  `json:"estimate"`
	Position    *int                  `json:"position"`
}

func (h *TeamsHandler) CreateWorkItem(c *fiber.Ctx) error {
	var req workItemRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title is required")
	}

	status := req.Status
	if status == "" {
		status = models.WorkItemStatusBacklog
	}
	if !models.IsValidWorkItemStatus(status) {
		return utils.Error(c, fiber.StatusBadRequest, "invalid status")
	}
	if req.AssigneeIDs == nil {
		req.AssigneeIDs = []string{}
	}
	if req.Lane != nil && !models.IsValidWorkItemLane(*req.Lane) {
		return utils.Error(c, fiber.StatusBadRequest, "invalid lane")
	}

	item := models.WorkItem{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      status,
		AssigneeIDs: req.AssigneeIDs,
		DueDate:     req.DueDate,
		Lane:        req.Lane,
		Estimate:    req.Estimate,
		Position:    req.Position,
	}
	if req.Blocked != nil {
		item.Blocked = *req.Blocked
	}
	if req.TeamID != nil && *req.TeamID != "" {
		teamID, err := parseUUID(*req.TeamID)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid team id")
		}
		item.TeamID = &teamID
	}
	stampTransition(&item, "", status)

	if err := h.DB.Create(&item).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to create work item")
	}
	return utils.Success(c, fiber.StatusCreated, item)
}

func (h *TeamsHandler) UpdateWorkItem(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid work item id")
	}

	var item models.WorkItem
	if err := h.DB.First(&item, "id = ?", id).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "work item not found")
	}

	var req workItemRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	if strings.TrimSpace(req.Title) != "" {
		item.Title = strings.TrimSpace(req.Title)
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if req.TeamID != nil {
		if *req.TeamID == "" {
			item.TeamID = nil
		} else {
			teamID, err := parseUUID(*req.TeamID)
			if err != nil {
				return utils.Error(c, fiber.StatusBadRequest, "invalid team id")
			}
			item.TeamID = &teamID
		}
	}
	if req.Status != "" {
		if !models.IsValidWorkItemStatus(req.Status) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid status")
		}
		stampTransition(&item, item.Status, req.Status)
		item.Status = req.Status
	}
	if req.AssigneeIDs != nil {
		item.AssigneeIDs = req.AssigneeIDs
	}
	if req.DueDate != nil {
		item.DueDate = req.DueDate
	}
	if req.Blocked != nil {
		item.Blocked = *req.Blocked
	}
	if req.Lane != nil {
		if !models.IsValidWorkItemLane(*req.Lane) {
			return utils.Error(c, fiber.StatusBadRequest, "invalid lane")
		}
		item.Lane = req.Lane
	}
	if req.Estimate != nil {
		item.Estimate = req.Estimate
	}
	if req.Position != nil {
		item.Position = req.Position
	}

	if err := h.DB.Save(&item).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to update work item")
	}
	return utils.Success(c, fiber.StatusOK, item)
}

// stampTransition records when an item first enters in_progress and done.
// The timestamps are write-once: moving an item back and forward again does
// not reset them.
func stampTransition(item *models.WorkItem, from, to models.WorkItemStatus) {
	if from == to {
		return
	}
	now := time.Now().UTC()
	if to == models.WorkItemStatusInProgress && item.StartedAt == nil {
		item.StartedAt = &now
	}
	if to == models.WorkItemStatusDone && item.CompletedAt == nil {
		item.CompletedAt = &now
	}
}

func (h *TeamsHandler) DeleteWorkItem(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid work item id")
	}

	result := h.DB.Delete(&models.WorkItem{}, "id = ?", id)
	if result.Error != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to delete work item")
	}
	if result.RowsAffected == 0 {
		return utils.Error(c, fiber.StatusNotFound, "work item not found")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}
