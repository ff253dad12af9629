package handlers

import (
	"errors"
	"time"

	"github.com/courseportal/backend/internal/middleware"
	"github.com/courseportal/backend/internal/models"
	"github.com/courseportal/backend/internal/services"
	"github.com/courseportal/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type WhiteboardsHandler struct {
	Boards *services.WhiteboardService
}

func NewWhiteboardsHandler(boards *services.WhiteboardService) *WhiteboardsHandler {
	return &WhiteboardsHandler{Boards: boards}
}

// fileURLExpiry bounds how long a presigned board-asset link stays valid.
const fileURLExpiry = time.Hour

func (h *WhiteboardsHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	boards, err := h.Boards.ListBoardsForUser(c.Context(), user.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing whiteboards")
	}
	return utils.Success(c, fiber.StatusOK, boards)
}

type createBoardRequest struct {
	Title string `json:"title"`
}

func (h *WhiteboardsHandler) Create(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)

	var req createBoardRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	board, err := h.Boards.CreateBoard(c.Context(), user.ID, req.Title)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to create whiteboard")
	}
	return utils.Success(c, fiber.StatusCreated, board)
}

func (h *WhiteboardsHandler) Get(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	boardID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid board id")
	}

	role, err := h.Boards.EffectiveRole(c.Context(), boardID, user.ID)
	if err != nil {
		if errors.Is(err, services.ErrBoardNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "whiteboard not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed to load whiteboard")
	}
	if !services.CanViewBoard(role) {
		return utils.Error(c, fiber.StatusForbidden, "no access to this whiteboard")
	}

	board, err := h.Boards.GetBoard(c.Context(), boardID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to load whiteboard")
	}
	h.Boards.TouchLastOpened(c.Context(), boardID)

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"board": board,
		"role":  role,
	})
}

type renameBoardRequest struct {
	Title string `json:"title"`
}

func (h *WhiteboardsHandler) Rename(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	boardID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid board id")
	}

	role, err := h.Boards.EffectiveRole(c.Context(), boardID, user.ID)
	if err != nil {
		if errors.Is(err, services.ErrBoardNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "whiteboard not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed to load whiteboard")
	}
	if role != models.BoardRoleOwner {
		return utils.Error(c, fiber.StatusForbidden, "only the owner can rename a whiteboard")
	}

	var req renameBoardRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.Boards.RenameBoard(c.Context(), boardID, req.Title); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to rename whiteboard")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"renamed": true})
}

func (h *WhiteboardsHandler) Delete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	boardID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid board id")
	}

	role, err := h.Boards.EffectiveRole(c.Context(), boardID, user.ID)
	if err != nil {
		if errors.Is(err, services.ErrBoardNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "whiteboard not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed to load whiteboard")
	}
	if role != models.BoardRoleOwner {
		return utils.Error(c, fiber.StatusForbidden, "only the owner can delete a whiteboard")
	}

	if err := h.Boards.DeleteBoard(c.Context(), boardID); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to delete whiteboard")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": true})
}

func (h *WhiteboardsHandler) ListMembers(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	boardID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid board id")
	}

	role, err := h.Boards.EffectiveRole(c.Context(), boardID, user.ID)
	if err != nil {
		if errors.Is(err, services.ErrBoardNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "whiteboard not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed to load whiteboard")
	}
	if !services.CanViewBoard(role) {
		return utils.Error(c, fiber.StatusForbidden, "no access to this whiteboard")
	}

	members, err := h.Boards.ListMembers(c.Context(), boardID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing members")
	}
	return utils.Success(c, fiber.StatusOK, members)
}

type addMemberRequest struct {
	Email string           `json:"email"`
	Role  models.BoardRole `json:"role"`
}

func (h *WhiteboardsHandler) AddMember(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	boardID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid board id")
	}

	role, err := h.Boards.EffectiveRole(c.Context(), boardID, user.ID)
	if err != nil {
		if errors.Is(err, services.ErrBoardNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "whiteboard not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed to load whiteboard")
	}
	if role != models.BoardRoleOwner {
		return utils.Error(c, fiber.StatusForbidden, "only the owner can share a whiteboard")
	}

	var req addMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Role == "" {
		req.Role = models.BoardRoleViewer
	}

	member, err := h.Boards.AddMemberByEmail(c.Context(), boardID, req.Email, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoSuchUser):
			return utils.Error(c, fiber.StatusNotFound, "no account exists for that email")
		case errors.Is(err, services.ErrAlreadyMember):
			return utils.Error(c, fiber.StatusConflict, "user already has access to this board")
		default:
			return utils.Error(c, fiber.StatusInternalServerError, "failed to add member")
		}
	}
	return utils.Success(c, fiber.StatusCreated, member)
}

func (h *WhiteboardsHandler) RemoveMember(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	boardID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid board id")
	}
	memberID, err := parseUUID(c.Params("userId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	role, err := h.Boards.EffectiveRole(c.Context(), boardID, user.ID)
	if err != nil {
		if errors.Is(err, services.ErrBoardNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "whiteboard not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed to load whiteboard")
	}
	// Members may remove themselves; everything else needs the owner.
	if role != models.BoardRoleOwner && user.ID != memberID {
		return utils.Error(c, fiber.StatusForbidden, "only the owner can remove members")
	}

	if err := h.Boards.RemoveMember(c.Context(), boardID, memberID); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to remove member")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"removed": true})
}

func (h *WhiteboardsHandler) GetState(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	boardID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid board id")
	}

	role, err := h.Boards.EffectiveRole(c.Context(), boardID, user.ID)
	if err != nil {
		if errors.Is(err, services.ErrBoardNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "whiteboard not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed to load whiteboard")
	}
	if !services.CanViewBoard(role) {
		return utils.Error(c, fiber.StatusForbidden, "no access to this whiteboard")
	}

	state, err := h.Boards.LoadState(c.Context(), boardID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to load state")
	}
	urls := h.Boards.ResolveFileURLs(c.Context(), state, fileURLExpiry)

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"state":    state,
		"fileUrls": urls,
	})
}

type saveStateRequest struct {
	Elements []interface{}                    `json:"elements"`
	AppState map[string]interface{}           `json:"appState"`
	Files    map[string]services.IncomingFile `json:"files"`
}

func (h *WhiteboardsHandler) SaveState(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	boardID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid board id")
	}

	role, err := h.Boards.EffectiveRole(c.Context(), boardID, user.ID)
	if err != nil {
		if errors.Is(err, services.ErrBoardNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "whiteboard not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed to load whiteboard")
	}
	if !services.CanEditBoard(role) {
		return utils.Error(c, fiber.StatusForbidden, "no edit access to this whiteboard")
	}

	var req saveStateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	state, err := h.Boards.SaveState(c.Context(), boardID, user.ID, req.Elements, req.AppState, req.Files)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to save state")
	}
	return utils.Success(c, fiber.StatusOK, state)
}
