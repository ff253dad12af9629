package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/courseportal/backend/internal/models"
	"github.com/courseportal/backend/internal/storage"
	"github.com/courseportal/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrBoardNotFound = errors.New("whiteboard not found")
	ErrNoSuchUser    = errors.New("no account exists for that email")
	ErrAlreadyMember = errors.New("user already has access to this board")
	ErrNotBoardOwner = errors.New("only the board owner may do this")
)

// WhiteboardService manages boards, their membership, and the persisted
// drawing state. Embedded file payloads are offloaded to object storage; the
// state row keeps only pointers.
type WhiteboardService struct {
	DB    *gorm.DB
	Store storage.ObjectStore
}

func NewWhiteboardService(db *gorm.DB, store storage.ObjectStore) *WhiteboardService {
	return &WhiteboardService{DB: db, Store: store}
}

// CreateBoard writes the board and the owner's reverse-index row in one
// transaction so a board never exists without being listable by its owner.
func (s *WhiteboardService) CreateBoard(ctx context.Context, ownerID uuid.UUID, title string) (*models.Whiteboard, error) {
	board := &models.Whiteboard{
		Title:   strings.TrimSpace(title),
		OwnerID: ownerID,
	}
	if board.Title == "" {
		board.Title = "Untitled board"
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(board).Error; err != nil {
			return err
		}
		index := models.UserWhiteboard{UserID: ownerID, BoardID: board.ID}
		return tx.Create(&index).Error
	})
	if err != nil {
		return nil, err
	}
	return board, nil
}

func (s *WhiteboardService) GetBoard(ctx context.Context, boardID uuid.UUID) (*models.Whiteboard, error) {
	var board models.Whiteboard
	err := s.DB.WithContext(ctx).Preload("Members").First(&board, "id = ?", boardID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBoardNotFound
		}
		return nil, err
	}
	return &board, nil
}

// ListBoardsForUser returns every board the user owns or was added to, most
// recently opened first.
func (s *WhiteboardService) ListBoardsForUser(ctx context.Context, userID uuid.UUID) ([]models.Whiteboard, error) {
	var indexed []models.UserWhiteboard
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&indexed).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(indexed))
	for _, row := range indexed {
		ids = append(ids, row.BoardID)
	}

	var boards []models.Whiteboard
	query := s.DB.WithContext(ctx).Order("updated_at DESC")
	if len(ids) > 0 {
		query = query.Where("owner_id = ? OR id IN ?", userID, ids)
	} else {
		query = query.Where("owner_id = ?", userID)
	}
	if err := query.Find(&boards).Error; err != nil {
		return nil, err
	}
	return boards, nil
}

func (s *WhiteboardService) RenameBoard(ctx context.Context, boardID uuid.UUID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("title is required")
	}
	result := s.DB.WithContext(ctx).Model(&models.Whiteboard{}).
		Where("id = ?", boardID).
		Update("title", title)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBoardNotFound
	}
	return nil
}

func (s *WhiteboardService) TouchLastOpened(ctx context.Context, boardID uuid.UUID) {
	now := time.Now().UTC()
	if err := s.DB.WithContext(ctx).Model(&models.Whiteboard{}).
		Where("id = ?", boardID).
		Update("last_opened_at", now).Error; err != nil {
		logger.Warn("board_touch_failed", map[string]interface{}{
			"board_id": boardID.String(),
			"error":    err.Error(),
		})
	}
}

// AddMemberByEmail grants access to the account whose email matches exactly
// (after lowercasing). There is no fuzzy matching: a typo'd address fails
// with ErrNoSuchUser and nothing is written.
func (s *WhiteboardService) AddMemberByEmail(ctx context.Context, boardID uuid.UUID, email string, role models.BoardRole) (*models.WhiteboardMember, error) {
	if role != models.BoardRoleEditor && role != models.BoardRoleViewer {
		return nil, fmt.Errorf("invalid board role %q", role)
	}

	board, err := s.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.DB.WithContext(ctx).First(&user, "email = ?", NormalizeEmail(email)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSuchUser
		}
		return nil, err
	}

	if user.ID == board.OwnerID {
		return nil, ErrAlreadyMember
	}
	var existing models.WhiteboardMember
	err = s.DB.WithContext(ctx).
		First(&existing, "board_id = ? AND user_id = ?", boardID, user.ID).Error
	if err == nil {
		return nil, ErrAlreadyMember
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	member := &models.WhiteboardMember{
		BoardID: boardID,
		UserID:  user.ID,
		Role:    role,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		index := models.UserWhiteboard{UserID: user.ID, BoardID: boardID}
		return tx.Where("user_id = ? AND board_id = ?", user.ID, boardID).
			FirstOrCreate(&models.UserWhiteboard{}, index).Error
	})
	if err != nil {
		return nil, err
	}
	member.User = user
	return member, nil
}

func (s *WhiteboardService) RemoveMember(ctx context.Context, boardID, userID uuid.UUID) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.WhiteboardMember{}, "board_id = ? AND user_id = ?", boardID, userID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.UserWhiteboard{}, "board_id = ? AND user_id = ?", boardID, userID).Error
	})
}

func (s *WhiteboardService) ListMembers(ctx context.Context, boardID uuid.UUID) ([]models.WhiteboardMember, error) {
	var members []models.WhiteboardMember
	err := s.DB.WithContext(ctx).Preload("User").
		Where("board_id = ?", boardID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

// EffectiveRole resolves what a user may do on a board: an explicit member
// record wins, then implicit ownership, then nothing.
func (s *WhiteboardService) EffectiveRole(ctx context.Context, boardID, userID uuid.UUID) (models.BoardRole, error) {
	var member models.WhiteboardMember
	err := s.DB.WithContext(ctx).First(&member, "board_id = ? AND user_id = ?", boardID, userID).Error
	if err == nil {
		return member.Role, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.BoardRoleNone, err
	}

	var board models.Whiteboard
	err = s.DB.WithContext(ctx).First(&board, "id = ?", boardID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.BoardRoleNone, ErrBoardNotFound
		}
		return models.BoardRoleNone, err
	}
	if board.OwnerID == userID {
		return models.BoardRoleOwner, nil
	}
	return models.BoardRoleNone, nil
}

func CanEditBoard(role models.BoardRole) bool {
	return role == models.BoardRoleOwner || role == models.BoardRoleEditor
}

func CanViewBoard(role models.BoardRole) bool {
	return role == models.BoardRoleOwner || role == models.BoardRoleEditor || role == models.BoardRoleViewer
}

// IncomingFile is a file payload submitted with a state save: either a data
// URL to upload, or absent when the blob was uploaded previously.
type IncomingFile struct {
	DataURL  string `json:"dataURL,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// SaveState persists the drawing state. New file payloads are uploaded to
// object storage under {boardId}/files/{fileId} and replaced with pointers;
// pointers for files the client did not resend are carried over.
func (s *WhiteboardService) SaveState(ctx context.Context, boardID, userID uuid.UUID, elements []interface{}, appState map[string]interface{}, files map[string]IncomingFile) (*models.WhiteboardState, error) {
	if _, err := s.GetBoard(ctx, boardID); err != nil {
		return nil, err
	}

	filesMeta := map[string]models.FileMeta{}
	exists := false
	var previous models.WhiteboardState
	if err := s.DB.WithContext(ctx).First(&previous, "board_id = ?", boardID).Error; err == nil {
		exists = true
		for id, meta := range previous.FilesMeta {
			filesMeta[id] = meta
		}
	}

	for fileID, file := range files {
		if file.DataURL == "" {
			continue
		}
		payload, mimeType, err := decodeDataURL(file.DataURL)
		if err != nil {
			logger.Warn("board_file_decode_failed", map[string]interface{}{
				"board_id": boardID.String(),
				"file_id":  fileID,
				"error":    err.Error(),
			})
			continue
		}
		if file.MimeType != "" {
			mimeType = file.MimeType
		}
		path := fmt.Sprintf("%s/files/%s", boardID, fileID)
		if err := s.Store.Upload(ctx, path, bytes.NewReader(payload), int64(len(payload)), mimeType); err != nil {
			return nil, fmt.Errorf("upload board file %s: %w", fileID, err)
		}
		filesMeta[fileID] = models.FileMeta{Path: path, MimeType: mimeType}
	}

	state := &models.WhiteboardState{
		BoardID:   boardID,
		Elements:  elements,
		AppState:  appState,
		FilesMeta: filesMeta,
		UpdatedBy: userID,
		UpdatedAt: time.Now().UTC(),
	}
	var err error
	if exists {
		// Struct-based update keeps the json serializers in play for the
		// jsonb columns; empty elements still overwrite via Select.
		err = s.DB.WithContext(ctx).Model(&models.WhiteboardState{BoardID: boardID}).
			Select("Elements", "AppState", "FilesMeta", "UpdatedBy", "UpdatedAt").
			Updates(state).Error
	} else {
		err = s.DB.WithContext(ctx).Create(state).Error
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *WhiteboardService) LoadState(ctx context.Context, boardID uuid.UUID) (*models.WhiteboardState, error) {
	var state models.WhiteboardState
	err := s.DB.WithContext(ctx).First(&state, "board_id = ?", boardID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A board with no saved state yet reads as empty, not as an error.
			return &models.WhiteboardState{
				BoardID:   boardID,
				Elements:  []interface{}{},
				AppState:  map[string]interface{}{},
				FilesMeta: map[string]models.FileMeta{},
			}, nil
		}
		return nil, err
	}
	return &state, nil
}

// ResolveFileURLs turns stored file pointers into presigned download URLs.
// A file whose URL cannot be produced is skipped so one missing blob does
// not break loading the rest of the board.
func (s *WhiteboardService) ResolveFileURLs(ctx context.Context, state *models.WhiteboardState, expiry time.Duration) map[string]string {
	urls := make(map[string]string, len(state.FilesMeta))
	for fileID, meta := range state.FilesMeta {
		if meta.Path == "" {
			continue
		}
		url, err := s.Store.PresignedGetURL(ctx, meta.Path, expiry)
		if err != nil {
			logger.Warn("board_file_url_failed", map[string]interface{}{
				"board_id": state.BoardID.String(),
				"file_id":  fileID,
				"error":    err.Error(),
			})
			continue
		}
		urls[fileID] = url
	}
	return urls
}

// DeleteBoard removes the board, its state, membership, and index rows.
// Blob deletion is best effort and runs first; a blob that fails to delete
// is logged and orphaned rather than blocking the board's removal.
func (s *WhiteboardService) DeleteBoard(ctx context.Context, boardID uuid.UUID) error {
	var state models.WhiteboardState
	if err := s.DB.WithContext(ctx).First(&state, "board_id = ?", boardID).Error; err == nil {
		for fileID, meta := range state.FilesMeta {
			if meta.Path == "" {
				continue
			}
			if err := s.Store.Delete(ctx, meta.Path); err != nil {
				logger.Warn("board_file_delete_failed", map[string]interface{}{
					"board_id": boardID.String(),
					"file_id":  fileID,
					"error":    err.Error(),
				})
			}
		}
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.WhiteboardState{}, "board_id = ?", boardID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.WhiteboardMember{}, "board_id = ?", boardID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.UserWhiteboard{}, "board_id = ?", boardID).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Whiteboard{}, "id = ?", boardID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrBoardNotFound
		}
		return nil
	})
}

func decodeDataURL(dataURL string) ([]byte, string, error) {
	if !strings.HasPrefix(dataURL, "data:") {
		return nil, "", errors.New("not a data URL")
	}
	comma := strings.IndexByte(dataURL, ',')
	if comma < 0 {
		return nil, "", errors.New("malformed data URL")
	}
	header := dataURL[len("data:"):comma]
	mimeType := "application/octet-stream"
	if semi := strings.IndexByte(header, ';'); semi >= 0 {
		if semi > 0 {
			mimeType = header[:semi]
		}
	} else if header != "" {
		mimeType = header
	}
	payload, err := base64.StdEncoding.DecodeString(dataURL[comma+1:])
	if err != nil {
		return nil, "", err
	}
	return payload, mimeType, nil
}
